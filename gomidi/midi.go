// Package gomidi implements plugin.MIDIContext on top of RtMidi, so the
// sequencer can be played from a hardware keyboard and drive a hardware or
// software synth without a plugin host.
package gomidi

import (
	"errors"
	"fmt"

	"github.com/Pocwiardo/GeneticVSTComposer/plugin"
	"github.com/Pocwiardo/GeneticVSTComposer/sequencer"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	RTMIDIContext struct {
		driver        *rtmididrv.Driver
		currentIn     drivers.In
		events        chan timestampedMsg
		eventsBuf     []timestampedMsg
		eventIndex    int
		startFrame    int
		startFrameSet bool
		timing        sequencer.Timing
		channel       uint8
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}

	// RTMIDIOutput sends sequencer events to an output port.
	RTMIDIOutput struct {
		out     drivers.Out
		channel uint8
	}

	timestampedMsg struct {
		frame int
		msg   midi.Message
	}
)

var errNoDriver = errors.New("no MIDI driver available")

// NewContext opens the RtMidi driver. Events produced by the sequencer are
// sent on the given MIDI channel (0-15).
func NewContext(timing sequencer.Timing, channel uint8) *RTMIDIContext {
	m := RTMIDIContext{events: make(chan timestampedMsg, 1024), timing: timing, channel: channel}
	// there's not much we can do if this fails, so just use m.driver = nil to
	// indicate no driver available
	m.driver, _ = rtmididrv.New()
	return &m
}

func (m *RTMIDIContext) Support() plugin.MIDISupport {
	if m.driver == nil {
		return plugin.MIDISupportNoDriver
	}
	return plugin.MIDISupported
}

func (m *RTMIDIContext) Inputs(yield func(plugin.MIDIDevice) bool) {
	if m.driver == nil {
		return
	}
	ins, err := m.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		if !yield(RTMIDIDevice{context: m, in: in}) {
			break
		}
	}
}

func (m *RTMIDIContext) Outputs(yield func(plugin.MIDIOutputDevice) bool) {
	if m.driver == nil {
		return
	}
	outs, err := m.driver.Outs()
	if err != nil {
		return
	}
	for _, out := range outs {
		if !yield(&RTMIDIOutput{out: out, channel: m.channel}) {
			break
		}
	}
}

// Open an input device while closing the currently open if necessary.
func (d RTMIDIDevice) Open() error {
	if d.context.currentIn == d.in {
		return nil
	}
	if d.context.driver == nil {
		return errNoDriver
	}
	if d.context.currentIn != nil && d.context.currentIn.IsOpen() {
		d.context.currentIn.Close()
	}
	d.context.currentIn = d.in
	if err := d.in.Open(); err != nil {
		d.context.currentIn = nil
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	if _, err := midi.ListenTo(d.in, d.context.HandleMessage); err != nil {
		d.in.Close()
		d.context.currentIn = nil
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	return nil
}

func (d RTMIDIDevice) Close() error {
	if d.context.currentIn == d.in {
		d.context.currentIn = nil
	}
	return d.in.Close()
}

func (d RTMIDIDevice) IsOpen() bool   { return d.in.IsOpen() }
func (d RTMIDIDevice) String() string { return d.in.String() }

func (o *RTMIDIOutput) Open() error {
	if err := o.out.Open(); err != nil {
		return fmt.Errorf("opening MIDI output failed: %w", err)
	}
	return nil
}

func (o *RTMIDIOutput) Close() error   { return o.out.Close() }
func (o *RTMIDIOutput) IsOpen() bool   { return o.out.IsOpen() }
func (o *RTMIDIOutput) String() string { return o.out.String() }

// Send writes the events in order. Frame offsets are not waited for; the
// caller sends each block when it is due.
func (o *RTMIDIOutput) Send(events []sequencer.Event) error {
	for _, ev := range events {
		if err := o.out.Send(ev.Message(o.channel)); err != nil {
			return fmt.Errorf("sending %v: %w", ev, err)
		}
	}
	return nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.driver.Close()
}

func (m *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	frame := int(float64(timestampms) * m.timing.SampleRate / 1000)
	select {
	case m.events <- timestampedMsg{frame: frame, msg: msg}: // if the channel is full, just drop the message
	default:
	}
}

func (c *RTMIDIContext) NextEvent(frame int) (sequencer.Trigger, bool) {
F:
	for {
		select {
		case msg := <-c.events:
			c.eventsBuf = append(c.eventsBuf, msg)
			if !c.startFrameSet {
				c.startFrame = msg.frame
				c.startFrameSet = true
			}
		default:
			break F
		}
	}
	if c.eventIndex > 0 { // an event was consumed, check how badly we need to adjust the timing
		delta := frame + c.startFrame - c.eventsBuf[c.eventIndex-1].frame
		// a positive delta means the event was consumed late; pull the
		// internal clock towards it
		c.startFrame -= delta / 5
	}
	for c.eventIndex < len(c.eventsBuf) {
		m := c.eventsBuf[c.eventIndex]
		c.eventIndex++
		if t, ok := sequencer.TriggerFromMessage(m.frame-c.startFrame, m.msg); ok {
			return t, true
		}
	}
	c.eventIndex = len(c.eventsBuf) + 1
	return sequencer.Trigger{}, false
}

func (c *RTMIDIContext) FinishBlock(frame int) {
	c.startFrame += frame
	if c.eventIndex > 0 {
		copy(c.eventsBuf, c.eventsBuf[c.eventIndex-1:])
		c.eventsBuf = c.eventsBuf[:len(c.eventsBuf)-c.eventIndex+1]
		if len(c.eventsBuf) > 0 {
			// the remaining events are in the future; move the start frame
			// towards them so they play when they were received
			delta := c.startFrame - c.eventsBuf[0].frame
			c.startFrame -= delta / 5
		}
	}
	c.eventIndex = 0
}

func (c *RTMIDIContext) Timing() (sequencer.Timing, bool) {
	return c.timing, c.timing.BPM > 0
}

func (c *RTMIDIContext) SetTiming(t sequencer.Timing) {
	c.timing = t
}
