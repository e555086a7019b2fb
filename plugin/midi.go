package plugin

import (
	"fmt"
	"strings"

	"github.com/Pocwiardo/GeneticVSTComposer/sequencer"
)

type (
	// MIDIContext is a ProcessContext backed by system MIDI ports, used when
	// running standalone instead of inside a host.
	MIDIContext interface {
		ProcessContext
		Inputs(yield func(input MIDIDevice) bool)
		Outputs(yield func(output MIDIOutputDevice) bool)
		SetTiming(t sequencer.Timing)
		Close()
		Support() MIDISupport
	}

	MIDIDevice interface {
		Open() error
		Close() error
		IsOpen() bool
		String() string
	}

	// MIDIOutputDevice is a port the produced events can be sent to once
	// opened.
	MIDIOutputDevice interface {
		MIDIDevice
		sequencer.Sink
	}

	MIDISupport int
)

const (
	MIDISupportNotCompiled MIDISupport = iota
	MIDISupportNoDriver
	MIDISupported
)

func (s MIDISupport) String() string {
	switch s {
	case MIDISupportNotCompiled:
		return "not compiled in"
	case MIDISupportNoDriver:
		return "no driver"
	case MIDISupported:
		return "supported"
	}
	return fmt.Sprintf("MIDISupport(%d)", int(s))
}

// FindDevice returns the first device whose name starts with prefix. An
// empty prefix matches the first device.
func FindDevice[D MIDIDevice](devices func(yield func(D) bool), prefix string) (d D, err error) {
	for dev := range devices {
		if strings.HasPrefix(dev.String(), prefix) {
			return dev, nil
		}
	}
	if prefix == "" {
		return d, fmt.Errorf("no MIDI ports available")
	}
	return d, fmt.Errorf("no MIDI port starting with %q", prefix)
}

// NullMIDIContext is a MIDIContext with no ports. It only reports the timing
// it was given.
type NullMIDIContext struct {
	timing sequencer.Timing
}

func (m *NullMIDIContext) NextEvent(frame int) (sequencer.Trigger, bool)    { return sequencer.Trigger{}, false }
func (m *NullMIDIContext) FinishBlock(frame int)                            {}
func (m *NullMIDIContext) Timing() (sequencer.Timing, bool)                 { return m.timing, m.timing.BPM > 0 }
func (m *NullMIDIContext) SetTiming(t sequencer.Timing)                     { m.timing = t }
func (m *NullMIDIContext) Inputs(yield func(input MIDIDevice) bool)         {}
func (m *NullMIDIContext) Outputs(yield func(output MIDIOutputDevice) bool) {}
func (m *NullMIDIContext) Close()                                           {}
func (m *NullMIDIContext) Support() MIDISupport                             { return MIDISupportNotCompiled }
