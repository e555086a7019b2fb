package sequencer

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

type (
	// EventKind tells what an output Event does.
	EventKind int

	// Event is a MIDI event produced by the sequencer. Frame is relative to
	// the start of the block being processed.
	Event struct {
		Frame    int
		Kind     EventKind
		Note     byte
		Velocity byte
	}

	// Trigger is an incoming note event from the host or a MIDI input. It
	// has the same shape as the events the sequencer produces: Frame is
	// relative to the start of the block.
	Trigger struct {
		Frame    int
		On       bool
		Note     byte
		Velocity byte
	}

	// Sink receives the events of each processed block.
	Sink interface {
		Send(events []Event) error
	}
)

const (
	NoteOn EventKind = iota
	NoteOff
	AllNotesOff
)

// allNotesOffController is the MIDI channel mode message for all notes off.
const allNotesOffController = 123

func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "note on"
	case NoteOff:
		return "note off"
	case AllNotesOff:
		return "all notes off"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

func (e Event) String() string {
	if e.Kind == AllNotesOff {
		return fmt.Sprintf("%s@%d", e.Kind, e.Frame)
	}
	return fmt.Sprintf("%s(%d, %d)@%d", e.Kind, e.Note, e.Velocity, e.Frame)
}

// Message encodes the event as a MIDI message on the given channel.
func (e Event) Message(channel uint8) midi.Message {
	switch e.Kind {
	case NoteOn:
		return midi.NoteOn(channel, e.Note, e.Velocity)
	case NoteOff:
		return midi.NoteOff(channel, e.Note)
	}
	return midi.ControlChange(channel, allNotesOffController, 0)
}

// TriggerFromMessage decodes note on and note off messages. A note on with
// zero velocity is a note off. Other messages return ok == false.
func TriggerFromMessage(frame int, msg midi.Message) (t Trigger, ok bool) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		return Trigger{Frame: frame, On: velocity > 0, Note: key, Velocity: velocity}, true
	case msg.GetNoteOff(&channel, &key, &velocity):
		return Trigger{Frame: frame, On: false, Note: key, Velocity: velocity}, true
	}
	return Trigger{}, false
}
