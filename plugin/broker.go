package plugin

import (
	"time"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/sequencer"
)

type (
	// Broker carries messages between the control side (editor, command line,
	// host parameter changes) and the processor running on the audio thread.
	// Each recipient has one buffered channel; senders on the audio thread
	// use TrySend so they never block, and drop the message if the channel is
	// full.
	Broker struct {
		ToProcessor chan MsgToProcessor
		ToModel     chan MsgToModel
	}

	// MsgToProcessor changes a setting of the sequencer. It is a plain value
	// so that sending it does not allocate.
	MsgToProcessor struct {
		Kind  ProcessorMessageKind
		Value int
	}

	ProcessorMessageKind int

	// MsgToModel is sent by the processor after each block and by the
	// composer worker when a run ends. The frequent playback state is not
	// boxed; infrequent results travel in Data.
	MsgToModel struct {
		HasState bool
		State    sequencer.State
		// DroppedTriggers counts the triggers of the block that did not fit
		// in the trigger buffer and were ignored.
		DroppedTriggers int

		Data any // *GenerationDone or *GenerationFailed
	}

	// GenerationDone reports a finished run whose set has been published.
	GenerationDone struct {
		Report composer.Report
	}

	GenerationFailed struct {
		Err error
	}
)

const (
	MsgNone ProcessorMessageKind = iota
	// MsgScaleSnap turns scale snap on when Value is non-zero.
	MsgScaleSnap
	// MsgPanic stops playback and silences every note.
	MsgPanic
)

func NewBroker() *Broker {
	return &Broker{
		ToProcessor: make(chan MsgToProcessor, 1024),
		ToModel:     make(chan MsgToModel, 1024),
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value is received from c or t has passed. ok
// is false on timeout or if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
