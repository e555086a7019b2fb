// Package sequencer plays composed melodies sample accurately. It runs on the
// audio thread: Process never blocks, never locks and does not allocate as
// long as the output slice has room for the events of the block.
package sequencer

import (
	"math/rand"
	"time"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/theory"
)

type (
	// Sequencer is the playback state machine. It is idle until a melody
	// select key triggers one of the melodies of the published set; the
	// melody then loops until the key is released.
	Sequencer struct {
		slot *Slot
		rng  *rand.Rand

		melody   composer.Melody
		playing  bool
		key      byte // the melody select key that started playback
		cursor   int  // index of the next gene
		next     int  // frames from the start of the block to the next gene
		interval int  // frames per gene

		transpose int
		snap      bool
		scale     theory.PitchSet
		velocity  byte
		jitter    int
		lastNote  int

		timing       Timing
		noteDuration float64
		meter        MeterAdjuster

		pending     [maxPending]pendingOff
		pendingHead int
		pendingLen  int
	}

	// State is a snapshot of the sequencer for display and tests.
	State struct {
		Playing       bool
		Melody        composer.Melody
		Cursor        int
		FramesToNext  int
		Interval      int
		Transposition int
		ScaleSnap     bool
		LastNote      int
		Velocity      byte
	}

	// Option configures a Sequencer.
	Option func(*Sequencer)

	pendingOff struct {
		frame int
		note  byte
	}
)

const (
	// MelodyKeyLow and MelodyKeyHigh bound the keys selecting melodies 1 to
	// 12.
	MelodyKeyLow  = 48
	MelodyKeyHigh = 59
	// TransposeKey is the key of zero transposition; higher keys transpose
	// up by their distance from it.
	TransposeKey = 60

	DefaultVelocityJitter = 5

	maxPending = 8
)

// WithRand sets the random source of the velocity jitter.
func WithRand(rng *rand.Rand) Option {
	return func(s *Sequencer) { s.rng = rng }
}

// WithVelocityJitter sets the maximum random deviation of note velocities;
// 0 plays the trigger velocity unchanged.
func WithVelocityJitter(j int) Option {
	return func(s *Sequencer) { s.jitter = max(0, j) }
}

func WithMeterAdjuster(m MeterAdjuster) Option {
	return func(s *Sequencer) { s.meter = m }
}

// New returns an idle sequencer playing the sets published to slot.
func New(slot *Slot, opts ...Option) *Sequencer {
	s := &Sequencer{
		slot:         slot,
		jitter:       DefaultVelocityJitter,
		lastNote:     -1,
		timing:       DefaultTiming,
		noteDuration: DefaultNoteDuration,
		meter:        NoMeterAdjust{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.interval = s.timing.Interval(s.noteDuration)
	return s
}

// SetScaleSnap turns snapping of transposed notes onto the scale of the
// playing set on or off.
func (s *Sequencer) SetScaleSnap(on bool) {
	s.snap = on
}

func (s *Sequencer) State() State {
	return State{
		Playing:       s.playing,
		Melody:        s.melody,
		Cursor:        s.cursor,
		FramesToNext:  s.next,
		Interval:      s.interval,
		Transposition: s.transpose,
		ScaleSnap:     s.snap,
		LastNote:      s.lastNote,
		Velocity:      s.velocity,
	}
}

// Advance processes a block of frames with no incoming triggers.
func (s *Sequencer) Advance(frames int, out []Event) []Event {
	return s.Process(frames, nil, out)
}

// Process handles a block of frames. Triggers must be sorted by frame; each
// is applied at its frame. The produced events are appended to out in time
// order. Note offs falling after the block are kept and emitted in a later
// block.
func (s *Sequencer) Process(frames int, triggers []Trigger, out []Event) []Event {
	for _, t := range triggers {
		f := min(max(t.Frame, 0), frames)
		out = s.render(f, out)
		out = s.handle(t, f, out)
	}
	out = s.render(frames, out)
	s.next -= frames
	for i := 0; i < s.pendingLen; i++ {
		s.pending[(s.pendingHead+i)%maxPending].frame -= frames
	}
	return out
}

// render plays genes up to, but not including, frame to.
func (s *Sequencer) render(to int, out []Event) []Event {
	if s.playing && (s.interval < 1 || len(s.melody) == 0) {
		return s.stop(max(min(s.next, to-1), 0), out)
	}
	for s.playing && s.next < to {
		out = s.flush(s.next, out)
		if g := s.melody[s.cursor]; g.IsPitch() {
			out = s.noteOn(g, out)
		}
		s.next += s.interval
		s.cursor = (s.cursor + 1) % len(s.melody)
	}
	return s.flush(to-1, out)
}

func (s *Sequencer) noteOn(g composer.Gene, out []Event) []Event {
	pitch := int(g) + s.transpose
	if s.snap {
		pitch = s.scale.Snap(pitch)
	}
	if pitch < 0 || pitch > 127 {
		return out
	}
	vel := int(s.velocity)
	if s.jitter > 0 {
		vel += s.rng.Intn(2*s.jitter+1) - s.jitter
	}
	vel = min(max(vel, 1), 127)
	out = append(out, Event{Frame: s.next, Kind: NoteOn, Note: byte(pitch), Velocity: byte(vel)})
	length := 1 + s.sustainRun()
	out = s.push(pendingOff{frame: s.next + length*s.interval - 1, note: byte(pitch)}, out)
	s.lastNote = pitch
	return out
}

// sustainRun counts the sustains following the cursor, wrapping around the
// melody.
func (s *Sequencer) sustainRun() int {
	n := len(s.melody)
	k := 0
	for k < n-1 && s.melody[(s.cursor+1+k)%n] == composer.Sustain {
		k++
	}
	return k
}

func (s *Sequencer) handle(t Trigger, frame int, out []Event) []Event {
	switch {
	case t.On && t.Note >= MelodyKeyLow && t.Note <= MelodyKeyHigh:
		set := s.slot.Load()
		m := set.Melody(int(t.Note) - MelodyKeyLow)
		if len(m) == 0 {
			return out
		}
		out = s.flush(frame, out)
		out = s.releasePending(frame, out)
		s.melody = m
		s.playing = true
		s.key = t.Note
		s.cursor = 0
		s.next = frame
		s.velocity = t.Velocity
		s.scale = theory.NewPitchSet(set.ScalePitchClasses)
		if set.NoteDuration > 0 {
			s.noteDuration = set.NoteDuration
		}
		s.interval = s.timing.Interval(s.noteDuration)
	case t.On && t.Note >= TransposeKey:
		s.transpose = int(t.Note) - TransposeKey
	case !t.On && t.Note >= TransposeKey:
		if int(t.Note)-TransposeKey == s.transpose {
			s.transpose = 0
		}
	case !t.On && s.playing && t.Note == s.key:
		out = s.stop(frame, out)
	}
	return out
}

// Panic stops playback, resets the transposition and sends all notes off at
// the start of the next block, whether anything is playing or not.
func (s *Sequencer) Panic(out []Event) []Event {
	s.transpose = 0
	return s.stop(0, out)
}

// stop ends playback and silences everything at frame.
func (s *Sequencer) stop(frame int, out []Event) []Event {
	s.playing = false
	s.pendingLen = 0
	s.lastNote = -1
	return append(out, Event{Frame: frame, Kind: AllNotesOff})
}

// push queues a note off. A full queue releases its oldest note right away.
func (s *Sequencer) push(p pendingOff, out []Event) []Event {
	if s.pendingLen == maxPending {
		old := s.pending[s.pendingHead]
		out = append(out, Event{Frame: s.next, Kind: NoteOff, Note: old.note})
		s.pendingHead = (s.pendingHead + 1) % maxPending
		s.pendingLen--
	}
	s.pending[(s.pendingHead+s.pendingLen)%maxPending] = p
	s.pendingLen++
	return out
}

// flush emits the queued note offs due at or before frame.
func (s *Sequencer) flush(frame int, out []Event) []Event {
	for s.pendingLen > 0 {
		p := s.pending[s.pendingHead]
		if p.frame > frame {
			break
		}
		out = append(out, Event{Frame: p.frame, Kind: NoteOff, Note: p.note})
		s.pendingHead = (s.pendingHead + 1) % maxPending
		s.pendingLen--
	}
	return out
}

// releasePending emits every queued note off at frame, early.
func (s *Sequencer) releasePending(frame int, out []Event) []Event {
	for ; s.pendingLen > 0; s.pendingLen-- {
		p := s.pending[s.pendingHead]
		out = append(out, Event{Frame: frame, Kind: NoteOff, Note: p.note})
		s.pendingHead = (s.pendingHead + 1) % maxPending
	}
	return out
}
