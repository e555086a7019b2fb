// Package composer holds the data shared by the genetic melody composer and
// the real-time melody sequencer: genes, melodies, the sets of melodies a
// composer run publishes, and the parameters steering a run.
package composer

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type (
	// Gene is one time step of a melody. Non-negative values are MIDI
	// pitches that start a new note on that step, Rest silences the step and
	// Sustain extends the previous note through the step.
	Gene int

	// Melody is a fixed length sequence of genes, one per note duration unit.
	// In the genetic algorithm a Melody is an individual of the population.
	Melody []Gene

	// Meter is a time signature, e.g. 6/8 is Meter{6, 8}.
	Meter struct {
		Numerator   int `yaml:"numerator" validate:"gt=0,lte=32"`
		Denominator int `yaml:"denominator" validate:"oneof=1 2 4 8 16 32"`
	}

	// MelodySet is the result of one composer run. A published MelodySet is
	// never modified, so the sequencer can read it without locking.
	MelodySet struct {
		ID string `yaml:"id,omitempty"`
		// Scale is the scale name the melodies were composed in, e.g. "C
		// Major".
		Scale string `yaml:"scale"`
		// ScalePitchClasses are the pitch classes of Scale, used by the
		// sequencer when snapping transposed notes back onto the scale.
		ScalePitchClasses []int `yaml:"scalePitchClasses,flow"`
		// NoteDuration is the length of one gene in beats.
		NoteDuration float64  `yaml:"noteDuration"`
		Meter        Meter    `yaml:"meter"`
		Melodies     []Melody `yaml:"melodies"`
		// Fitness holds the fitness of each melody, in the same order.
		Fitness []float64 `yaml:"fitness,flow,omitempty"`
	}
)

const (
	Rest    Gene = -1
	Sustain Gene = -2
)

// ResultSize is the number of melodies in a MelodySet returned by a run. It
// matches the twelve melody select keys of the trigger protocol.
const ResultSize = 12

var ErrInvalidMelody = errors.New("invalid melody")

// IsPitch reports whether the gene starts a note.
func (g Gene) IsPitch() bool {
	return g >= 0
}

func (g Gene) String() string {
	switch {
	case g == Rest:
		return "-"
	case g == Sustain:
		return "~"
	case g >= 0:
		return strconv.Itoa(int(g))
	}
	return fmt.Sprintf("Gene(%d)", int(g))
}

// Validate checks that every gene is a MIDI pitch, Rest or Sustain.
func (m Melody) Validate() error {
	for i, g := range m {
		if g < Sustain || g > 127 {
			return fmt.Errorf("%w: gene %d at position %d", ErrInvalidMelody, g, i)
		}
	}
	return nil
}

func (m Melody) Copy() Melody {
	return slices.Clone(m)
}

func (m Melody) Equal(other Melody) bool {
	return slices.Equal(m, other)
}

// Pitches returns the pitches of the melody in order, skipping rests and
// sustains.
func (m Melody) Pitches() []int {
	ret := make([]int, 0, len(m))
	for _, g := range m {
		if g.IsPitch() {
			ret = append(ret, int(g))
		}
	}
	return ret
}

// Durations returns the length of each note in genes, merging the sustains
// that follow it. Rests and sustains that follow a rest are not counted as
// notes.
func (m Melody) Durations() []int {
	ret := make([]int, 0, len(m))
	sounding := false
	for _, g := range m {
		switch {
		case g.IsPitch():
			ret = append(ret, 1)
			sounding = true
		case g == Sustain && sounding:
			ret[len(ret)-1]++
		default:
			sounding = false
		}
	}
	return ret
}

func (m Melody) String() string {
	var b strings.Builder
	for i, g := range m {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(g.String())
	}
	return b.String()
}

// BeatsPerMeasure returns the length of a measure in quarter note beats.
func (m Meter) BeatsPerMeasure() float64 {
	if m.Denominator <= 0 {
		return 0
	}
	return float64(m.Numerator) * 4 / float64(m.Denominator)
}

func (m Meter) String() string {
	return fmt.Sprintf("%d/%d", m.Numerator, m.Denominator)
}

// Melody returns the melody at index i, or nil if there is none.
func (s *MelodySet) Melody(i int) Melody {
	if s == nil || i < 0 || i >= len(s.Melodies) {
		return nil
	}
	return s.Melodies[i]
}

// Validate checks the melodies of the set and that the timing information
// is usable for playback.
func (s *MelodySet) Validate() error {
	if s.NoteDuration <= 0 {
		return fmt.Errorf("%w: note duration must be > 0, got %v", ErrInvalidMelody, s.NoteDuration)
	}
	for i, m := range s.Melodies {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("melody %d: %w", i+1, err)
		}
	}
	return nil
}
