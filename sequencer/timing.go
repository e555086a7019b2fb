package sequencer

import (
	composer "github.com/Pocwiardo/GeneticVSTComposer"
)

type (
	// Timing is the host transport as seen by the sequencer.
	Timing struct {
		BPM        float64
		Meter      composer.Meter
		SampleRate float64
	}

	// MeterAdjuster decides where playback continues when the host changes
	// the time signature mid melody. It returns the new cursor.
	MeterAdjuster interface {
		AdjustCursor(from, to composer.Meter, cursor, length int) int
	}

	// NoMeterAdjust keeps the cursor where it is.
	NoMeterAdjust struct{}
)

// DefaultNoteDuration is the gene length in beats used before a set is
// loaded.
const DefaultNoteDuration = 0.5

var DefaultTiming = Timing{BPM: 120, Meter: composer.Meter{Numerator: 4, Denominator: 4}, SampleRate: 44100}

// Interval returns the number of frames of one gene lasting noteDuration
// beats, or 0 if the timing cannot play anything.
func (t Timing) Interval(noteDuration float64) int {
	if t.BPM <= 0 || t.SampleRate <= 0 || noteDuration <= 0 {
		return 0
	}
	return int(60 / t.BPM * noteDuration * t.SampleRate)
}

func (NoMeterAdjust) AdjustCursor(_, _ composer.Meter, cursor, _ int) int {
	return cursor
}

// SetTiming updates tempo, meter and sample rate. The new interval applies
// from the next gene on; a changed meter goes through the MeterAdjuster.
func (s *Sequencer) SetTiming(t Timing) {
	if t == s.timing {
		return
	}
	if s.playing && t.Meter != s.timing.Meter && len(s.melody) > 0 {
		c := s.meter.AdjustCursor(s.timing.Meter, t.Meter, s.cursor, len(s.melody))
		s.cursor = ((c % len(s.melody)) + len(s.melody)) % len(s.melody)
	}
	s.timing = t
	s.interval = t.Interval(s.noteDuration)
}

func (s *Sequencer) Timing() Timing {
	return s.timing
}
