package composer

import (
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// SMFTicksPerQuarter is the time resolution of exported MIDI files.
const SMFTicksPerQuarter = 960

// WriteSMF writes the melodies of the set into a standard MIDI file, one
// track per melody, so they can be dragged into a DAW. Sustains extend the
// previous note and rests are silent, exactly as the sequencer plays them.
func WriteSMF(w io.Writer, set *MelodySet, bpm float64, velocity uint8) error {
	if set == nil || set.NoteDuration <= 0 {
		return fmt.Errorf("WriteSMF failed: %w", ErrInvalidMelody)
	}
	s := smf.New()
	ticks := smf.MetricTicks(SMFTicksPerQuarter)
	s.TimeFormat = ticks
	step := uint32(float64(ticks.Ticks4th())*set.NoteDuration + 0.5)
	if step == 0 {
		step = 1
	}

	var tempo smf.Track
	tempo.Add(0, smf.MetaTempo(bpm))
	if set.Meter.Numerator > 0 && set.Meter.Denominator > 0 {
		tempo.Add(0, smf.MetaMeter(uint8(set.Meter.Numerator), uint8(set.Meter.Denominator)))
	}
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("WriteSMF failed: %w", err)
	}

	for i, m := range set.Melodies {
		var tr smf.Track
		tr.Add(0, smf.MetaTrackSequenceName(fmt.Sprintf("Melody %d", i+1)))
		var delta uint32
		sounding := -1
		for _, g := range m {
			switch {
			case g.IsPitch():
				if sounding >= 0 {
					tr.Add(delta, midi.NoteOff(0, uint8(sounding)))
					delta = 0
				}
				tr.Add(delta, midi.NoteOn(0, uint8(g), velocity))
				delta = 0
				sounding = int(g)
			case g == Rest && sounding >= 0:
				tr.Add(delta, midi.NoteOff(0, uint8(sounding)))
				delta = 0
				sounding = -1
			}
			delta += step
		}
		if sounding >= 0 {
			tr.Add(delta, midi.NoteOff(0, uint8(sounding)))
			delta = 0
		}
		tr.Close(delta)
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("WriteSMF failed: %w", err)
		}
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("WriteSMF failed: %w", err)
	}
	return nil
}
