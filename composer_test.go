package composer_test

import (
	"bytes"
	"strings"
	"testing"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestMelodyDurations(t *testing.T) {
	m := composer.Melody{60, composer.Sustain, composer.Rest, 62, 64, composer.Sustain, composer.Sustain, composer.Rest, composer.Sustain}
	assert.Equal(t, []int{2, 1, 3}, m.Durations())
	assert.Equal(t, []int{60, 62, 64}, m.Pitches())
	assert.Equal(t, "60 ~ - 62 64 ~ ~ - ~", m.String())
}

func TestMelodyValidate(t *testing.T) {
	assert.NoError(t, composer.Melody{0, 127, -1, -2}.Validate())
	assert.ErrorIs(t, composer.Melody{60, -3}.Validate(), composer.ErrInvalidMelody)
	assert.ErrorIs(t, composer.Melody{128}.Validate(), composer.ErrInvalidMelody)
}

func TestExpectedLength(t *testing.T) {
	for _, tt := range []struct {
		measures     int
		meter        composer.Meter
		noteDuration float64
		want         int
	}{
		{1, composer.Meter{Numerator: 4, Denominator: 4}, 0.5, 8},
		{2, composer.Meter{Numerator: 4, Denominator: 4}, 0.25, 32},
		{1, composer.Meter{Numerator: 3, Denominator: 4}, 1, 3},
		{1, composer.Meter{Numerator: 6, Denominator: 8}, 0.5, 6},
		{4, composer.Meter{Numerator: 7, Denominator: 8}, 0.5, 28},
	} {
		p := composer.DefaultParams()
		p.Measures, p.Meter, p.NoteDuration = tt.measures, tt.meter, tt.noteDuration
		assert.Equal(t, tt.want, p.ExpectedLength(), "%d x %v / %v", tt.measures, tt.meter, tt.noteDuration)
	}
}

func TestParamsValidate(t *testing.T) {
	p := composer.DefaultParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, composer.NoteRange{Low: 36, High: 72}, p.NoteRange)

	for name, mutate := range map[string]func(*composer.Params){
		"zero population":  func(p *composer.Params) { p.PopulationSize = 0 },
		"zero generations": func(p *composer.Params) { p.Generations = 0 },
		"inverted range":   func(p *composer.Params) { p.NoteRange = composer.NoteRange{Low: 70, High: 60} },
		"knob above one":   func(p *composer.Params) { p.Weirdness = 1.5 },
		"bad meter":        func(p *composer.Params) { p.Meter.Denominator = 3 },
		"no scale":         func(p *composer.Params) { p.Scale = "" },
		"bad mode":         func(p *composer.Params) { p.Mode = 7 },
		"no notes":         func(p *composer.Params) { p.NoteDuration = 4; p.Meter = composer.Meter{Numerator: 1, Denominator: 8} },
	} {
		p := composer.DefaultParams()
		mutate(&p)
		assert.ErrorIs(t, p.Validate(), composer.ErrInvalidParams, name)
	}
}

func TestReadParams(t *testing.T) {
	p, err := composer.ReadParams([]byte("mode: rhythm\nscale: D Dorian\nmeasures: 2\nweirdness: 0.3\n"))
	require.NoError(t, err)
	assert.Equal(t, composer.RhythmOnly, p.Mode)
	assert.Equal(t, "D Dorian", p.Scale)
	assert.Equal(t, 2, p.Measures)
	assert.Equal(t, 0.3, p.Weirdness)
	assert.Equal(t, 0.8, p.Valence, "unset fields keep their defaults")

	_, err = composer.ReadParams([]byte("mode: sideways\n"))
	assert.ErrorIs(t, err, composer.ErrInvalidParams)
	_, err = composer.ReadParams([]byte("populationSize: -4\n"))
	assert.ErrorIs(t, err, composer.ErrInvalidParams)
}

func TestApplyPreset(t *testing.T) {
	p := composer.DefaultParams()
	require.NoError(t, p.ApplyPreset("Quality"))
	assert.Equal(t, 256, p.PopulationSize)
	assert.Equal(t, 200, p.Generations)
	assert.ErrorIs(t, p.ApplyPreset("ludicrous"), composer.ErrInvalidParams)
}

func exampleSet() *composer.MelodySet {
	return &composer.MelodySet{
		ID:                "run-1",
		Scale:             "C Major",
		ScalePitchClasses: []int{0, 2, 4, 5, 7, 9, 11},
		NoteDuration:      0.5,
		Meter:             composer.Meter{Numerator: 4, Denominator: 4},
		Melodies: []composer.Melody{
			{60, composer.Sustain, composer.Rest, 62},
			{64, 65, composer.Sustain, composer.Sustain},
		},
		Fitness: []float64{12.5, 11},
	}
}

func TestMelodySetFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, composer.WriteMelodySet(&buf, exampleSet()))
	assert.Contains(t, buf.String(), "- [60, -2, -1, 62]")
	got, err := composer.ReadMelodySet(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, exampleSet(), got)

	_, err = composer.ReadMelodySet([]byte("noteDuration: 0.5\nmelodies:\n  - [60, -7]\n"))
	assert.ErrorIs(t, err, composer.ErrInvalidMelody)
}

func TestReadMelody(t *testing.T) {
	m, err := composer.ReadMelody([]byte("[60, -2, -1, 62]\n"))
	require.NoError(t, err)
	assert.Equal(t, composer.Melody{60, composer.Sustain, composer.Rest, 62}, m)
	_, err = composer.ReadMelody([]byte("[60, 128]"))
	assert.ErrorIs(t, err, composer.ErrInvalidMelody)
	_, err = composer.ReadMelody([]byte("{a: 1}"))
	assert.Error(t, err)
}

func TestWriteSMF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, composer.WriteSMF(&buf, exampleSet(), 120, 100))
	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, s.Tracks, 3)
	var ons [2][]uint8
	for i, tr := range s.Tracks[1:] {
		for _, ev := range tr {
			var ch, key, vel uint8
			if midi.Message(ev.Message).GetNoteOn(&ch, &key, &vel) {
				ons[i] = append(ons[i], key)
				assert.Equal(t, uint8(100), vel)
			}
		}
	}
	assert.Equal(t, []uint8{60, 62}, ons[0])
	assert.Equal(t, []uint8{64, 65}, ons[1])
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	r := composer.Report{Set: exampleSet(), Params: composer.DefaultParams()}
	require.NoError(t, r.Render(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Generated Melodies:"))
	assert.Contains(t, out, "Melody 1: 60 ~ - 62 (fitness 12.500)")
	assert.Contains(t, out, "Melody 2: 64 65 ~ ~")
	assert.Contains(t, out, "===Sent data:")
	assert.Contains(t, out, "scale pitch classes: 0 2 4 5 7 9 11")
	assert.Contains(t, out, "id: run-1")
}
