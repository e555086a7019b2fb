package genetic_test

import (
	"testing"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/genetic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubScores(t *testing.T) {
	c, err := genetic.New(testParams())
	require.NoError(t, err)
	// C D E E G C', range 36..72
	m := composer.Melody{60, composer.Sustain, 62, composer.Rest, 64, 64, 67, 72}
	s := c.SubScores(m)
	assert.InDelta(t, 1.0/8, s[genetic.PauseProportion], 1e-9)
	assert.InDelta(t, 1.0, s[genetic.ScaleConformity], 1e-9)
	assert.InDelta(t, 5.0/6, s[genetic.NoteDiversity], 1e-9)
	assert.InDelta(t, 1.0, s[genetic.MelodicContour], 1e-9, "never descends")
	assert.InDelta(t, 0.0, s[genetic.DirectionalChanges], 1e-9)
	// C E E G C are chord tones, D is not
	assert.InDelta(t, 5.0/6, s[genetic.ChordConformity], 1e-9)
	// intervals 2 2 0 3 5
	assert.InDelta(t, 3.0/5, s[genetic.SmallIntervals], 1e-9)
	assert.InDelta(t, 1.0/5, s[genetic.RepeatedShortNotes], 1e-9)
	assert.InDelta(t, 12.0/5/12, s[genetic.AverageInterval], 1e-9)
	assert.InDelta(t, 12.0/36, s[genetic.NoteRangeUsage], 1e-9)
	assert.InDelta(t, 0.0, s[genetic.IntervalsLarge], 1e-9)
	// onsets at 0 2 4 5 6 7
	assert.InDelta(t, 2.0/6, s[genetic.OddIndexNotes], 1e-9)
	for i, v := range s {
		assert.GreaterOrEqual(t, v, 0.0, genetic.Criterion(i).String())
		assert.LessOrEqual(t, v, 1.0, genetic.Criterion(i).String())
	}
}

func TestOffBeatOnsetsFollowMeter(t *testing.T) {
	// onsets at 0 1 2 4 6 9
	m := composer.Melody{60, 62, 64, composer.Sustain, 65, composer.Rest, 67, composer.Sustain, composer.Rest, 69, composer.Sustain, composer.Sustain}
	for _, tc := range []struct {
		name         string
		meter        composer.Meter
		noteDuration float64
		want         float64
	}{
		{"4/4 eighths", composer.Meter{Numerator: 4, Denominator: 4}, 0.5, 2.0 / 6},
		{"3/4 sixteenths", composer.Meter{Numerator: 3, Denominator: 4}, 0.25, 4.0 / 6},
		{"6/8 eighths", composer.Meter{Numerator: 6, Denominator: 8}, 0.5, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams()
			p.Meter = tc.meter
			p.NoteDuration = tc.noteDuration
			c, err := genetic.New(p)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, c.SubScores(m)[genetic.OddIndexNotes], 1e-9)
		})
	}
}

func TestSubScoresOfSilence(t *testing.T) {
	c, err := genetic.New(testParams())
	require.NoError(t, err)
	s := c.SubScores(composer.Melody{composer.Rest, composer.Sustain, composer.Rest})
	assert.Equal(t, 1.0, s[genetic.PauseProportion])
	assert.Zero(t, s[genetic.ScaleConformity])
}

func TestScaleConformityRaisesFitness(t *testing.T) {
	p := testParams()
	p.Diversity = 0
	c, err := genetic.New(p)
	require.NoError(t, err)
	inScale := composer.Melody{60, 62, 64, 65, 67, 65, 64, 62}
	outOfScale := composer.Melody{61, 63, 66, 68, 70, 68, 66, 63}
	assert.Greater(t, c.Fitness(inScale, nil), c.Fitness(outOfScale, nil))
}

func TestSimilarityPenalty(t *testing.T) {
	p := testParams()
	p.Diversity = 1
	c, err := genetic.New(p)
	require.NoError(t, err)
	m := composer.Melody{60, 62, 64, 65, 67, 65, 64, 62}
	other := composer.Melody{60, 71, 69, 67, 65, 64, 62, 59}
	clones := []composer.Melody{m, m, m, m}
	mixed := []composer.Melody{m, other, other, other}

	assert.InDelta(t, 1.0, genetic.Similarity(m, m), 1e-12)
	assert.InDelta(t, 1.0/8, genetic.Similarity(m, other), 1e-12)
	assert.Greater(t, c.SimilarityPenalty(m, clones), c.SimilarityPenalty(m, mixed))
	assert.Greater(t, c.Fitness(m, mixed), c.Fitness(m, clones))

	p.Diversity = 0
	c, err = genetic.New(p)
	require.NoError(t, err)
	assert.Zero(t, c.SimilarityPenalty(m, clones))
	assert.Equal(t, c.Fitness(m, nil), c.Fitness(m, clones))
}

func TestProfile(t *testing.T) {
	def := genetic.DefaultProfile()
	require.NoError(t, def.Validate())
	assert.Len(t, def.Criteria, int(genetic.NumCriteria))

	p, err := genetic.LoadProfile([]byte("name: calm\ncriteria:\n  long_notes: {mu: 0.6, sigma: 0.1, weight: 4}\n"))
	require.NoError(t, err)
	assert.Equal(t, "calm", p.Name)
	assert.Equal(t, genetic.Coefficient{Mu: 0.6, Sigma: 0.1, Weight: 4}, p.Criteria["long_notes"])
	assert.Equal(t, def.Criteria["scale_conformity"], p.Criteria["scale_conformity"])

	_, err = genetic.LoadProfile([]byte("criteria:\n  long_notes: {mu: 0.6, sigma: 0, weight: 4}\n"))
	assert.ErrorIs(t, err, genetic.ErrInvalidProfile)
	_, err = genetic.LoadProfile([]byte("criteria:\n  catchiness: {mu: 0.6, sigma: 1, weight: 4}\n"))
	assert.ErrorIs(t, err, genetic.ErrInvalidProfile)
}

func TestTune(t *testing.T) {
	params := composer.DefaultParams()
	params.PauseAmount = 1
	params.Weirdness = 1
	tuned := genetic.DefaultProfile().Tune(params)
	assert.InDelta(t, 0.55, tuned.Criteria["pause_proportion"].Mu, 1e-9)
	assert.InDelta(t, 0.5, tuned.Criteria["scale_conformity"].Mu, 1e-9)
	assert.Equal(t, 1.0, genetic.DefaultProfile().Criteria["scale_conformity"].Mu, "tuning does not touch the source profile")
}

func TestSetCoefficients(t *testing.T) {
	p := testParams()
	p.Diversity = 0
	c, err := genetic.New(p)
	require.NoError(t, err)
	m := composer.Melody{60, 62, 64, 65, 67, 65, 64, 62}
	before := c.Fitness(m, nil)
	require.NoError(t, c.SetCoefficients(nil, nil, map[string]int{"scale_conformity": 0}))
	assert.Less(t, c.Fitness(m, nil), before)
	assert.ErrorIs(t, c.SetCoefficients(map[string]float64{"nope": 1}, nil, nil), genetic.ErrInvalidProfile)
}
