package genetic

import (
	"testing"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/theory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearest(t *testing.T) {
	sorted := []int{48, 50, 52, 53, 55}
	for p, want := range map[int]int{40: 48, 49: 48, 51: 50, 53: 53, 54: 53, 60: 55} {
		assert.Equal(t, want, nearest(sorted, p), "%d", p)
	}
	assert.Equal(t, 42, nearest(nil, 42))
}

func TestReferencePitch(t *testing.T) {
	assert.Equal(t, 48, referencePitch(0, composer.NoteRange{Low: 36, High: 72}))
	assert.Equal(t, 57, referencePitch(9, composer.NoteRange{Low: 50, High: 70}))
	assert.Equal(t, 61, referencePitch(0, composer.NoteRange{Low: 61, High: 62}))
}

func TestTriad(t *testing.T) {
	major := []int{0, 2, 4, 5, 7, 9, 11}
	minor := []int{9, 11, 0, 2, 4, 5, 7}
	locrian := []int{11, 0, 2, 4, 5, 7, 9}
	assert.Equal(t, []int{0, 4, 7}, triad(0, theory.NewPitchSet(major)))
	assert.Equal(t, []int{9, 0, 4}, triad(9, theory.NewPitchSet(minor)))
	assert.Equal(t, []int{11, 2, 5}, triad(11, theory.NewPitchSet(locrian)))
}

func TestFirstGeneMayRest(t *testing.T) {
	p := composer.DefaultParams()
	p.Seed = 3
	p.PauseAmount = 1
	for _, mode := range []composer.Mode{composer.FullMelody, composer.RhythmOnly} {
		p.Mode = mode
		c, err := New(p)
		require.NoError(t, err)
		rests := 0
		for range 200 {
			g := c.drawRhythmGene(0, c.reference)
			assert.NotEqual(t, composer.Sustain, g, "%v", mode)
			if g == composer.Rest {
				rests++
			}
		}
		assert.Positive(t, rests, "%v", mode)
	}
}
