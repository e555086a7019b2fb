package genetic

import (
	"math/rand"
	"sort"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
)

// TournamentSize is the default number of contestants of a tournament.
const TournamentSize = 4

// TournamentSelect draws size members of the scored population with
// replacement and returns the one with the highest normalized fitness.
func TournamentSelect(rng *rand.Rand, scored []ScoredMelody, size int) ScoredMelody {
	if size <= 0 {
		size = TournamentSize
	}
	best := scored[rng.Intn(len(scored))]
	for i := 1; i < size; i++ {
		candidate := scored[rng.Intn(len(scored))]
		if candidate.Normalized > best.Normalized {
			best = candidate
		}
	}
	return best
}

// Crossover returns two children of a and b. With probability rate the
// children exchange a random contiguous segment of genes; otherwise they are
// copies of their parents. Every gene of a child comes from the same
// position of one of the parents.
func Crossover(rng *rand.Rand, a, b composer.Melody, rate float64) (composer.Melody, composer.Melody) {
	x, y := a.Copy(), b.Copy()
	n := min(len(x), len(y))
	if n < 2 || rng.Float64() >= rate {
		return x, y
	}
	i, j := rng.Intn(n), rng.Intn(n)
	if i > j {
		i, j = j, i
	}
	for k := i; k <= j; k++ {
		x[k], y[k] = y[k], x[k]
	}
	return x, y
}

func (c *Composer) restProbability() float64 {
	return 0.05 + 0.4*c.params.PauseAmount
}

func (c *Composer) sustainProbability() float64 {
	return 0.1 + 0.2*c.params.Jazziness
}

// Mutate changes each gene of m in place with the mutation rate of the
// parameters. Pitches stay inside the note range; in rhythm mode every
// pitch stays the reference pitch and in template mode rests and sustains
// stay where the template put them.
func (c *Composer) Mutate(m composer.Melody) {
	for i := range m {
		if c.rng.Float64() < c.params.MutationRate {
			c.mutateGene(m, i)
		}
	}
}

func (c *Composer) mutateGene(m composer.Melody, i int) {
	switch c.params.Mode {
	case composer.MelodyOverTemplate:
		if m[i].IsPitch() {
			m[i] = composer.Gene(c.drawPitch(previousPitch(m, i)))
		}
	case composer.RhythmOnly:
		m[i] = c.drawRhythmGene(i, c.reference)
	default:
		m[i] = c.drawRhythmGene(i, c.drawPitch(previousPitch(m, i)))
	}
}

// drawRhythmGene picks a rest, a sustain or the given pitch. The first gene
// is never a sustain.
func (c *Composer) drawRhythmGene(i, pitch int) composer.Gene {
	r := c.rng.Float64()
	rest, sustain := c.restProbability(), c.sustainProbability()
	switch {
	case r < rest:
		return composer.Rest
	case i > 0 && r < rest+sustain:
		return composer.Sustain
	}
	return composer.Gene(pitch)
}

// drawPitch picks a pitch inside the note range. With no previous pitch the
// pitch is drawn uniformly, from the scale unless weirdness lets it stray;
// otherwise it moves from prev by a step whose width grows with weirdness.
func (c *Composer) drawPitch(prev int) int {
	weird := c.params.Weirdness
	if prev < 0 {
		if len(c.scaleNotes) > 0 && c.rng.Float64() >= 0.5*weird {
			return c.scaleNotes[c.rng.Intn(len(c.scaleNotes))]
		}
		return c.notes[c.rng.Intn(len(c.notes))]
	}
	width := 2 + int(weird*10)
	p := prev + c.rng.Intn(2*width+1) - width
	p = max(c.params.NoteRange.Low, min(c.params.NoteRange.High, p))
	if !c.scoring.scale.Contains(p) && c.rng.Float64() >= 0.5*weird {
		p = nearest(c.scaleNotes, p)
	}
	return p
}

func previousPitch(m composer.Melody, i int) int {
	for j := i - 1; j >= 0; j-- {
		if m[j].IsPitch() {
			return int(m[j])
		}
	}
	return -1
}

// nearest returns the element of the sorted slice closest to p, preferring
// the lower one on ties, or p if the slice is empty.
func nearest(sorted []int, p int) int {
	if len(sorted) == 0 {
		return p
	}
	i := sort.SearchInts(sorted, p)
	switch {
	case i == 0:
		return sorted[0]
	case i == len(sorted):
		return sorted[len(sorted)-1]
	case p-sorted[i-1] <= sorted[i]-p:
		return sorted[i-1]
	}
	return sorted[i]
}
