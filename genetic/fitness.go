package genetic

import (
	"math"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/theory"
	"github.com/viterin/vek"
)

// ScoredMelody is a melody with its fitness. Normalized maps the fitness of
// the population linearly to [0, 1].
type ScoredMelody struct {
	Melody     composer.Melody
	Fitness    float64
	Normalized float64
}

// scoringContext is what the sub-scores need to know about the run.
type scoringContext struct {
	low, high int
	scale     theory.PitchSet
	chord     theory.PitchSet
	// step is the length of a gene and beat the length of a beat of the
	// meter, both in quarter notes.
	step, beat float64
}

// offBeat reports whether gene i starts between two beats of the meter.
func (s *scoringContext) offBeat(i int) bool {
	if s.step <= 0 || s.beat <= 0 {
		return i%2 == 1
	}
	pos := float64(i) * s.step / s.beat
	return math.Abs(pos-math.Round(pos)) > 1e-9
}

// features are the parts of a melody the sub-scores are computed from.
type features struct {
	length    int
	pitches   []float64
	onsets    []int
	intervals []float64
	durations []float64
	silent    int
}

func extract(m composer.Melody) features {
	f := features{length: len(m)}
	sounding := false
	for i, g := range m {
		switch {
		case g.IsPitch():
			f.pitches = append(f.pitches, float64(g))
			f.onsets = append(f.onsets, i)
			f.durations = append(f.durations, 1)
			sounding = true
		case g == composer.Sustain && sounding:
			f.durations[len(f.durations)-1]++
		default:
			sounding = false
			f.silent++
		}
	}
	for i := 1; i < len(f.pitches); i++ {
		f.intervals = append(f.intervals, f.pitches[i]-f.pitches[i-1])
	}
	return f
}

// SubScores computes every criterion of a melody, each in [0, 1].
func (c *Composer) SubScores(m composer.Melody) [NumCriteria]float64 {
	return c.scoring.subScores(extract(m))
}

func (s *scoringContext) subScores(f features) [NumCriteria]float64 {
	var r [NumCriteria]float64
	if f.length == 0 {
		return r
	}
	r[PauseProportion] = float64(f.silent) / float64(f.length)
	np := len(f.pitches)
	if np == 0 {
		return r
	}
	span := float64(s.high - s.low)
	lo, hi := vek.Min(f.pitches), vek.Max(f.pitches)
	mean := vek.Mean(f.pitches)
	if span > 0 {
		r[NoteRangeUsage] = clamp01((hi - lo) / span)
		r[AveragePitch] = clamp01((mean - float64(s.low)) / span)
	} else {
		r[AveragePitch] = 0.5
	}
	r[PitchVariation] = clamp01(stdDev(f.pitches) / 12)

	var inScale, inChord, odd int
	distinct := map[float64]struct{}{}
	for i, p := range f.pitches {
		if s.scale.Len() == 0 || s.scale.Contains(int(p)) {
			inScale++
		}
		if s.chord.Contains(int(p)) {
			inChord++
		}
		if s.offBeat(f.onsets[i]) {
			odd++
		}
		distinct[p] = struct{}{}
	}
	r[ScaleConformity] = float64(inScale) / float64(np)
	r[ChordConformity] = float64(inChord) / float64(np)
	r[OddIndexNotes] = float64(odd) / float64(np)
	r[NoteDiversity] = float64(len(distinct)) / float64(np)

	durDistinct := map[float64]struct{}{}
	logs := make([]float64, len(f.durations))
	var long int
	for i, d := range f.durations {
		durDistinct[d] = struct{}{}
		logs[i] = math.Log2(d)
		if d >= 4 {
			long++
		}
	}
	r[RhythmVariety] = float64(len(durDistinct)) / float64(len(f.durations))
	r[LongNotes] = float64(long) / float64(len(f.durations))
	if f.length > 1 {
		maxLog := math.Log2(float64(f.length))
		r[LogRhythmicValue] = clamp01(vek.Mean(logs) / maxLog)
		r[LogRhythmicSpread] = clamp01(stdDev(logs) / maxLog)
	}

	ni := len(f.intervals)
	if ni == 0 {
		return r
	}
	abs := vek.Abs(f.intervals)
	var large, dissonant, small, repeated, up, moves, changes int
	prevDir := 0
	intervalDistinct := map[float64]struct{}{}
	for i, iv := range f.intervals {
		a := abs[i]
		intervalDistinct[iv] = struct{}{}
		if a > 7 {
			large++
		}
		switch int(a) % 12 {
		case 1, 6, 10, 11:
			dissonant++
		}
		if a <= 2 {
			small++
		}
		if a == 0 && f.durations[i] == 1 {
			repeated++
		}
		dir := 0
		if iv > 0 {
			dir = 1
			up++
		} else if iv < 0 {
			dir = -1
		}
		if dir != 0 {
			if prevDir != 0 && dir != prevDir {
				changes++
			}
			prevDir = dir
			moves++
		}
	}
	r[IntervalsLarge] = float64(large) / float64(ni)
	r[IntervalsDissonant] = float64(dissonant) / float64(ni)
	r[SmallIntervals] = float64(small) / float64(ni)
	r[RepeatedShortNotes] = float64(repeated) / float64(ni)
	r[IntervalDiversity] = float64(len(intervalDistinct)) / float64(ni)
	r[AverageInterval] = clamp01(vek.Mean(abs) / 12)
	if moves > 0 {
		r[MelodicContour] = float64(up) / float64(moves)
	} else {
		r[MelodicContour] = 0.5
	}
	if moves > 1 {
		r[DirectionalChanges] = float64(changes) / float64(moves-1)
	}
	return r
}

// desirability maps a sub-score through the Gaussian curve of its
// coefficient.
func desirability(x float64, c Coefficient) float64 {
	d := x - c.Mu
	return math.Exp(-d * d / (2 * c.Sigma * c.Sigma))
}

// Similarity is the fraction of positions where the two melodies have the
// same gene.
func Similarity(a, b composer.Melody) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	same := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(max(len(a), len(b)))
}

// SimilarityPenalty is the amount subtracted from the fitness of m for being
// close to the population: diversity times the total criterion weight times
// the mean similarity of m to the members of the population.
func (c *Composer) SimilarityPenalty(m composer.Melody, population []composer.Melody) float64 {
	if len(population) == 0 || c.params.Diversity == 0 {
		return 0
	}
	var sum float64
	for _, other := range population {
		sum += Similarity(m, other)
	}
	return c.params.Diversity * c.totalWeight * sum / float64(len(population))
}

// Fitness scores a melody against the population: the weighted sum of the
// desirabilities of all sub-scores minus the similarity penalty.
func (c *Composer) Fitness(m composer.Melody, population []composer.Melody) float64 {
	scores := c.SubScores(m)
	var d [NumCriteria]float64
	for i := range scores {
		d[i] = desirability(scores[i], c.coefficients[i])
	}
	return vek.Dot(d[:], c.weights[:]) - c.SimilarityPenalty(m, population)
}

// AverageFitness returns the mean fitness of a scored population.
func AverageFitness(scored []ScoredMelody) float64 {
	if len(scored) == 0 {
		return 0
	}
	return vek.Mean(fitnessVector(scored))
}

// MinMaxFitness returns the lowest and the highest fitness of a scored
// population.
func MinMaxFitness(scored []ScoredMelody) (lo, hi float64) {
	if len(scored) == 0 {
		return 0, 0
	}
	v := fitnessVector(scored)
	return vek.Min(v), vek.Max(v)
}

func normalize(scored []ScoredMelody) {
	lo, hi := MinMaxFitness(scored)
	for i := range scored {
		if hi > lo {
			scored[i].Normalized = (scored[i].Fitness - lo) / (hi - lo)
		} else {
			scored[i].Normalized = 1
		}
	}
}

func fitnessVector(scored []ScoredMelody) []float64 {
	v := make([]float64, len(scored))
	for i, s := range scored {
		v[i] = s.Fitness
	}
	return v
}

func stdDev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	d := vek.SubNumber(x, vek.Mean(x))
	return math.Sqrt(vek.Dot(d, d) / float64(len(x)))
}

func clamp01(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}
