// Package genetic evolves melodies with a genetic algorithm. Individuals are
// composer.Melody values; their fitness is a weighted sum of Gaussian
// desirabilities of music theoretic sub-scores, minus a penalty for being
// similar to the rest of the population.
package genetic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"slices"
	"time"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/theory"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingTemplate = errors.New("template mode needs a template melody")
	ErrInvalidProfile  = errors.New("invalid fitness profile")
)

type (
	// Composer runs the genetic algorithm for one set of parameters. A
	// Composer is not safe for concurrent use; create one per run.
	Composer struct {
		params  composer.Params
		profile Profile
		rng     *rand.Rand
		seeded  bool
		logger  *slog.Logger
		theory  *theory.Theory

		scale      theory.Scale
		scoring    scoringContext
		notes      []int // every legal pitch, ascending
		scaleNotes []int // legal pitches in the scale, ascending
		reference  int   // the pitch of rhythm only melodies
		length     int

		coefficients [NumCriteria]Coefficient
		weights      [NumCriteria]float64
		totalWeight  float64

		diagnostics []GenerationDiagnostics
	}

	// Option configures a Composer.
	Option func(*Composer)

	// GenerationDiagnostics summarizes the scored population of one
	// generation.
	GenerationDiagnostics struct {
		Generation  int     `yaml:"generation"`
		BestFitness float64 `yaml:"best"`
		MeanFitness float64 `yaml:"mean"`
		MinFitness  float64 `yaml:"min"`
		Distinct    int     `yaml:"distinct"`
	}
)

// WithRand makes the composer draw all randomness from rng, overriding the
// seed of the parameters.
func WithRand(rng *rand.Rand) Option {
	return func(c *Composer) { c.rng = rng }
}

// WithProfile replaces the default fitness profile. The affect knobs of the
// parameters are applied on top of it.
func WithProfile(p Profile) Option {
	return func(c *Composer) { c.profile = p }
}

// WithTheory shares a theory cache between composers.
func WithTheory(t *theory.Theory) Option {
	return func(c *Composer) { c.theory = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// New validates the parameters and prepares a run.
func New(params composer.Params, opts ...Option) (*Composer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	c := &Composer{params: params, profile: DefaultProfile()}
	for _, opt := range opts {
		opt(c)
	}
	if c.theory == nil {
		c.theory = theory.New()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.seeded = c.rng != nil || params.Seed != 0
	if c.rng == nil {
		seed := params.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		c.rng = rand.New(rand.NewSource(seed))
	}
	if err := c.profile.Validate(); err != nil {
		return nil, err
	}
	scale, err := c.theory.ParseScale(params.Scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", composer.ErrInvalidParams, err)
	}
	c.scale = scale
	pcs := scale.PitchClasses()
	tonic, _ := theory.NoteToInt(scale.Tonic)
	scaleSet := theory.NewPitchSet(pcs)
	c.scoring = scoringContext{
		low:   params.NoteRange.Low,
		high:  params.NoteRange.High,
		scale: scaleSet,
		chord: theory.NewPitchSet(triad(int(tonic), scaleSet)),
		step:  params.NoteDuration,
	}
	if params.Meter.Denominator > 0 {
		c.scoring.beat = 4 / float64(params.Meter.Denominator)
	}
	for p := params.NoteRange.Low; p <= params.NoteRange.High; p++ {
		c.notes = append(c.notes, p)
		if c.scoring.scale.Contains(p) {
			c.scaleNotes = append(c.scaleNotes, p)
		}
	}
	c.reference = referencePitch(int(tonic), params.NoteRange)
	c.length = params.ExpectedLength()
	c.setCoefficients(c.profile)
	return c, nil
}

// triad returns the tonic, the third and the fifth of the scale, preferring
// the major third and the perfect fifth when the scale has them.
func triad(tonic int, scale theory.PitchSet) []int {
	ret := []int{tonic}
	for _, offsets := range [][]int{{4, 3}, {7, 6, 8}} {
		for _, o := range offsets {
			if scale.Contains(tonic + o) {
				ret = append(ret, (tonic+o)%12)
				break
			}
		}
	}
	return ret
}

// referencePitch is the tonic closest to the middle of the range, or the
// middle itself if the range holds no tonic.
func referencePitch(tonic int, r composer.NoteRange) int {
	mid := (r.Low + r.High) / 2
	best := -1
	for p := r.Low; p <= r.High; p++ {
		if p%12 != tonic {
			continue
		}
		if best < 0 || abs(p-mid) < abs(best-mid) {
			best = p
		}
	}
	if best < 0 {
		return mid
	}
	return best
}

func (c *Composer) setCoefficients(p Profile) {
	c.profile = p
	c.coefficients = p.Tune(c.params).coefficients()
	c.totalWeight = 0
	for i, co := range c.coefficients {
		c.weights[i] = float64(co.Weight)
		c.totalWeight += float64(co.Weight)
	}
}

// SetCoefficients overrides the means, sigmas and weights of the named
// criteria for the following runs.
func (c *Composer) SetCoefficients(mu, sigma map[string]float64, weights map[string]int) error {
	p, err := c.profile.WithCoefficients(mu, sigma, weights)
	if err != nil {
		return err
	}
	c.setCoefficients(p)
	return nil
}

// ExpectedLength is the number of genes of every melody of the run.
func (c *Composer) ExpectedLength() int {
	return c.length
}

func (c *Composer) Scale() theory.Scale {
	return c.scale
}

// Diagnostics returns the statistics of every generation of the last run.
func (c *Composer) Diagnostics() []GenerationDiagnostics {
	return slices.Clone(c.diagnostics)
}

// Run evolves the population for the configured number of generations and
// returns the best melodies. The template is only used in template mode. The
// context is checked between generations.
func (c *Composer) Run(ctx context.Context, template composer.Melody) (*composer.MelodySet, error) {
	start := time.Now()
	mode := c.params.Mode.String()
	set, err := c.run(ctx, template)
	runDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		runsTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}
	runsTotal.WithLabelValues(mode, "ok").Inc()
	c.logger.Info("composition finished",
		"id", set.ID,
		"mode", mode,
		"scale", set.Scale,
		"generations", c.params.Generations,
		"population", c.params.PopulationSize,
		"best", set.Fitness[0],
		"elapsed", time.Since(start))
	return set, nil
}

func (c *Composer) run(ctx context.Context, template composer.Melody) (*composer.MelodySet, error) {
	c.diagnostics = c.diagnostics[:0]
	population, err := c.InitialPopulation(template)
	if err != nil {
		return nil, err
	}
	for gen := 0; gen < c.params.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scored, err := c.Evaluate(ctx, population)
		if err != nil {
			return nil, err
		}
		c.record(gen, scored)
		population = c.nextGeneration(scored)
		generationsTotal.Inc()
	}
	scored, err := c.Evaluate(ctx, population)
	if err != nil {
		return nil, err
	}
	c.record(c.params.Generations, scored)
	return c.result(scored), nil
}

func (c *Composer) nextGeneration(scored []ScoredMelody) []composer.Melody {
	next := make([]composer.Melody, 0, len(scored))
	for len(next) < len(scored) {
		a := TournamentSelect(c.rng, scored, c.params.TournamentSize)
		b := TournamentSelect(c.rng, scored, c.params.TournamentSize)
		x, y := Crossover(c.rng, a.Melody, b.Melody, c.params.CrossoverRate)
		c.Mutate(x)
		next = append(next, x)
		if len(next) < len(scored) {
			c.Mutate(y)
			next = append(next, y)
		}
	}
	return next
}

// Evaluate scores every member of the population in parallel. The result is
// in population order.
func (c *Composer) Evaluate(ctx context.Context, population []composer.Melody) ([]ScoredMelody, error) {
	scored := make([]ScoredMelody, len(population))
	workers := c.params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(population) + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(population); lo += chunk {
		hi := min(lo+chunk, len(population))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				scored[i] = ScoredMelody{
					Melody:  population[i],
					Fitness: c.Fitness(population[i], population),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	normalize(scored)
	return scored, nil
}

// runID identifies a result set. Seeded runs draw it from their own random
// source so that they reproduce the same set.
func (c *Composer) runID() string {
	if c.seeded {
		if id, err := uuid.NewRandomFromReader(c.rng); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}

func (c *Composer) record(gen int, scored []ScoredMelody) {
	lo, hi := MinMaxFitness(scored)
	d := GenerationDiagnostics{
		Generation:  gen,
		BestFitness: hi,
		MeanFitness: AverageFitness(scored),
		MinFitness:  lo,
		Distinct:    len(distinct(scored, len(scored))),
	}
	c.diagnostics = append(c.diagnostics, d)
	bestFitness.Set(hi)
	c.logger.Debug("generation evaluated",
		"generation", gen,
		"best", d.BestFitness,
		"mean", d.MeanFitness,
		"min", d.MinFitness,
		"distinct", d.Distinct)
}

// result picks the best distinct melodies, in descending fitness, and pads
// them by repetition to composer.ResultSize.
func (c *Composer) result(scored []ScoredMelody) *composer.MelodySet {
	best := distinct(scored, composer.ResultSize)
	set := &composer.MelodySet{
		ID:                c.runID(),
		Scale:             c.scale.String(),
		ScalePitchClasses: c.scale.PitchClasses(),
		NoteDuration:      c.params.NoteDuration,
		Meter:             c.params.Meter,
		Melodies:          make([]composer.Melody, 0, composer.ResultSize),
		Fitness:           make([]float64, 0, composer.ResultSize),
	}
	for i := 0; len(best) > 0 && i < composer.ResultSize; i++ {
		s := best[i%len(best)]
		set.Melodies = append(set.Melodies, s.Melody.Copy())
		set.Fitness = append(set.Fitness, s.Fitness)
	}
	return set
}

// distinct returns up to n melodies with different genes, sorted by
// descending fitness. Ties keep population order.
func distinct(scored []ScoredMelody, n int) []ScoredMelody {
	sorted := slices.Clone(scored)
	slices.SortStableFunc(sorted, func(a, b ScoredMelody) int {
		switch {
		case a.Fitness > b.Fitness:
			return -1
		case a.Fitness < b.Fitness:
			return 1
		}
		return 0
	})
	ret := make([]ScoredMelody, 0, n)
	for _, s := range sorted {
		if len(ret) == n {
			break
		}
		if slices.ContainsFunc(ret, func(o ScoredMelody) bool { return o.Melody.Equal(s.Melody) }) {
			continue
		}
		ret = append(ret, s)
	}
	return ret
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
