package composer

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type (
	// Mode selects what the genetic algorithm evolves.
	Mode int

	// NoteRange is the inclusive range of MIDI pitches a composer may use.
	NoteRange struct {
		Low  int `yaml:"low" validate:"gte=0,lte=127"`
		High int `yaml:"high" validate:"gtefield=Low,lte=127"`
	}

	// Params are the parameters of one composer run. They are read once when
	// the run starts and are not changed while it runs.
	Params struct {
		Mode         Mode      `yaml:"mode" validate:"gte=0,lte=2"`
		Scale        string    `yaml:"scale" validate:"required"`
		NoteRange    NoteRange `yaml:"noteRange"`
		Measures     int       `yaml:"measures" validate:"gte=1,lte=16"`
		Meter        Meter     `yaml:"meter"`
		NoteDuration float64   `yaml:"noteDuration" validate:"gt=0,lte=4"`

		// Affect knobs, all in [0, 1]. Diversity scales the penalty for
		// melodies similar to the rest of the population; the other knobs
		// move the targets of the fitness criteria.
		Diversity   float64 `yaml:"diversity" validate:"gte=0,lte=1"`
		Dynamics    float64 `yaml:"dynamics" validate:"gte=0,lte=1"`
		Arousal     float64 `yaml:"arousal" validate:"gte=0,lte=1"`
		Valence     float64 `yaml:"valence" validate:"gte=0,lte=1"`
		Jazziness   float64 `yaml:"jazziness" validate:"gte=0,lte=1"`
		Weirdness   float64 `yaml:"weirdness" validate:"gte=0,lte=1"`
		PauseAmount float64 `yaml:"pauseAmount" validate:"gte=0,lte=1"`

		PopulationSize int     `yaml:"populationSize" validate:"gt=0"`
		Generations    int     `yaml:"generations" validate:"gt=0"`
		CrossoverRate  float64 `yaml:"crossoverRate" validate:"gte=0,lte=1"`
		MutationRate   float64 `yaml:"mutationRate" validate:"gte=0,lte=1"`
		TournamentSize int     `yaml:"tournamentSize" validate:"gt=0"`

		// Seed seeds the random number generator of the run; 0 picks a seed
		// from the clock.
		Seed int64 `yaml:"seed,omitempty"`
		// Workers limits the number of goroutines evaluating fitness; 0 uses
		// GOMAXPROCS.
		Workers int `yaml:"workers,omitempty" validate:"gte=0"`
	}

	// Preset is a population size and generation count pair trading speed
	// for quality.
	Preset struct {
		Name           string
		PopulationSize int
		Generations    int
	}
)

const (
	FullMelody Mode = iota
	RhythmOnly
	MelodyOverTemplate
)

var modeNames = [...]string{"full", "rhythm", "template"}

var Presets = []Preset{
	{Name: "speed", PopulationSize: 64, Generations: 50},
	{Name: "balanced", PopulationSize: 128, Generations: 100},
	{Name: "quality", PopulationSize: 256, Generations: 200},
}

var ErrInvalidParams = errors.New("invalid parameters")

var validate = validator.New(validator.WithRequiredStructEnabled())

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts the mode names "full", "rhythm" and "template" or their
// numbers 0, 1 and 2.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if s == n || s == fmt.Sprint(i) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidParams, s)
}

func (m Mode) MarshalYAML() (any, error) {
	return m.String(), nil
}

func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	mode, err := ParseMode(value.Value)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// NoteRangeFromSliders maps the octave range controls to MIDI pitches. root
// is the pitch class of the scale root; the range spans from octave min up to
// the end of octave max.
func NoteRangeFromSliders(root, min, max int) NoteRange {
	return NoteRange{Low: root + min*12, High: root + max*12 + 12}
}

// DefaultParams returns the parameters the control panel starts with.
func DefaultParams() Params {
	return Params{
		Mode:           FullMelody,
		Scale:          "C Major",
		NoteRange:      NoteRangeFromSliders(0, 3, 5),
		Measures:       1,
		Meter:          Meter{Numerator: 4, Denominator: 4},
		NoteDuration:   0.5,
		Diversity:      0.8,
		Dynamics:       0.8,
		Arousal:        0.8,
		Valence:        0.8,
		PopulationSize: 128,
		Generations:    100,
		CrossoverRate:  0.9,
		MutationRate:   0.05,
		TournamentSize: 4,
	}
}

// Validate checks the ranges of all parameters. The returned error wraps
// ErrInvalidParams.
func (p *Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if p.ExpectedLength() < 1 {
		return fmt.Errorf("%w: %d measures of %v with note duration %v gives no notes", ErrInvalidParams, p.Measures, p.Meter, p.NoteDuration)
	}
	return nil
}

// ExpectedLength is the number of genes in each melody of the run.
func (p *Params) ExpectedLength() int {
	if p.NoteDuration <= 0 {
		return 0
	}
	beats := float64(p.Measures) * p.Meter.BeatsPerMeasure()
	return int(math.Floor(beats/p.NoteDuration + 1e-9))
}

// ApplyPreset sets the population size and generation count from the preset
// with the given name.
func (p *Params) ApplyPreset(name string) error {
	for _, preset := range Presets {
		if strings.EqualFold(preset.Name, name) {
			p.PopulationSize = preset.PopulationSize
			p.Generations = preset.Generations
			return nil
		}
	}
	return fmt.Errorf("%w: unknown preset %q", ErrInvalidParams, name)
}

// ReadParams parses YAML on top of DefaultParams, so a file only needs the
// fields it changes, and validates the result.
func ReadParams(data []byte) (Params, error) {
	p := DefaultParams()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("could not parse params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
