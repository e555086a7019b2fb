package genetic

import (
	_ "embed"
	"fmt"
	"math"
	"sort"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"gopkg.in/yaml.v3"
)

type (
	// Criterion identifies one of the sub-scores of the fitness function.
	Criterion int

	// Coefficient shapes the contribution of one criterion: the sub-score x
	// is mapped to the desirability exp(-(x-Mu)^2 / (2 Sigma^2)), which is
	// then multiplied by Weight.
	Coefficient struct {
		Mu     float64 `yaml:"mu"`
		Sigma  float64 `yaml:"sigma"`
		Weight int     `yaml:"weight"`
	}

	// Profile is a named set of coefficients, one per criterion. Every
	// sub-score is normalized to [0, 1], so Mu is a target proportion.
	Profile struct {
		Name     string                 `yaml:"name"`
		Criteria map[string]Coefficient `yaml:"criteria"`
	}
)

const (
	IntervalsLarge Criterion = iota
	IntervalsDissonant
	DirectionalChanges
	MelodicContour
	NoteRangeUsage
	AveragePitch
	PauseProportion
	ScaleConformity
	ChordConformity
	PitchVariation
	// OddIndexNotes is the share of onsets falling between the beats of the
	// meter.
	OddIndexNotes
	NoteDiversity
	IntervalDiversity
	RhythmVariety
	LogRhythmicValue
	LogRhythmicSpread
	LongNotes
	AverageInterval
	SmallIntervals
	RepeatedShortNotes
	NumCriteria
)

var criterionNames = [NumCriteria]string{
	"intervals_large",
	"intervals_dissonant",
	"directional_changes",
	"melodic_contour",
	"note_range",
	"average_pitch",
	"pause_proportion",
	"scale_conformity",
	"chord_conformity",
	"pitch_variation",
	"odd_index_notes",
	"note_diversity",
	"interval_diversity",
	"rhythm_variety",
	"log_rhythmic_value",
	"log_rhythmic_spread",
	"long_notes",
	"average_interval",
	"small_intervals",
	"repeated_short_notes",
}

//go:embed default_profile.yml
var defaultProfileYAML []byte

func (c Criterion) String() string {
	if c < 0 || c >= NumCriteria {
		return fmt.Sprintf("Criterion(%d)", int(c))
	}
	return criterionNames[c]
}

// ParseCriterion finds a criterion by its profile name.
func ParseCriterion(name string) (Criterion, error) {
	for i, n := range criterionNames {
		if n == name {
			return Criterion(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown fitness criterion %q", ErrInvalidProfile, name)
}

// DefaultProfile returns the built-in coefficients.
func DefaultProfile() Profile {
	p, err := parseProfile(defaultProfileYAML)
	if err != nil {
		panic(fmt.Sprintf("default fitness profile is broken: %v", err))
	}
	return p
}

// LoadProfile parses a profile from YAML. Criteria missing from the file
// keep their default coefficients.
func LoadProfile(data []byte) (Profile, error) {
	p, err := parseProfile(data)
	if err != nil {
		return Profile{}, err
	}
	def := DefaultProfile()
	for name, c := range def.Criteria {
		if _, ok := p.Criteria[name]; !ok {
			p.Criteria[name] = c
		}
	}
	if p.Name == "" {
		p.Name = def.Name
	}
	return p, nil
}

func parseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if p.Criteria == nil {
		p.Criteria = map[string]Coefficient{}
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks that every criterion is known, sigmas are positive and
// weights are not negative.
func (p Profile) Validate() error {
	names := make([]string, 0, len(p.Criteria))
	for name := range p.Criteria {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := ParseCriterion(name); err != nil {
			return err
		}
		c := p.Criteria[name]
		if c.Sigma <= 0 {
			return fmt.Errorf("%w: %s: sigma must be > 0, got %v", ErrInvalidProfile, name, c.Sigma)
		}
		if c.Weight < 0 {
			return fmt.Errorf("%w: %s: weight must be >= 0, got %v", ErrInvalidProfile, name, c.Weight)
		}
	}
	return nil
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	ret := Profile{Name: p.Name, Criteria: make(map[string]Coefficient, len(p.Criteria))}
	for k, v := range p.Criteria {
		ret.Criteria[k] = v
	}
	return ret
}

// WithCoefficients returns a copy of the profile with the given means,
// sigmas and weights replaced. Keys are criterion names.
func (p Profile) WithCoefficients(mu, sigma map[string]float64, weights map[string]int) (Profile, error) {
	ret := p.Clone()
	for name, v := range mu {
		if _, err := ParseCriterion(name); err != nil {
			return Profile{}, err
		}
		c := ret.Criteria[name]
		c.Mu = v
		ret.Criteria[name] = c
	}
	for name, v := range sigma {
		if _, err := ParseCriterion(name); err != nil {
			return Profile{}, err
		}
		c := ret.Criteria[name]
		c.Sigma = v
		ret.Criteria[name] = c
	}
	for name, v := range weights {
		if _, err := ParseCriterion(name); err != nil {
			return Profile{}, err
		}
		c := ret.Criteria[name]
		c.Weight = v
		ret.Criteria[name] = c
	}
	if err := ret.Validate(); err != nil {
		return Profile{}, err
	}
	return ret, nil
}

// Tune moves the targets of the criteria according to the affect knobs of
// the parameters. Diversity is not applied here; it scales the similarity
// penalty instead.
func (p Profile) Tune(params composer.Params) Profile {
	ret := p.Clone()
	shift := func(c Criterion, delta float64) {
		name := c.String()
		co, ok := ret.Criteria[name]
		if !ok {
			return
		}
		co.Mu = math.Min(1, math.Max(0, co.Mu+delta))
		ret.Criteria[name] = co
	}
	arousal := params.Arousal - 0.5
	valence := params.Valence - 0.5
	dynamics := params.Dynamics - 0.5

	shift(AverageInterval, 0.15*arousal)
	shift(DirectionalChanges, 0.2*arousal)
	shift(LongNotes, -0.2*arousal)
	shift(LogRhythmicValue, -0.2*arousal)

	shift(MelodicContour, 0.3*valence)
	shift(ChordConformity, 0.3*valence)
	shift(IntervalsDissonant, -0.2*valence+0.3*params.Jazziness)

	shift(OddIndexNotes, 0.4*params.Jazziness)
	shift(RhythmVariety, 0.2*params.Jazziness)

	shift(ScaleConformity, -0.5*params.Weirdness)
	shift(IntervalsLarge, 0.3*params.Weirdness)
	shift(IntervalDiversity, 0.3*params.Weirdness)

	shift(PitchVariation, 0.2*dynamics)
	shift(NoteRangeUsage, 0.3*dynamics)
	shift(LogRhythmicSpread, 0.2*dynamics)

	if co, ok := ret.Criteria[PauseProportion.String()]; ok {
		co.Mu = 0.05 + 0.5*params.PauseAmount
		ret.Criteria[PauseProportion.String()] = co
	}
	return ret
}

// coefficients flattens the profile into an array indexed by Criterion.
// Criteria missing from the profile get zero weight.
func (p Profile) coefficients() [NumCriteria]Coefficient {
	var ret [NumCriteria]Coefficient
	for i := range ret {
		c, ok := p.Criteria[criterionNames[i]]
		if !ok {
			c = Coefficient{Sigma: 1}
		}
		ret[i] = c
	}
	return ret
}
