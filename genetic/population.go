package genetic

import (
	"fmt"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
)

// InitialPopulation creates the first generation for the mode of the
// parameters.
func (c *Composer) InitialPopulation(template composer.Melody) ([]composer.Melody, error) {
	switch c.params.Mode {
	case composer.RhythmOnly:
		return c.populationFixed(), nil
	case composer.MelodyOverTemplate:
		return c.populationFromTemplate(template)
	}
	return c.population(), nil
}

// population draws free melodies.
func (c *Composer) population() []composer.Melody {
	ret := make([]composer.Melody, c.params.PopulationSize)
	for k := range ret {
		m := make(composer.Melody, c.length)
		for i := range m {
			m[i] = c.drawRhythmGene(i, c.drawPitch(-1))
		}
		ret[k] = m
	}
	return ret
}

// populationFixed draws rhythms played on the reference pitch.
func (c *Composer) populationFixed() []composer.Melody {
	ret := make([]composer.Melody, c.params.PopulationSize)
	for k := range ret {
		m := make(composer.Melody, c.length)
		for i := range m {
			m[i] = c.drawRhythmGene(i, c.reference)
		}
		ret[k] = m
	}
	return ret
}

// populationFromTemplate keeps the onsets, rests and sustains of the
// template and draws a pitch for every onset. A template of the wrong length
// is repeated or cut to fit.
func (c *Composer) populationFromTemplate(template composer.Melody) ([]composer.Melody, error) {
	if len(template) == 0 {
		return nil, ErrMissingTemplate
	}
	if err := template.Validate(); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	if len(template) != c.length {
		c.logger.Warn("template length differs from the expected length, tiling it",
			"template", len(template), "expected", c.length)
	}
	skeleton := make(composer.Melody, c.length)
	for i := range skeleton {
		skeleton[i] = template[i%len(template)]
	}
	ret := make([]composer.Melody, c.params.PopulationSize)
	for k := range ret {
		m := skeleton.Copy()
		for i, g := range m {
			if g.IsPitch() {
				m[i] = composer.Gene(c.drawPitch(-1))
			}
		}
		ret[k] = m
	}
	return ret, nil
}
