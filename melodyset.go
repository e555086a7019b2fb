package composer

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ReadMelodySet parses a melody set from YAML and validates it.
func ReadMelodySet(data []byte) (*MelodySet, error) {
	var set MelodySet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("could not parse melody set: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// ReadMelody parses a single melody written as a YAML sequence of genes, such
// as a template for MelodyOverTemplate runs.
func ReadMelody(data []byte) (Melody, error) {
	var m Melody
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("could not parse melody: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteMelodySet writes the set as YAML, one melody per line.
func WriteMelodySet(w io.Writer, set *MelodySet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("could not encode melody set: %w", err)
	}
	return enc.Close()
}

// MarshalYAML writes a melody in flow style so that each melody of a set
// stays on one line.
func (m Melody) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, g := range m {
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(int(g))})
	}
	return n, nil
}
