package theory

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// ScaleType identifies one of the supported scale constructions.
type ScaleType int

const (
	Diatonic ScaleType = iota
	Ionian
	Dorian
	Phrygian
	Lydian
	Mixolydian
	Aeolian
	Locrian
	Major
	HarmonicMajor
	NaturalMinor
	HarmonicMinor
	MelodicMinor
	Bachian
	MinorNeapolitan
	Chromatic
	WholeTone
	Octatonic
	NumScaleTypes
)

// Scale is a scale built on a tonic and spanning a number of octaves. Both
// sequences start and end with the tonic.
type Scale struct {
	Tonic      string
	Type       ScaleType
	Octaves    int
	Ascending  []string
	Descending []string
}

// scaleBuilder produces one octave of a scale without the closing tonic. A
// nil descending builder means the descending scale mirrors the ascending
// one.
type scaleBuilder struct {
	names      []string
	ascending  func(t *Theory, tonic string) ([]string, error)
	descending func(t *Theory, tonic string) ([]string, error)
}

var scaleBuilders = [NumScaleTypes]scaleBuilder{
	Diatonic:        {names: []string{"Diatonic"}, ascending: diatonic(3, 7)},
	Ionian:          {names: []string{"Ionian"}, ascending: diatonic(3, 7)},
	Dorian:          {names: []string{"Dorian"}, ascending: diatonic(2, 6)},
	Phrygian:        {names: []string{"Phrygian"}, ascending: diatonic(1, 5)},
	Lydian:          {names: []string{"Lydian"}, ascending: diatonic(4, 7)},
	Mixolydian:      {names: []string{"Mixolydian"}, ascending: diatonic(3, 6)},
	Aeolian:         {names: []string{"Aeolian"}, ascending: diatonic(2, 5)},
	Locrian:         {names: []string{"Locrian"}, ascending: diatonic(1, 4)},
	Major:           {names: []string{"Major"}, ascending: majorNotes},
	HarmonicMajor:   {names: []string{"Harmonic major", "Harmonic"}, ascending: harmonicMajor},
	NaturalMinor:    {names: []string{"Natural minor", "Minor"}, ascending: naturalMinor},
	HarmonicMinor:   {names: []string{"Harmonic minor"}, ascending: harmonicMinor},
	MelodicMinor:    {names: []string{"Melodic minor"}, ascending: melodicMinor, descending: naturalMinorDescending},
	Bachian:         {names: []string{"Bachian"}, ascending: melodicMinor},
	MinorNeapolitan: {names: []string{"Minor neapolitan"}, ascending: minorNeapolitan, descending: minorNeapolitanDescending},
	Chromatic:       {names: []string{"Chromatic"}, ascending: chromatic, descending: chromaticDescending},
	WholeTone:       {names: []string{"Whole tone"}, ascending: wholeTone},
	Octatonic:       {names: []string{"Octatonic"}, ascending: octatonic},
}

func (s ScaleType) String() string {
	if s < 0 || s >= NumScaleTypes {
		return fmt.Sprintf("ScaleType(%d)", int(s))
	}
	return scaleBuilders[s].names[0]
}

// ParseScaleType finds a scale type by its name, ignoring case.
func ParseScaleType(name string) (ScaleType, error) {
	folder := cases.Fold()
	folded := folder.String(strings.TrimSpace(name))
	for i, b := range scaleBuilders {
		for _, n := range b.names {
			if folder.String(n) == folded {
				return ScaleType(i), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScaleType, name)
}

// ParseScale builds a one octave scale from a name of the form "<Root>
// <ScaleTypeName>", e.g. "F# Harmonic minor".
func (t *Theory) ParseScale(name string) (Scale, error) {
	root, typeName, ok := strings.Cut(strings.TrimSpace(name), " ")
	if !ok {
		return Scale{}, fmt.Errorf("%w: scale name %q has no scale type", ErrUnknownScaleType, name)
	}
	typ, err := ParseScaleType(typeName)
	if err != nil {
		return Scale{}, err
	}
	return t.Scale(root, typ, 1)
}

// Scale builds the scale of the given type on tonic. The tonic must be a
// note name with an uppercase letter.
func (t *Theory) Scale(tonic string, typ ScaleType, octaves int) (Scale, error) {
	if typ < 0 || typ >= NumScaleTypes {
		return Scale{}, fmt.Errorf("%w: %d", ErrUnknownScaleType, int(typ))
	}
	if !IsValidNote(tonic) {
		return Scale{}, fmt.Errorf("%w: tonic %q", ErrInvalidNoteFormat, tonic)
	}
	if octaves < 1 {
		octaves = 1
	}
	key := scaleKey{tonic: tonic, typ: typ, octaves: octaves}
	t.mu.RLock()
	cached, ok := t.scales[key]
	t.mu.RUnlock()
	if ok {
		return cached, nil
	}
	b := scaleBuilders[typ]
	asc, err := b.ascending(t, tonic)
	if err != nil {
		return Scale{}, fmt.Errorf("building %s %s: %w", tonic, typ, err)
	}
	var desc []string
	if b.descending != nil {
		if desc, err = b.descending(t, tonic); err != nil {
			return Scale{}, fmt.Errorf("building %s %s: %w", tonic, typ, err)
		}
	} else {
		desc = append([]string{asc[0]}, asc[1:]...)
		slices.Reverse(desc[1:])
	}
	s := Scale{
		Tonic:      tonic,
		Type:       typ,
		Octaves:    octaves,
		Ascending:  replicate(asc, octaves),
		Descending: replicate(desc, octaves),
	}
	t.mu.Lock()
	t.scales[key] = s
	t.mu.Unlock()
	return s, nil
}

func (s Scale) String() string {
	return s.Tonic + " " + s.Type.String()
}

// PitchClasses returns the distinct pitch classes of the scale in ascending
// order.
func (s Scale) PitchClasses() []int {
	var ret []int
	for _, seq := range [][]string{s.Ascending, s.Descending} {
		for _, n := range seq {
			pc := mod12(alteredValue(n))
			if !slices.Contains(ret, pc) {
				ret = append(ret, pc)
			}
		}
	}
	slices.Sort(ret)
	return ret
}

func replicate(octave []string, n int) []string {
	ret := make([]string, 0, len(octave)*n+1)
	for i := 0; i < n; i++ {
		ret = append(ret, octave...)
	}
	return append(ret, octave[0])
}

func diatonic(semitones ...int) func(*Theory, string) ([]string, error) {
	return func(_ *Theory, tonic string) ([]string, error) {
		notes := []string{tonic}
		for n := 1; n < 7; n++ {
			last := notes[len(notes)-1]
			if slices.Contains(semitones, n) {
				notes = append(notes, MinorSecond(last))
			} else {
				notes = append(notes, MajorSecond(last))
			}
		}
		return notes, nil
	}
}

func majorNotes(t *Theory, tonic string) ([]string, error) {
	return t.Notes(tonic)
}

func harmonicMajor(t *Theory, tonic string) ([]string, error) {
	notes, err := t.Notes(tonic)
	if err != nil {
		return nil, err
	}
	notes[5] = Diminish(notes[5])
	return notes, nil
}

func naturalMinor(t *Theory, tonic string) ([]string, error) {
	return t.Notes(strings.ToLower(tonic[:1]) + tonic[1:])
}

func harmonicMinor(t *Theory, tonic string) ([]string, error) {
	notes, err := naturalMinor(t, tonic)
	if err != nil {
		return nil, err
	}
	notes[6] = Augment(notes[6])
	return notes, nil
}

func melodicMinor(t *Theory, tonic string) ([]string, error) {
	notes, err := naturalMinor(t, tonic)
	if err != nil {
		return nil, err
	}
	notes[5] = Augment(notes[5])
	notes[6] = Augment(notes[6])
	return notes, nil
}

func naturalMinorDescending(t *Theory, tonic string) ([]string, error) {
	notes, err := naturalMinor(t, tonic)
	if err != nil {
		return nil, err
	}
	slices.Reverse(notes[1:])
	return notes, nil
}

func minorNeapolitan(t *Theory, tonic string) ([]string, error) {
	notes, err := harmonicMinor(t, tonic)
	if err != nil {
		return nil, err
	}
	notes[1] = Diminish(notes[1])
	return notes, nil
}

func minorNeapolitanDescending(t *Theory, tonic string) ([]string, error) {
	notes, err := naturalMinorDescending(t, tonic)
	if err != nil {
		return nil, err
	}
	notes[6] = Diminish(notes[6])
	return notes, nil
}

func chromatic(t *Theory, tonic string) ([]string, error) {
	keyNotes, err := t.Notes(tonic)
	if err != nil {
		return nil, err
	}
	notes := []string{keyNotes[0]}
	for _, next := range append(keyNotes[1:], keyNotes[0]) {
		last := notes[len(notes)-1]
		if name, _ := DetermineInterval(last, next, false); name == "major second" {
			notes = append(notes, Augment(last))
		}
		notes = append(notes, next)
	}
	return notes[:len(notes)-1], nil
}

func chromaticDescending(t *Theory, tonic string) ([]string, error) {
	keyNotes, err := t.Notes(tonic)
	if err != nil {
		return nil, err
	}
	notes := []string{keyNotes[0]}
	rev := slices.Clone(keyNotes)
	slices.Reverse(rev)
	for _, next := range rev {
		last := notes[len(notes)-1]
		if name, _ := DetermineInterval(next, last, false); name == "major second" {
			reduced, err := ReduceAccidentals(Diminish(last))
			if err != nil {
				return nil, err
			}
			notes = append(notes, reduced)
		}
		notes = append(notes, next)
	}
	return notes[:len(notes)-1], nil
}

func wholeTone(_ *Theory, tonic string) ([]string, error) {
	notes := []string{tonic}
	for i := 0; i < 5; i++ {
		notes = append(notes, MajorSecond(notes[len(notes)-1]))
	}
	return notes, nil
}

func octatonic(_ *Theory, tonic string) ([]string, error) {
	notes := []string{tonic}
	for i := 0; i < 3; i++ {
		back := notes[len(notes)-1]
		notes = append(notes, MajorSecond(back), MinorThird(back))
	}
	notes = append(notes, MajorSeventh(tonic))
	notes[len(notes)-2] = MajorSixth(tonic)
	return notes, nil
}
