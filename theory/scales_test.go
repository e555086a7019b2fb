package theory_test

import (
	"slices"
	"testing"

	"github.com/Pocwiardo/GeneticVSTComposer/theory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScales(t *testing.T) {
	th := theory.New()
	for _, tt := range []struct {
		tonic string
		typ   theory.ScaleType
		asc   []string
		desc  []string
	}{
		{"C", theory.Ionian, []string{"C", "D", "E", "F", "G", "A", "B", "C"}, nil},
		{"D", theory.Dorian, []string{"D", "E", "F", "G", "A", "B", "C", "D"}, nil},
		{"E", theory.Phrygian, []string{"E", "F", "G", "A", "B", "C", "D", "E"}, nil},
		{"F", theory.Lydian, []string{"F", "G", "A", "B", "C", "D", "E", "F"}, nil},
		{"G", theory.Mixolydian, []string{"G", "A", "B", "C", "D", "E", "F", "G"}, nil},
		{"A", theory.Aeolian, []string{"A", "B", "C", "D", "E", "F", "G", "A"}, nil},
		{"B", theory.Locrian, []string{"B", "C", "D", "E", "F", "G", "A", "B"}, nil},
		{"D", theory.Major, []string{"D", "E", "F#", "G", "A", "B", "C#", "D"}, nil},
		{"C", theory.HarmonicMajor, []string{"C", "D", "E", "F", "G", "Ab", "B", "C"}, nil},
		{"A", theory.NaturalMinor, []string{"A", "B", "C", "D", "E", "F", "G", "A"}, nil},
		{"A", theory.HarmonicMinor, []string{"A", "B", "C", "D", "E", "F", "G#", "A"}, nil},
		{"A", theory.MelodicMinor,
			[]string{"A", "B", "C", "D", "E", "F#", "G#", "A"},
			[]string{"A", "G", "F", "E", "D", "C", "B", "A"}},
		{"A", theory.Bachian,
			[]string{"A", "B", "C", "D", "E", "F#", "G#", "A"},
			[]string{"A", "G#", "F#", "E", "D", "C", "B", "A"}},
		{"A", theory.MinorNeapolitan,
			[]string{"A", "Bb", "C", "D", "E", "F", "G#", "A"},
			[]string{"A", "G", "F", "E", "D", "C", "Bb", "A"}},
		{"C", theory.Chromatic,
			[]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B", "C"},
			[]string{"C", "B", "Bb", "A", "Ab", "G", "Gb", "F", "E", "Eb", "D", "Db", "C"}},
		{"C", theory.WholeTone, []string{"C", "D", "E", "F#", "G#", "A#", "C"}, nil},
		{"C", theory.Octatonic, []string{"C", "D", "Eb", "F", "Gb", "Ab", "A", "B", "C"}, nil},
	} {
		t.Run(tt.tonic+" "+tt.typ.String(), func(t *testing.T) {
			s, err := th.Scale(tt.tonic, tt.typ, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.asc, s.Ascending)
			want := tt.desc
			if want == nil {
				want = slices.Clone(tt.asc)
				slices.Reverse(want)
			}
			assert.Equal(t, want, s.Descending)
		})
	}
}

func TestScaleOctaves(t *testing.T) {
	th := theory.New()
	s, err := th.Scale("C", theory.Major, 2)
	require.NoError(t, err)
	assert.Len(t, s.Ascending, 15)
	assert.Equal(t, "C", s.Ascending[0])
	assert.Equal(t, "C", s.Ascending[7])
	assert.Equal(t, "C", s.Ascending[14])
	rev := slices.Clone(s.Ascending)
	slices.Reverse(rev)
	assert.Equal(t, rev, s.Descending)
}

func TestScaleErrors(t *testing.T) {
	th := theory.New()
	_, err := th.Scale("c", theory.Major, 1)
	assert.ErrorIs(t, err, theory.ErrInvalidNoteFormat)
	_, err = th.Scale("Gb", theory.NaturalMinor, 1)
	assert.ErrorIs(t, err, theory.ErrInvalidKey)
	_, err = th.Scale("C", theory.NumScaleTypes, 1)
	assert.ErrorIs(t, err, theory.ErrUnknownScaleType)
	_, err = th.ParseScale("C Bebop")
	assert.ErrorIs(t, err, theory.ErrUnknownScaleType)
	_, err = th.ParseScale("C")
	assert.ErrorIs(t, err, theory.ErrUnknownScaleType)
}

func TestParseScale(t *testing.T) {
	th := theory.New()
	s, err := th.ParseScale("F# harmonic MINOR")
	require.NoError(t, err)
	assert.Equal(t, theory.HarmonicMinor, s.Type)
	assert.Equal(t, "F#", s.Tonic)
	assert.Equal(t, []int{1, 2, 5, 6, 8, 9, 11}, s.PitchClasses())

	s, err = th.ParseScale("C Harmonic")
	require.NoError(t, err)
	assert.Equal(t, theory.HarmonicMajor, s.Type)

	s, err = th.ParseScale("A Melodic minor")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4, 5, 6, 7, 8, 9, 11}, s.PitchClasses())
}

func TestSnapToScale(t *testing.T) {
	cMajor := []int{0, 2, 4, 5, 7, 9, 11}
	for _, tt := range []struct {
		target int
		pcs    []int
		want   int
	}{
		{61, cMajor, 60},
		{60, cMajor, 60},
		{66, cMajor, 65},
		{70, cMajor, 69},
		{71, cMajor, 71},
		{48, []int{2, 7}, 50},
		{58, []int{2, 7}, 55},
		{59, []int{2, 7}, 62},
		{64, nil, 64},
		{61, []int{11, 0, 0, 12}, 60},
	} {
		assert.Equal(t, tt.want, theory.SnapToScale(tt.target, tt.pcs), "%d %v", tt.target, tt.pcs)
	}
}

func TestSnapLandsInSet(t *testing.T) {
	set := theory.NewPitchSet([]int{1, 3, 6, 8, 10})
	for p := 0; p < 128; p++ {
		got := set.Snap(p)
		assert.True(t, set.Contains(got), "%d -> %d", p, got)
		assert.LessOrEqual(t, got-p, 6)
		assert.GreaterOrEqual(t, got-p, -6)
	}
	assert.Equal(t, 5, set.Len())
}

func TestSnapAllocations(t *testing.T) {
	set := theory.NewPitchSet([]int{0, 2, 4, 5, 7, 9, 11})
	allocs := testing.AllocsPerRun(100, func() {
		set.Snap(61)
	})
	assert.Zero(t, allocs)
}
