package theory

import (
	"fmt"
	"strings"
	"sync"
)

type keyPair struct {
	major, minor string
}

// keys are ordered from seven flats to seven sharps, so the index minus 7 is
// the key signature.
var keys = [15]keyPair{
	{"Cb", "ab"}, {"Gb", "eb"}, {"Db", "bb"}, {"Ab", "f"}, {"Eb", "c"},
	{"Bb", "g"}, {"F", "d"}, {"C", "a"}, {"G", "e"}, {"D", "b"},
	{"A", "f#"}, {"E", "c#"}, {"B", "g#"}, {"F#", "d#"}, {"C#", "a#"},
}

var (
	fifths    = [7]string{"F", "C", "G", "D", "A", "E", "B"}
	baseScale = [7]string{"C", "D", "E", "F", "G", "A", "B"}
)

// Theory memoizes the notes of keys and the scales built from them. A Theory
// is safe for concurrent use. The zero value is not usable; use New.
type Theory struct {
	mu     sync.RWMutex
	notes  map[string][]string
	scales map[scaleKey]Scale
}

type scaleKey struct {
	tonic   string
	typ     ScaleType
	octaves int
}

func New() *Theory {
	return &Theory{
		notes:  map[string][]string{},
		scales: map[scaleKey]Scale{},
	}
}

// IsValidKey reports whether key is one of the 15 major or 15 minor keys.
func IsValidKey(key string) bool {
	_, err := KeySignature(key)
	return err == nil
}

// KeySignature returns the number of accidentals of a key, negative for
// flats and positive for sharps.
func KeySignature(key string) (int, error) {
	for i, k := range keys {
		if k.major == key || k.minor == key {
			return i - 7, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
}

// KeySignatureAccidentals lists the altered notes of a key in the order they
// appear in the key signature.
func KeySignatureAccidentals(key string) ([]string, error) {
	sig, err := KeySignature(key)
	if err != nil {
		return nil, err
	}
	var ret []string
	if sig < 0 {
		for i := 0; i < -sig; i++ {
			ret = append(ret, fifths[len(fifths)-1-i]+"b")
		}
	} else {
		for i := 0; i < sig; i++ {
			ret = append(ret, fifths[i]+"#")
		}
	}
	return ret, nil
}

// Notes returns the seven notes of a key, starting from its tonic. The
// returned slice is a copy and can be modified by the caller.
func (t *Theory) Notes(key string) ([]string, error) {
	t.mu.RLock()
	cached, ok := t.notes[key]
	t.mu.RUnlock()
	if ok {
		return append([]string(nil), cached...), nil
	}
	accidentals, err := KeySignatureAccidentals(key)
	if err != nil {
		return nil, err
	}
	tonic := strings.ToUpper(key[:1])
	start := 0
	for i, n := range baseScale {
		if n == tonic {
			start = i
			break
		}
	}
	notes := make([]string, 0, len(baseScale))
	for i := range baseScale {
		letter := baseScale[(start+i)%len(baseScale)]
		name := letter
		for _, acc := range accidentals {
			if acc[:1] == letter {
				name = acc
				break
			}
		}
		notes = append(notes, name)
	}
	t.mu.Lock()
	t.notes[key] = notes
	t.mu.Unlock()
	return append([]string(nil), notes...), nil
}
