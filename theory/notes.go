// Package theory implements the music theory the composer and the sequencer
// need: note names, key signatures, intervals, scales and snapping of MIDI
// pitches onto a scale.
//
// Note names are a letter A-G followed by any number of accidentals, '#' for
// sharp and 'b' for flat, e.g. "C", "F#", "Bb" or "Ebb". Keys are note names;
// an uppercase first letter denotes a major key, a lowercase one its relative
// minor.
package theory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidNoteFormat       = errors.New("invalid note format")
	ErrOutOfRange              = errors.New("pitch class out of range")
	ErrInvalidAccidental       = errors.New("accidental preference must be \"#\" or \"b\"")
	ErrInvalidKey              = errors.New("unrecognized key")
	ErrCannotDetermineInterval = errors.New("cannot determine interval")
	ErrUnknownScaleType        = errors.New("unknown scale type")
)

// PitchClass is a pitch modulo the octave, 0 = C ... 11 = B.
type PitchClass int

// Note is a note name placed in an octave. Octave 0 begins at MIDI pitch 0.
type Note struct {
	Name   string
	Octave int
}

var letterValues = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

var (
	sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames  = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
)

// IsValidNote reports whether note is a letter A-G followed only by
// accidentals.
func IsValidNote(note string) bool {
	if note == "" {
		return false
	}
	if _, ok := letterValues[note[0]]; !ok {
		return false
	}
	for i := 1; i < len(note); i++ {
		if note[i] != '#' && note[i] != 'b' {
			return false
		}
	}
	return true
}

// NoteToInt returns the pitch class of a note name. Enharmonic spellings map
// to the same class, e.g. "B#" and "C" both return 0.
func NoteToInt(note string) (PitchClass, error) {
	if !IsValidNote(note) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteFormat, note)
	}
	return PitchClass(mod12(alteredValue(note))), nil
}

// IntToNote returns the name of a pitch class using sharps ("#") or flats
// ("b").
func IntToNote(pc int, accidentals string) (string, error) {
	if pc < 0 || pc > 11 {
		return "", fmt.Errorf("%w: %d", ErrOutOfRange, pc)
	}
	switch accidentals {
	case "#":
		return sharpNames[pc], nil
	case "b":
		return flatNames[pc], nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidAccidental, accidentals)
}

// Augment raises a note by a semitone, removing a flat if there is one.
func Augment(note string) string {
	if strings.HasSuffix(note, "b") {
		return note[:len(note)-1]
	}
	return note + "#"
}

// Diminish lowers a note by a semitone, removing a sharp if there is one.
func Diminish(note string) string {
	if strings.HasSuffix(note, "#") {
		return note[:len(note)-1]
	}
	return note + "b"
}

// ReduceAccidentals respells a note with at most one accidental, preferring
// sharps when the note was raised and flats when it was lowered.
func ReduceAccidentals(note string) (string, error) {
	if !IsValidNote(note) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNoteFormat, note)
	}
	letter := letterValues[note[0]]
	val := alteredValue(note)
	if val >= letter {
		return sharpNames[mod12(val)], nil
	}
	return flatNames[mod12(val)], nil
}

// Int returns the MIDI pitch of the note.
func (n Note) Int() (int, error) {
	if !IsValidNote(n.Name) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteFormat, n.Name)
	}
	return n.Octave*12 + alteredValue(n.Name), nil
}

func (n Note) String() string {
	return fmt.Sprintf("%s-%d", n.Name, n.Octave)
}

// NoteFromInt converts a MIDI pitch to a note, spelled with the given
// accidental preference.
func NoteFromInt(pitch int, accidentals string) (Note, error) {
	if pitch < 0 {
		return Note{}, fmt.Errorf("%w: negative pitch %d", ErrOutOfRange, pitch)
	}
	name, err := IntToNote(pitch%12, accidentals)
	if err != nil {
		return Note{}, err
	}
	return Note{Name: name, Octave: pitch / 12}, nil
}

// alteredValue is the letter value plus accidentals, without wrapping. The
// note must be valid.
func alteredValue(note string) int {
	val := letterValues[note[0]]
	for i := 1; i < len(note); i++ {
		switch note[i] {
		case '#':
			val++
		case 'b':
			val--
		}
	}
	return val
}

func accidentalValue(note string) int {
	return alteredValue(note) - letterValues[note[0]]
}

func mod12(v int) int {
	return ((v % 12) + 12) % 12
}
