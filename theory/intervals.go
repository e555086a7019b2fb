package theory

import (
	"fmt"
	"strings"
)

// Measure returns the number of semitones from note1 up to note2, in
// [0, 11].
func Measure(note1, note2 string) (int, error) {
	if !IsValidNote(note1) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteFormat, note1)
	}
	if !IsValidNote(note2) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteFormat, note2)
	}
	return measure(note1, note2), nil
}

func measure(note1, note2 string) int {
	return mod12(alteredValue(note2) - alteredValue(note1))
}

func letterIndex(note string) int {
	for i, n := range baseScale {
		if n[0] == note[0] {
			return i
		}
	}
	return -1
}

// degree returns the letter n diatonic steps above the letter of note in C
// major.
func degree(note string, n int) string {
	return baseScale[(letterIndex(note)+n)%len(baseScale)]
}

// fitInterval alters the accidentals of target until it lies semitones
// above note, then normalizes the alteration into [-6, 6].
func fitInterval(note, target string, semitones int) string {
	cur := measure(note, target)
	for cur != semitones {
		if cur > semitones {
			target = Diminish(target)
		} else {
			target = Augment(target)
		}
		cur = measure(note, target)
	}
	val := accidentalValue(target)
	if val > 6 {
		val %= 12
		val = -12 + val
	} else if val < -6 {
		val %= -12
		val = 12 + val
	}
	result := target[:1]
	for ; val > 0; val-- {
		result = Augment(result)
	}
	for ; val < 0; val++ {
		result = Diminish(result)
	}
	return result
}

func above(note string, steps, semitones int) string {
	if !IsValidNote(note) {
		return note
	}
	return fitInterval(note, degree(note, steps), semitones)
}

// The interval constructors return the note the named interval above note.
// An invalid note is returned unchanged.

func MinorUnison(note string) string     { return Diminish(note) }
func AugmentedUnison(note string) string { return Augment(note) }
func MinorSecond(note string) string     { return above(note, 1, 1) }
func MajorSecond(note string) string     { return above(note, 1, 2) }
func MinorThird(note string) string      { return above(note, 2, 3) }
func MajorThird(note string) string      { return above(note, 2, 4) }
func MinorFourth(note string) string     { return above(note, 3, 4) }
func PerfectFourth(note string) string   { return above(note, 3, 5) }
func MinorFifth(note string) string      { return above(note, 4, 6) }
func PerfectFifth(note string) string    { return above(note, 4, 7) }
func MinorSixth(note string) string      { return above(note, 5, 8) }
func MajorSixth(note string) string      { return above(note, 5, 9) }
func MinorSeventh(note string) string    { return above(note, 6, 10) }
func MajorSeventh(note string) string    { return above(note, 6, 11) }

type intervalFamily struct {
	name      string
	short     string
	semitones int
}

// families are indexed by the number of steps along the circle of fifths
// between the two letters.
var families = [7]intervalFamily{
	{"unison", "1", 0},
	{"fifth", "5", 7},
	{"second", "2", 2},
	{"sixth", "6", 9},
	{"third", "3", 4},
	{"seventh", "7", 11},
	{"fourth", "4", 5},
}

func fifthIndex(note string) int {
	for i, f := range fifths {
		if f[0] == note[0] {
			return i
		}
	}
	return -1
}

// DetermineInterval names the interval from note1 up to note2, e.g. "minor
// third", or in shorthand "b3".
func DetermineInterval(note1, note2 string, shorthand bool) (string, error) {
	if !IsValidNote(note1) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNoteFormat, note1)
	}
	if !IsValidNote(note2) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNoteFormat, note2)
	}
	pick := func(long, short string) (string, error) {
		if shorthand {
			return short, nil
		}
		return long, nil
	}
	if note1[0] == note2[0] {
		x, y := accidentalValue(note1), accidentalValue(note2)
		switch {
		case x == y:
			return pick("major unison", "1")
		case x < y:
			return pick("augmented unison", "#1")
		case x-y == 1:
			return pick("minor unison", "b1")
		default:
			return pick("diminished unison", "bb1")
		}
	}
	steps := fifthIndex(note2) - fifthIndex(note1)
	if steps < 0 {
		steps += len(fifths)
	}
	fam := families[steps]
	half := measure(note1, note2)
	maj := fam.semitones
	switch {
	case maj == half:
		if fam.name == "fifth" || fam.name == "fourth" {
			return pick("perfect "+fam.name, fam.short)
		}
		return pick("major "+fam.name, fam.short)
	case maj+1 <= half:
		return pick("augmented "+fam.name, strings.Repeat("#", half-maj)+fam.short)
	case maj-1 == half:
		return pick("minor "+fam.name, "b"+fam.short)
	case maj-2 >= half:
		return pick("diminished "+fam.name, strings.Repeat("b", maj-half)+fam.short)
	}
	return "", fmt.Errorf("%w: %s to %s", ErrCannotDetermineInterval, note1, note2)
}
