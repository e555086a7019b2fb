package theory

// PitchSet is a sorted set of pitch classes prepared for snapping. Snap does
// not allocate, so a PitchSet can be used on the audio thread once built.
type PitchSet struct {
	n       int
	classes [12]int
}

// NewPitchSet builds a PitchSet from pitch classes. Values are reduced modulo
// 12 and duplicates are removed.
func NewPitchSet(pcs []int) PitchSet {
	var seen [12]bool
	for _, pc := range pcs {
		seen[mod12(pc)] = true
	}
	var s PitchSet
	for pc, ok := range seen {
		if ok {
			s.classes[s.n] = pc
			s.n++
		}
	}
	return s
}

// Len returns the number of pitch classes in the set.
func (s PitchSet) Len() int {
	return s.n
}

// Contains reports whether the pitch class of pitch is in the set.
func (s PitchSet) Contains(pitch int) bool {
	pc := mod12(pitch)
	for _, c := range s.classes[:s.n] {
		if c == pc {
			return true
		}
	}
	return false
}

// Snap moves pitch to the nearest pitch whose class is in the set. A pitch
// exactly between two members goes to the lower one. An empty set returns
// pitch unchanged.
func (s PitchSet) Snap(pitch int) int {
	if s.n == 0 {
		return pitch
	}
	pc := mod12(pitch)
	lo, hi := s.classes[s.n-1]-12, s.classes[0]
	for i := 0; i < s.n; i++ {
		if s.classes[i] > pc {
			break
		}
		lo = s.classes[i]
		if i+1 < s.n {
			hi = s.classes[i+1]
		} else {
			hi = s.classes[0] + 12
		}
	}
	if pc-lo <= hi-pc {
		return pitch + lo - pc
	}
	return pitch + hi - pc
}

// SnapToScale moves target to the nearest pitch whose class is one of pcs.
func SnapToScale(target int, pcs []int) int {
	return NewPitchSet(pcs).Snap(target)
}
