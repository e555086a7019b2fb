package sequencer

import (
	"sync/atomic"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
)

// Slot hands finished melody sets from the composer to the audio thread.
// Publish swaps the pointer atomically; readers see either the old or the new
// set, never a partial one. Published sets must not be modified.
type Slot struct {
	p atomic.Pointer[composer.MelodySet]
}

func (s *Slot) Publish(set *composer.MelodySet) {
	s.p.Store(set)
}

// Load returns the most recently published set, or nil.
func (s *Slot) Load() *composer.MelodySet {
	return s.p.Load()
}
