//go:build !cgo

package cmd

import (
	"github.com/Pocwiardo/GeneticVSTComposer/plugin"
	"github.com/Pocwiardo/GeneticVSTComposer/sequencer"
)

func NewMIDIContext(timing sequencer.Timing, channel uint8) plugin.MIDIContext {
	// with no cgo, we cannot use MIDI, so return a null context
	ctx := &plugin.NullMIDIContext{}
	ctx.SetTiming(timing)
	return ctx
}
