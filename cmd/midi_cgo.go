//go:build cgo

package cmd

import (
	"github.com/Pocwiardo/GeneticVSTComposer/gomidi"
	"github.com/Pocwiardo/GeneticVSTComposer/plugin"
	"github.com/Pocwiardo/GeneticVSTComposer/sequencer"
)

func NewMIDIContext(timing sequencer.Timing, channel uint8) plugin.MIDIContext {
	return gomidi.NewContext(timing, channel)
}
