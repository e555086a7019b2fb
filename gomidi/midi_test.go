package gomidi

import (
	"testing"

	"github.com/Pocwiardo/GeneticVSTComposer/plugin"
	"github.com/Pocwiardo/GeneticVSTComposer/sequencer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

var _ plugin.MIDIContext = (*RTMIDIContext)(nil)

func newTestContext() *RTMIDIContext {
	// no driver; messages are fed directly
	return &RTMIDIContext{
		events: make(chan timestampedMsg, 16),
		timing: sequencer.Timing{BPM: 120, SampleRate: 1000},
	}
}

func TestNextEventTiming(t *testing.T) {
	c := newTestContext()
	c.HandleMessage(midi.NoteOn(0, 48, 100), 0)
	c.HandleMessage(midi.ControlChange(0, 7, 100), 5)
	c.HandleMessage(midi.NoteOff(0, 48), 10)

	ev, ok := c.NextEvent(0)
	require.True(t, ok)
	assert.Equal(t, sequencer.Trigger{Frame: 0, On: true, Note: 48, Velocity: 100}, ev)
	ev, ok = c.NextEvent(0)
	require.True(t, ok, "control changes are skipped")
	assert.Equal(t, 10, ev.Frame)
	assert.False(t, ev.On)
	_, ok = c.NextEvent(10)
	assert.False(t, ok)
	c.FinishBlock(512)
	assert.Empty(t, c.eventsBuf)

	c.HandleMessage(midi.NoteOn(0, 62, 90), 600)
	ev, ok = c.NextEvent(0)
	require.True(t, ok)
	assert.Equal(t, 88, ev.Frame)
}

func TestFutureEventsStayQueued(t *testing.T) {
	c := newTestContext()
	c.HandleMessage(midi.NoteOn(0, 48, 100), 0)
	c.HandleMessage(midi.NoteOn(0, 60, 100), 700)
	_, ok := c.NextEvent(0)
	require.True(t, ok)
	ev, ok := c.NextEvent(0)
	require.True(t, ok)
	require.GreaterOrEqual(t, ev.Frame, 512, "belongs to a later block")
	c.FinishBlock(512)
	require.Len(t, c.eventsBuf, 1)
	ev, ok = c.NextEvent(0)
	require.True(t, ok)
	assert.Equal(t, byte(60), ev.Note)
	assert.Less(t, ev.Frame, 512)
}

func TestNoDriver(t *testing.T) {
	c := newTestContext()
	assert.Equal(t, plugin.MIDISupportNoDriver, c.Support())
	for range c.Inputs {
		t.Fatal("no inputs without a driver")
	}
	_, err := plugin.FindDevice(c.Outputs, "")
	assert.Error(t, err)
	c.Close()
}
