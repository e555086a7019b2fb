package plugin_test

import (
	"context"
	"testing"
	"time"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/plugin"
	"github.com/Pocwiardo/GeneticVSTComposer/sequencer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockContext struct {
	events   []sequencer.Trigger
	index    int
	finished []int
	timing   sequencer.Timing
}

func (c *blockContext) NextEvent(frame int) (sequencer.Trigger, bool) {
	if c.index >= len(c.events) {
		return sequencer.Trigger{}, false
	}
	c.index++
	return c.events[c.index-1], true
}

func (c *blockContext) FinishBlock(frame int) {
	c.finished = append(c.finished, frame)
	c.events = c.events[:0]
	c.index = 0
}

func (c *blockContext) Timing() (sequencer.Timing, bool) {
	return c.timing, c.timing.BPM > 0
}

func testParams() composer.Params {
	p := composer.DefaultParams()
	p.PopulationSize = 16
	p.Generations = 3
	p.Seed = 7
	p.Workers = 2
	return p
}

func receiveDone(t *testing.T, b *plugin.Broker) *plugin.GenerationDone {
	t.Helper()
	for {
		msg, ok := plugin.TimeoutReceive(b.ToModel, 10*time.Second)
		require.True(t, ok, "timed out waiting for the composer")
		switch d := msg.Data.(type) {
		case *plugin.GenerationDone:
			return d
		case *plugin.GenerationFailed:
			t.Fatalf("generation failed: %v", d.Err)
		}
	}
}

func TestGenerateThenPlay(t *testing.T) {
	broker := plugin.NewBroker()
	p := plugin.NewProcessor(broker, plugin.WithSequencerOptions(sequencer.WithVelocityJitter(0)))
	require.NoError(t, p.Generate(context.Background(), testParams(), nil))
	done := receiveDone(t, broker)
	p.Wait()
	assert.False(t, p.Generating())
	require.Same(t, done.Report.Set, p.Slot().Load())
	assert.Len(t, done.Report.Set.Melodies, composer.ResultSize)

	ctx := &blockContext{
		timing: sequencer.Timing{BPM: 120, Meter: composer.Meter{Numerator: 4, Denominator: 4}, SampleRate: 48000},
		events: []sequencer.Trigger{{Frame: 3, On: true, Note: 48, Velocity: 90}},
	}
	var ons int
	for i := 0; i < 200; i++ {
		for _, ev := range p.Process(512, ctx) {
			assert.GreaterOrEqual(t, ev.Frame, 0)
			assert.Less(t, ev.Frame, 512)
			if ev.Kind == sequencer.NoteOn {
				ons++
				assert.Equal(t, byte(90), ev.Velocity)
			}
		}
	}
	assert.Len(t, ctx.finished, 200)
	assert.Positive(t, ons)
}

func TestGenerateRejectsConcurrentRuns(t *testing.T) {
	broker := plugin.NewBroker()
	p := plugin.NewProcessor(broker)
	params := testParams()
	params.Generations = 200
	params.PopulationSize = 128
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Generate(ctx, params, nil))
	assert.ErrorIs(t, p.Generate(ctx, params, nil), plugin.ErrGenerationRunning)
	cancel()
	p.Wait()

	msg, ok := plugin.TimeoutReceive(broker.ToModel, time.Second)
	require.True(t, ok)
	failed, ok := msg.Data.(*plugin.GenerationFailed)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, context.Canceled)
	assert.Nil(t, p.Slot().Load(), "nothing is published after a canceled run")

	require.NoError(t, p.Generate(context.Background(), testParams(), nil))
	receiveDone(t, broker)
}

func TestGenerateValidatesParams(t *testing.T) {
	p := plugin.NewProcessor(plugin.NewBroker())
	params := testParams()
	params.Scale = "H Major"
	assert.Error(t, p.Generate(context.Background(), params, nil))
	params = testParams()
	params.PopulationSize = 0
	assert.ErrorIs(t, p.Generate(context.Background(), params, nil), composer.ErrInvalidParams)
	assert.False(t, p.Generating())
}

func TestMessages(t *testing.T) {
	broker := plugin.NewBroker()
	p := plugin.NewProcessor(broker, plugin.WithSequencerOptions(sequencer.WithVelocityJitter(0)))
	require.NoError(t, p.Publish(&composer.MelodySet{
		Scale:             "C Major",
		ScalePitchClasses: []int{0, 2, 4, 5, 7, 9, 11},
		NoteDuration:      1,
		Meter:             composer.Meter{Numerator: 4, Denominator: 4},
		Melodies:          []composer.Melody{{60}},
	}))
	ctx := &blockContext{
		timing: sequencer.Timing{BPM: 60, Meter: composer.Meter{Numerator: 4, Denominator: 4}, SampleRate: 100},
		events: []sequencer.Trigger{{Frame: 0, On: true, Note: 61}, {Frame: 0, On: true, Note: 48, Velocity: 100}},
	}
	require.True(t, plugin.TrySend(broker.ToProcessor, plugin.MsgToProcessor{Kind: plugin.MsgScaleSnap, Value: 1}))
	out := p.Process(100, ctx)
	require.NotEmpty(t, out)
	assert.Equal(t, byte(60), out[0].Note, "61 snaps to 60")

	require.True(t, plugin.TrySend(broker.ToProcessor, plugin.MsgToProcessor{Kind: plugin.MsgPanic}))
	out = p.Process(100, ctx)
	assert.Equal(t, []sequencer.Event{{Frame: 0, Kind: sequencer.AllNotesOff}}, out)

	var last plugin.MsgToModel
	for {
		msg, ok := plugin.TimeoutReceive(broker.ToModel, 10*time.Millisecond)
		if !ok {
			break
		}
		last = msg
	}
	assert.True(t, last.HasState)
	assert.False(t, last.State.Playing)
	assert.Zero(t, last.State.Transposition)
}

func TestPublishRejectsInvalidSets(t *testing.T) {
	p := plugin.NewProcessor(plugin.NewBroker())
	assert.ErrorIs(t, p.Publish(&composer.MelodySet{NoteDuration: 0.5, Melodies: []composer.Melody{{200}}}), composer.ErrInvalidMelody)
	assert.Nil(t, p.Slot().Load())
}

func TestTriggersAfterTheBlockAreNotConsumed(t *testing.T) {
	p := plugin.NewProcessor(plugin.NewBroker())
	ctx := &blockContext{events: []sequencer.Trigger{{Frame: 600, On: true, Note: 48}}}
	assert.Empty(t, p.Process(512, ctx))
	assert.Equal(t, []int{512}, ctx.finished)
}

func TestTriggerOverflowIsReported(t *testing.T) {
	broker := plugin.NewBroker()
	p := plugin.NewProcessor(broker)
	ctx := &blockContext{}
	for i := 0; i < 300; i++ {
		ctx.events = append(ctx.events, sequencer.Trigger{Frame: i, On: i%2 == 0, Note: 61})
	}
	p.Process(512, ctx)
	msg, ok := plugin.TimeoutReceive(broker.ToModel, time.Second)
	require.True(t, ok)
	assert.Equal(t, 300-256, msg.DroppedTriggers)

	p.Process(512, ctx)
	msg, ok = plugin.TimeoutReceive(broker.ToModel, time.Second)
	require.True(t, ok)
	assert.Zero(t, msg.DroppedTriggers)
}

type fakeDevice string

func (d fakeDevice) Open() error    { return nil }
func (d fakeDevice) Close() error   { return nil }
func (d fakeDevice) IsOpen() bool   { return false }
func (d fakeDevice) String() string { return string(d) }

func TestFindDevice(t *testing.T) {
	devices := func(yield func(plugin.MIDIDevice) bool) {
		for _, name := range []string{"Midi Through", "loopMIDI Port", "loopMIDI Port 2"} {
			if !yield(fakeDevice(name)) {
				return
			}
		}
	}
	d, err := plugin.FindDevice(devices, "loop")
	require.NoError(t, err)
	assert.Equal(t, "loopMIDI Port", d.String())
	d, err = plugin.FindDevice(devices, "")
	require.NoError(t, err)
	assert.Equal(t, "Midi Through", d.String())
	_, err = plugin.FindDevice(devices, "USB")
	assert.Error(t, err)

	null := &plugin.NullMIDIContext{}
	_, err = plugin.FindDevice(null.Inputs, "")
	assert.Error(t, err)
	assert.Equal(t, plugin.MIDISupportNotCompiled, null.Support())
	_, ok := null.Timing()
	assert.False(t, ok)
	null.SetTiming(sequencer.DefaultTiming)
	timing, ok := null.Timing()
	assert.True(t, ok)
	assert.Equal(t, sequencer.DefaultTiming, timing)
}
