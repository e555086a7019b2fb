// Package plugin connects the composer and the sequencer to a host. The
// Processor runs on the audio thread; composer runs happen in a background
// goroutine and reach the audio thread only through an atomic slot swap.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/genetic"
	"github.com/Pocwiardo/GeneticVSTComposer/sequencer"
)

type (
	// Processor is the audio thread side of the plugin. It is controlled by
	// messages from the broker and by trigger events from the context,
	// typically from the host or a MIDI input.
	Processor struct {
		broker *Broker
		slot   sequencer.Slot
		seq    *sequencer.Sequencer
		logger *slog.Logger

		triggers []sequencer.Trigger
		events   []sequencer.Event

		seqOpts      []sequencer.Option
		composerOpts []genetic.Option

		running atomic.Bool
		wg      sync.WaitGroup
	}

	// ProcessContext is given to the processor for each block. NextEvent
	// returns the incoming note events in time order, FinishBlock is called
	// once the block is done and Timing reports the host transport, if known.
	ProcessContext interface {
		NextEvent(frame int) (t sequencer.Trigger, ok bool)
		FinishBlock(frame int)
		Timing() (t sequencer.Timing, ok bool)
	}

	Option func(*Processor)
)

// ErrGenerationRunning is returned by Generate while a previous run has not
// finished.
var ErrGenerationRunning = errors.New("a composition is already running")

const (
	triggerCapacity = 256
	eventCapacity   = 1024
)

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithSequencerOptions passes options to the sequencer.
func WithSequencerOptions(opts ...sequencer.Option) Option {
	return func(p *Processor) { p.seqOpts = append(p.seqOpts, opts...) }
}

// WithComposerOptions passes options to every composer run started by
// Generate.
func WithComposerOptions(opts ...genetic.Option) Option {
	return func(p *Processor) { p.composerOpts = append(p.composerOpts, opts...) }
}

func NewProcessor(broker *Broker, opts ...Option) *Processor {
	p := &Processor{
		broker:   broker,
		logger:   slog.Default(),
		triggers: make([]sequencer.Trigger, 0, triggerCapacity),
		events:   make([]sequencer.Event, 0, eventCapacity),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.seq = sequencer.New(&p.slot, p.seqOpts...)
	return p
}

// Slot returns the slot the sequencer reads melody sets from.
func (p *Processor) Slot() *sequencer.Slot {
	return &p.slot
}

// Publish makes set the melody set used by subsequent melody triggers.
func (p *Processor) Publish(set *composer.MelodySet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	p.slot.Publish(set)
	return nil
}

// Process handles one block of frames and returns the produced events. The
// returned slice is reused by the next call. At most 256 triggers are handled
// per block; the rest are ignored and counted in the DroppedTriggers of the
// state message.
func (p *Processor) Process(frames int, context ProcessContext) []sequencer.Event {
	out := p.events[:0]
	out = p.processMessages(out)
	if t, ok := context.Timing(); ok {
		p.seq.SetTiming(t)
	}
	p.triggers = p.triggers[:0]
	frame, dropped := 0, 0
	for {
		// frame is where the previous event is played; MIDI contexts use it to
		// adjust their clock
		t, ok := context.NextEvent(frame)
		if !ok || t.Frame >= frames {
			break
		}
		frame = max(t.Frame, 0)
		if len(p.triggers) == cap(p.triggers) {
			dropped++
			continue
		}
		p.triggers = append(p.triggers, t)
	}
	context.FinishBlock(frames)
	slices.SortStableFunc(p.triggers, func(a, b sequencer.Trigger) int { return a.Frame - b.Frame })
	out = p.seq.Process(frames, p.triggers, out)
	p.events = out
	TrySend(p.broker.ToModel, MsgToModel{HasState: true, State: p.seq.State(), DroppedTriggers: dropped})
	return out
}

func (p *Processor) processMessages(out []sequencer.Event) []sequencer.Event {
	for {
		select {
		case msg := <-p.broker.ToProcessor:
			switch msg.Kind {
			case MsgScaleSnap:
				p.seq.SetScaleSnap(msg.Value != 0)
			case MsgPanic:
				out = p.seq.Panic(out)
			}
		default:
			return out
		}
	}
}

// Generate starts a composer run in the background. The resulting set is
// published to the slot and reported on the broker's ToModel channel. Only
// one run can be active at a time.
func (p *Processor) Generate(ctx context.Context, params composer.Params, template composer.Melody) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if !p.running.CompareAndSwap(false, true) {
		return ErrGenerationRunning
	}
	c, err := genetic.New(params, append([]genetic.Option{genetic.WithLogger(p.logger)}, p.composerOpts...)...)
	if err != nil {
		p.running.Store(false)
		return err
	}
	template = template.Copy()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.running.Store(false)
		set, err := c.Run(ctx, template)
		if err != nil {
			p.logger.Error("composition failed", "err", err)
			TrySend(p.broker.ToModel, MsgToModel{Data: &GenerationFailed{Err: fmt.Errorf("composing: %w", err)}})
			return
		}
		p.slot.Publish(set)
		TrySend(p.broker.ToModel, MsgToModel{Data: &GenerationDone{Report: composer.Report{Set: set, Params: params}}})
	}()
	return nil
}

// Generating reports whether a composer run is in progress.
func (p *Processor) Generating() bool {
	return p.running.Load()
}

// Wait blocks until the running composition, if any, has finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}
