//go:build plugin

package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/cmd"
	"github.com/Pocwiardo/GeneticVSTComposer/plugin"
	"github.com/Pocwiardo/GeneticVSTComposer/sequencer"
	"pipelined.dev/audio/vst2"
)

const (
	PLUGIN_ID   = 0x47564354 // "GVCT"
	PLUGIN_NAME = "GeneticVSTComposer"
)

type VSTIProcessContext struct {
	events     []vst2.MIDIEvent
	eventIndex int
	host       vst2.Host
	timing     sequencer.Timing
}

func (c *VSTIProcessContext) NextEvent(frame int) (sequencer.Trigger, bool) {
	for c.eventIndex < len(c.events) {
		ev := c.events[c.eventIndex]
		c.eventIndex++
		switch {
		case ev.Data[0] >= 0x80 && ev.Data[0] < 0x90:
			return sequencer.Trigger{Frame: int(ev.DeltaFrames), On: false, Note: ev.Data[1]}, true
		case ev.Data[0] >= 0x90 && ev.Data[0] < 0xA0:
			// note on with zero velocity is a note off
			return sequencer.Trigger{Frame: int(ev.DeltaFrames), On: ev.Data[2] > 0, Note: ev.Data[1], Velocity: ev.Data[2]}, true
		default:
			// ignore all other MIDI messages
		}
	}
	return sequencer.Trigger{}, false
}

func (c *VSTIProcessContext) FinishBlock(frame int) {
	c.events = c.events[:0] // reset buffer, but keep the allocated memory
	c.eventIndex = 0
}

// Timing reads tempo, time signature and sample rate from the host, keeping
// the last known value of anything the host does not report.
func (c *VSTIProcessContext) Timing() (sequencer.Timing, bool) {
	timeInfo := c.host.GetTimeInfo(vst2.TempoValid | vst2.TimeSigValid)
	if timeInfo == nil {
		return c.timing, true
	}
	if timeInfo.Flags&vst2.TempoValid != 0 && timeInfo.Tempo > 0 {
		c.timing.BPM = timeInfo.Tempo
	}
	if timeInfo.Flags&vst2.TimeSigValid != 0 && timeInfo.TimeSigNumerator > 0 && timeInfo.TimeSigDenominator > 0 {
		c.timing.Meter = composer.Meter{Numerator: int(timeInfo.TimeSigNumerator), Denominator: int(timeInfo.TimeSigDenominator)}
	}
	if timeInfo.SampleRate > 0 {
		c.timing.SampleRate = timeInfo.SampleRate
	}
	return c.timing, true
}

func init() {
	var (
		version = int32(100)
	)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		cmd.LoadEnv()
		logger := cmd.NewLogger(os.Getenv("GENVST_DEBUG") != "")
		broker := plugin.NewBroker()
		processor := plugin.NewProcessor(broker, plugin.WithLogger(logger))
		ctx, cancel := context.WithCancel(context.Background())
		go drainModel(ctx, logger, broker)

		// The host gets no MIDI from the plugin; the produced notes go to a
		// MIDI port, e.g. a virtual cable routed back into the host.
		output := openOutput(logger)
		if params, ok := loadParams(logger); ok {
			if err := processor.Generate(ctx, params, nil); err != nil {
				logger.Error("could not start composing", "err", err)
			}
		}
		if snap := os.Getenv("GENVST_SCALE_SNAP"); snap != "" {
			plugin.TrySend(broker.ToProcessor, plugin.MsgToProcessor{Kind: plugin.MsgScaleSnap, Value: 1})
		}

		context := VSTIProcessContext{host: h, timing: sequencer.DefaultTiming}
		return vst2.Plugin{
				UniqueID:       PLUGIN_ID,
				Version:        version,
				InputChannels:  0,
				OutputChannels: 2,
				Name:           PLUGIN_NAME,
				Vendor:         "Pocwiardo",
				Category:       vst2.PluginCategorySynth,
				Flags:          vst2.PluginIsSynth,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					left := out.Channel(0)
					right := out.Channel(1)
					for i := 0; i < out.Frames; i++ {
						left[i], right[i] = 0, 0
					}
					events := processor.Process(out.Frames, &context)
					if output != nil && len(events) > 0 {
						output.Send(events)
					}
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent, vst2.PluginCanReceiveTimeInfo:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						a := ev.Event(i)
						switch v := a.(type) {
						case *vst2.MIDIEvent:
							context.events = append(context.events, *v)
						}
					}
				},
				CloseFunc: func() {
					cancel()
					processor.Wait()
					if output != nil {
						output.Close()
					}
				},
				GetChunkFunc: func(isPreset bool) []byte {
					set := processor.Slot().Load()
					if set == nil {
						return nil
					}
					var buf bytes.Buffer
					if err := composer.WriteMelodySet(&buf, set); err != nil {
						logger.Error("could not save melodies", "err", err)
						return nil
					}
					return buf.Bytes()
				},
				SetChunkFunc: func(data []byte, isPreset bool) {
					set, err := composer.ReadMelodySet(data)
					if err == nil {
						err = processor.Publish(set)
					}
					if err != nil {
						logger.Error("could not restore melodies", "err", err)
					}
				},
			}
	}
}

// loadParams reads the composer parameters from the file named by
// GENVST_PARAMS. Without it, nothing is composed until the host restores a
// saved melody set.
func loadParams(logger *slog.Logger) (composer.Params, bool) {
	file := os.Getenv("GENVST_PARAMS")
	if file == "" {
		return composer.Params{}, false
	}
	data, err := os.ReadFile(file)
	if err != nil {
		logger.Error("could not read params", "err", err)
		return composer.Params{}, false
	}
	params, err := composer.ReadParams(data)
	if err != nil {
		logger.Error("invalid params", "file", file, "err", err)
		return composer.Params{}, false
	}
	return params, true
}

func openOutput(logger *slog.Logger) plugin.MIDIOutputDevice {
	prefix := os.Getenv("GENVST_MIDI_OUTPUT")
	if prefix == "" {
		return nil
	}
	midiContext := cmd.NewMIDIContext(sequencer.DefaultTiming, 0)
	out, err := plugin.FindDevice(midiContext.Outputs, prefix)
	if err == nil {
		err = out.Open()
	}
	if err != nil {
		logger.Error("no MIDI output", "prefix", prefix, "err", err)
		return nil
	}
	return out
}

func drainModel(ctx context.Context, logger *slog.Logger, broker *plugin.Broker) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-broker.ToModel:
			if msg.DroppedTriggers > 0 {
				logger.Warn("triggers dropped", "count", msg.DroppedTriggers)
			}
			switch d := msg.Data.(type) {
			case *plugin.GenerationDone:
				logger.Info("melodies ready", "id", d.Report.Set.ID, "scale", d.Report.Set.Scale)
			case *plugin.GenerationFailed:
				logger.Error("composition failed", "err", d.Err)
			}
		}
	}
}

func main() {}
