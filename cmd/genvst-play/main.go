package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/cmd"
	"github.com/Pocwiardo/GeneticVSTComposer/plugin"
	"github.com/Pocwiardo/GeneticVSTComposer/sequencer"
	"github.com/Pocwiardo/GeneticVSTComposer/version"
)

var (
	midiInput   = flag.String("midi-input", cmd.Getenv("GENVST_MIDI_INPUT", ""), "connect MIDI input to matching device name prefix")
	midiOutput  = flag.String("midi-output", cmd.Getenv("GENVST_MIDI_OUTPUT", ""), "send notes to the MIDI output matching this device name prefix")
	channel     = flag.Uint("channel", 0, "MIDI channel of the produced notes, 0-15")
	bpm         = flag.Float64("bpm", 120, "tempo")
	meter       = flag.String("meter", "4/4", "time signature")
	sampleRate  = flag.Float64("rate", 44100, "sample rate of the block clock")
	blockSize   = flag.Int("block", 512, "frames per processed block")
	snap        = flag.Bool("snap", false, "snap transposed notes to the scale")
	jitter      = flag.Int("jitter", sequencer.DefaultVelocityJitter, "maximum random velocity deviation")
	generate    = flag.String("generate", "", "compose a new melody set with the parameters in this YAML file at startup")
	watch       = flag.Bool("watch", false, "reload the melody file when it changes")
	metricsAddr = flag.String("metrics", "", "serve prometheus metrics on this address, e.g. :9090")
	debug       = flag.Bool("debug", false, "verbose logging")
	versionFlag = flag.Bool("v", false, "Print version.")
)

func main() {
	cmd.LoadEnv()
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	logger := cmd.NewLogger(*debug)
	if err := run(logger); err != nil {
		logger.Error("genvst-play failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	timing := sequencer.Timing{BPM: *bpm, SampleRate: *sampleRate}
	if _, err := fmt.Sscanf(*meter, "%d/%d", &timing.Meter.Numerator, &timing.Meter.Denominator); err != nil {
		return fmt.Errorf("invalid meter %q: %w", *meter, err)
	}
	if timing.Interval(sequencer.DefaultNoteDuration) < 1 || *blockSize < 1 {
		return errors.New("tempo, sample rate and block size must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	broker := plugin.NewBroker()
	processor := plugin.NewProcessor(broker,
		plugin.WithLogger(logger),
		plugin.WithSequencerOptions(sequencer.WithVelocityJitter(*jitter)))
	if *snap {
		plugin.TrySend(broker.ToProcessor, plugin.MsgToProcessor{Kind: plugin.MsgScaleSnap, Value: 1})
	}

	midiContext := cmd.NewMIDIContext(timing, uint8(*channel&0x0f))
	defer midiContext.Close()
	logger.Info("MIDI", "support", midiContext.Support())
	if isFlagPassed("midi-input") || *midiInput != "" {
		in, err := plugin.FindDevice(midiContext.Inputs, *midiInput)
		if err == nil {
			err = in.Open()
		}
		if err != nil {
			logger.Warn("no MIDI input", "prefix", *midiInput, "err", err)
		} else {
			logger.Info("MIDI input opened", "device", in.String())
		}
	}
	var sink sequencer.Sink = logSink{logger}
	if out, err := plugin.FindDevice(midiContext.Outputs, *midiOutput); err != nil {
		logger.Warn("no MIDI output, logging events instead", "prefix", *midiOutput, "err", err)
	} else if err := out.Open(); err != nil {
		logger.Warn("could not open MIDI output, logging events instead", "device", out.String(), "err", err)
	} else {
		defer out.Close()
		sink = out
		logger.Info("MIDI output opened", "device", out.String())
	}

	if flag.NArg() > 0 {
		file := flag.Arg(0)
		if err := loadMelodies(processor, file); err != nil {
			return err
		}
		logger.Info("melodies loaded", "file", file)
		if *watch {
			if err := watchFile(ctx, logger, processor, file); err != nil {
				return err
			}
		}
	}
	if *generate != "" {
		data, err := os.ReadFile(*generate)
		if err != nil {
			return fmt.Errorf("could not read params: %w", err)
		}
		params, err := composer.ReadParams(data)
		if err != nil {
			return err
		}
		if err := processor.Generate(ctx, params, nil); err != nil {
			return err
		}
		logger.Info("composing", "scale", params.Scale, "population", params.PopulationSize, "generations", params.Generations)
	}
	if *metricsAddr != "" {
		go serveMetrics(logger, *metricsAddr)
	}
	go reportResults(ctx, logger, broker)

	blockTime := time.Duration(float64(*blockSize) / *sampleRate * float64(time.Second))
	ticker := time.NewTicker(blockTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			plugin.TrySend(broker.ToProcessor, plugin.MsgToProcessor{Kind: plugin.MsgPanic})
			if err := sink.Send(processor.Process(*blockSize, midiContext)); err != nil {
				logger.Warn("could not silence output", "err", err)
			}
			processor.Wait()
			return nil
		case <-ticker.C:
			if err := sink.Send(processor.Process(*blockSize, midiContext)); err != nil {
				return err
			}
		}
	}
}

func loadMelodies(p *plugin.Processor, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("could not read melodies: %w", err)
	}
	set, err := composer.ReadMelodySet(data)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	return p.Publish(set)
}

// watchFile reloads file whenever it is written. The directory is watched
// instead of the file, as editors often replace files by renaming.
func watchFile(ctx context.Context, logger *slog.Logger, p *plugin.Processor, file string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not watch %s: %w", file, err)
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("could not watch %s: %w", file, err)
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := loadMelodies(p, abs); err != nil {
					logger.Warn("reload failed, keeping the previous melodies", "err", err)
					continue
				}
				logger.Info("melodies reloaded", "file", file)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher", "err", err)
			}
		}
	}()
	return nil
}

func reportResults(ctx context.Context, logger *slog.Logger, broker *plugin.Broker) {
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
				if err := d.Report.Render(os.Stderr); err != nil {
					logger.Warn("could not print report", "err", err)
				}
			case *plugin.GenerationFailed:
				logger.Error("composition failed", "err", d.Err)
			}
		}
	}
}

func serveMetrics(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "err", err)
	}
}

// logSink writes the events to the debug log when no MIDI output is open.
type logSink struct {
	logger *slog.Logger
}

func (s logSink) Send(events []sequencer.Event) error {
	for _, ev := range events {
		s.logger.Debug("event", "event", ev.String())
	}
	return nil
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Plays composed melodies from MIDI key triggers: keys 48-59 select a melody, keys from 60 up transpose it.\nUsage: %s [flags] [melodies.yml]\n", os.Args[0])
	flag.PrintDefaults()
}
