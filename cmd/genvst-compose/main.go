package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	composer "github.com/Pocwiardo/GeneticVSTComposer"
	"github.com/Pocwiardo/GeneticVSTComposer/cmd"
	"github.com/Pocwiardo/GeneticVSTComposer/genetic"
	"github.com/Pocwiardo/GeneticVSTComposer/version"
)

var (
	configFile   string
	profileFile  string
	templateFile string
	preset       string
	modeName     string
	meterString  string
	outFile      string
	midFile      string
	bpm          float64
	stats        bool
	quiet        bool
	debug        bool

	// flagParams receives the parameter flags; only the flags given on the
	// command line override the config file.
	flagParams = composer.DefaultParams()

	rootCmd = &cobra.Command{
		Use:   "genvst-compose",
		Short: "Compose twelve melodies with a genetic algorithm",
		Long: `genvst-compose runs the genetic melody composer once and writes the
resulting melody set as YAML, optionally as a standard MIDI file with one
track per melody. Parameters come from a YAML config file, overridden by
flags.`,
		Version:       version.VersionOrHash,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
)

func init() {
	def := composer.DefaultParams()
	f := rootCmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "YAML file with the composer parameters")
	f.StringVar(&profileFile, "profile", "", "YAML file with fitness coefficients")
	f.StringVarP(&templateFile, "template", "t", "", "YAML file with the template melody for template mode, e.g. [60, -2, -1, 62]")
	f.StringVarP(&preset, "preset", "p", "", "population preset: speed, balanced or quality")
	f.StringVarP(&modeName, "mode", "m", def.Mode.String(), "what to evolve: full, rhythm or template")
	f.StringVar(&meterString, "meter", def.Meter.String(), "time signature")
	f.StringVarP(&outFile, "output", "o", "-", "where to write the melody set, - for standard output")
	f.StringVar(&midFile, "mid", "", "also write the melodies as a standard MIDI file")
	f.Float64Var(&bpm, "bpm", 120, "tempo of the standard MIDI file")
	f.BoolVar(&stats, "stats", false, "print the fitness statistics of every generation")
	f.BoolVarP(&quiet, "quiet", "q", false, "do not print the report")
	f.BoolVar(&debug, "debug", false, "log every generation")

	f.StringVarP(&flagParams.Scale, "scale", "s", def.Scale, "scale, e.g. \"F# Harmonic minor\"")
	f.IntVar(&flagParams.NoteRange.Low, "low", def.NoteRange.Low, "lowest MIDI note")
	f.IntVar(&flagParams.NoteRange.High, "high", def.NoteRange.High, "highest MIDI note")
	f.IntVar(&flagParams.Measures, "measures", def.Measures, "number of measures")
	f.Float64Var(&flagParams.NoteDuration, "note-duration", def.NoteDuration, "length of one gene in beats")
	f.Float64Var(&flagParams.Diversity, "diversity", def.Diversity, "penalty for similar melodies, 0..1")
	f.Float64Var(&flagParams.Dynamics, "dynamics", def.Dynamics, "0..1")
	f.Float64Var(&flagParams.Arousal, "arousal", def.Arousal, "0..1")
	f.Float64Var(&flagParams.Valence, "valence", def.Valence, "0..1")
	f.Float64Var(&flagParams.Jazziness, "jazziness", def.Jazziness, "0..1")
	f.Float64Var(&flagParams.Weirdness, "weirdness", def.Weirdness, "0..1")
	f.Float64Var(&flagParams.PauseAmount, "pause", def.PauseAmount, "amount of rests, 0..1")
	f.IntVar(&flagParams.PopulationSize, "population", def.PopulationSize, "population size")
	f.IntVar(&flagParams.Generations, "generations", def.Generations, "number of generations")
	f.Float64Var(&flagParams.CrossoverRate, "crossover", def.CrossoverRate, "crossover probability")
	f.Float64Var(&flagParams.MutationRate, "mutation", def.MutationRate, "mutation probability per gene")
	f.Int64Var(&flagParams.Seed, "seed", 0, "random seed, 0 seeds from the clock")
	f.IntVar(&flagParams.Workers, "workers", 0, "fitness evaluation goroutines, 0 uses all CPUs")
}

func main() {
	cmd.LoadEnv()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "genvst-compose: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cobra.Command, args []string) error {
	logger := cmd.NewLogger(debug)
	params, err := loadParams(c)
	if err != nil {
		return err
	}
	opts := []genetic.Option{genetic.WithLogger(logger)}
	if profileFile != "" {
		data, err := os.ReadFile(profileFile)
		if err != nil {
			return fmt.Errorf("could not read profile: %w", err)
		}
		profile, err := genetic.LoadProfile(data)
		if err != nil {
			return err
		}
		opts = append(opts, genetic.WithProfile(profile))
	}
	var template composer.Melody
	if templateFile != "" {
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return fmt.Errorf("could not read template: %w", err)
		}
		if template, err = composer.ReadMelody(data); err != nil {
			return err
		}
	}
	comp, err := genetic.New(params, opts...)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	set, err := comp.Run(ctx, template)
	if err != nil {
		return err
	}
	if err := writeOutputs(set); err != nil {
		return err
	}
	if stats {
		printStats(comp.Diagnostics())
	}
	if !quiet {
		return composer.Report{Set: set, Params: params}.Render(os.Stderr)
	}
	return nil
}

// loadParams reads the config file, if any, and applies the flags the user
// set explicitly on top of it.
func loadParams(c *cobra.Command) (composer.Params, error) {
	params := composer.DefaultParams()
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return params, fmt.Errorf("could not read config: %w", err)
		}
		if params, err = composer.ReadParams(data); err != nil {
			return params, err
		}
	}
	f := c.Flags()
	overrides := []struct {
		flag  string
		apply func() error
	}{
		{"preset", func() error { return params.ApplyPreset(preset) }},
		{"scale", func() error { params.Scale = flagParams.Scale; return nil }},
		{"low", func() error { params.NoteRange.Low = flagParams.NoteRange.Low; return nil }},
		{"high", func() error { params.NoteRange.High = flagParams.NoteRange.High; return nil }},
		{"measures", func() error { params.Measures = flagParams.Measures; return nil }},
		{"note-duration", func() error { params.NoteDuration = flagParams.NoteDuration; return nil }},
		{"diversity", func() error { params.Diversity = flagParams.Diversity; return nil }},
		{"dynamics", func() error { params.Dynamics = flagParams.Dynamics; return nil }},
		{"arousal", func() error { params.Arousal = flagParams.Arousal; return nil }},
		{"valence", func() error { params.Valence = flagParams.Valence; return nil }},
		{"jazziness", func() error { params.Jazziness = flagParams.Jazziness; return nil }},
		{"weirdness", func() error { params.Weirdness = flagParams.Weirdness; return nil }},
		{"pause", func() error { params.PauseAmount = flagParams.PauseAmount; return nil }},
		{"population", func() error { params.PopulationSize = flagParams.PopulationSize; return nil }},
		{"generations", func() error { params.Generations = flagParams.Generations; return nil }},
		{"crossover", func() error { params.CrossoverRate = flagParams.CrossoverRate; return nil }},
		{"mutation", func() error { params.MutationRate = flagParams.MutationRate; return nil }},
		{"seed", func() error { params.Seed = flagParams.Seed; return nil }},
		{"workers", func() error { params.Workers = flagParams.Workers; return nil }},
		{"mode", func() (err error) { params.Mode, err = composer.ParseMode(modeName); return err }},
		{"meter", func() error {
			var m composer.Meter
			if _, err := fmt.Sscanf(meterString, "%d/%d", &m.Numerator, &m.Denominator); err != nil {
				return fmt.Errorf("%w: meter %q: %v", composer.ErrInvalidParams, meterString, err)
			}
			params.Meter = m
			return nil
		}},
	}
	for _, o := range overrides {
		if !f.Changed(o.flag) {
			continue
		}
		if err := o.apply(); err != nil {
			return params, err
		}
	}
	return params, params.Validate()
}

func writeOutputs(set *composer.MelodySet) error {
	var buf bytes.Buffer
	if err := composer.WriteMelodySet(&buf, set); err != nil {
		return err
	}
	if outFile == "-" {
		if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
			return err
		}
	} else if err := os.WriteFile(outFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("could not write melody set: %w", err)
	}
	if midFile == "" {
		return nil
	}
	buf.Reset()
	if err := composer.WriteSMF(&buf, set, bpm, 100); err != nil {
		return err
	}
	if err := os.WriteFile(midFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("could not write MIDI file: %w", err)
	}
	return nil
}

func printStats(diags []genetic.GenerationDiagnostics) {
	w := tabwriter.NewWriter(os.Stderr, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "gen\tbest\tmean\tmin\tdistinct\t")
	for _, d := range diags {
		fmt.Fprintf(w, "%d\t%.3f\t%.3f\t%.3f\t%d\t\n", d.Generation, d.BestFitness, d.MeanFitness, d.MinFitness, d.Distinct)
	}
	w.Flush()
}
