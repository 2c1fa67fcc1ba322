package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/config"
	"github.com/raaihank/stt-pii-datagen/internal/dataset"
	"github.com/raaihank/stt-pii-datagen/internal/dedupe"
	"github.com/raaihank/stt-pii-datagen/internal/logger"
	"github.com/raaihank/stt-pii-datagen/internal/manifest"
	"github.com/raaihank/stt-pii-datagen/internal/noise"
	"github.com/raaihank/stt-pii-datagen/internal/pool"
	"github.com/raaihank/stt-pii-datagen/internal/synth"
)

const watchDebounce = 300 * time.Millisecond

type generateOptions struct {
	split  string
	count  int
	seed   int64
	format string
	pools  string
	dedupe bool
	watch  bool

	seedSet   bool
	countSet  bool
	dedupeSet bool
}

func generateCmd(a *app) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the train and dev splits",
		Example: `  datagen generate
  datagen generate --split dev --count 20 --seed 7
  datagen generate --format parquet --pools pools.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			opts.countSet = cmd.Flags().Changed("count")
			opts.dedupeSet = cmd.Flags().Changed("skip-duplicates")

			out := cmd.OutOrStdout()
			if err := runGenerate(cmd.Context(), a.cfg, opts, a.log, out); err != nil {
				return err
			}
			if !opts.watch {
				return nil
			}
			return watchAndRegenerate(cmd.Context(), a, opts, out)
		},
	}

	cmd.Flags().StringVar(&opts.split, "split", "all", "split to generate: train, dev or all")
	cmd.Flags().IntVar(&opts.count, "count", 0, "number of examples (single split only)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed (single split only)")
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: jsonl or parquet (default from config)")
	cmd.Flags().StringVar(&opts.pools, "pools", "", "pool YAML file (default from config, else built-in pools)")
	cmd.Flags().BoolVar(&opts.dedupe, "skip-duplicates", false, "drop examples whose text was already produced")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "regenerate when the config or pool file changes")

	return cmd
}

// applyOverrides copies flag values onto a configuration.
func (o *generateOptions) applyOverrides(cfg *config.Config) {
	if o.format != "" {
		cfg.Generation.Format = o.format
	}
	if o.pools != "" {
		cfg.Generation.PoolsFile = o.pools
	}
	if o.dedupeSet {
		cfg.Generation.SkipDuplicates = o.dedupe
	}
}

// specs selects the splits to generate and applies count and seed flags.
func (o *generateOptions) specs(cfg *config.Config) ([]dataset.SplitSpec, error) {
	format, err := dataset.ParseFormat(cfg.Generation.Format)
	if err != nil {
		return nil, err
	}

	var specs []dataset.SplitSpec
	if o.split == "" || o.split == "all" {
		if o.seedSet || o.countSet {
			return nil, errors.New("--count and --seed need --split train or --split dev")
		}
		specs = cfg.Generation.Specs()
	} else {
		spec, ok := cfg.Generation.Spec(o.split)
		if !ok {
			return nil, fmt.Errorf("%w: %q", pool.ErrUnknownSplit, o.split)
		}
		if o.countSet {
			spec.Count = o.count
		}
		if o.seedSet {
			spec.Seed = o.seed
		}
		specs = []dataset.SplitSpec{spec}
	}

	for i := range specs {
		if specs[i].Count < 0 {
			return nil, fmt.Errorf("split %s: count must be non-negative", specs[i].Name)
		}
		specs[i].File = dataset.WithExtension(specs[i].File, format)
	}
	return specs, nil
}

// runGenerate writes every selected split and records one manifest entry
// per split under a shared run id.
func runGenerate(ctx context.Context, base *config.Config, opts *generateOptions, log *logger.Logger, out io.Writer) error {
	cfg := *base
	opts.applyOverrides(&cfg)

	specs, err := opts.specs(&cfg)
	if err != nil {
		return err
	}

	provider, err := loadProvider(cfg.Generation.PoolsFile)
	if err != nil {
		return err
	}

	var store dedupe.Store
	if cfg.Generation.SkipDuplicates {
		store, err = dedupe.New(&cfg.Dedupe, log.WithComponent("dedupe").Logger)
		if err != nil {
			return fmt.Errorf("failed to create dedupe store: %w", err)
		}
		defer store.Close()
	}

	manifests, err := manifest.New(&cfg.Manifest, cfg.Generation.OutputDir, log.WithComponent("manifest").Logger)
	if err != nil {
		return fmt.Errorf("failed to create manifest store: %w", err)
	}
	defer manifests.Close()

	generator := synth.NewGenerator(provider, noise.New(cfg.Noise), cfg.Generation.Fillers, log.WithComponent("synth").Logger)
	writer := dataset.NewWriter(generator, store, &cfg.Generation.Config, log.WithComponent("dataset").Logger)

	runID := manifest.NewRunID()
	log.Info("Starting generation run",
		zap.String("run_id", runID),
		zap.Int("splits", len(specs)),
		zap.String("output_dir", cfg.Generation.OutputDir))

	for _, spec := range specs {
		result, err := writer.GenerateSplit(ctx, spec)
		if err != nil {
			return fmt.Errorf("split %s: %w", spec.Name, err)
		}
		if err := manifests.Record(ctx, manifest.FromResult(runID, result)); err != nil {
			return fmt.Errorf("failed to record manifest for %s: %w", spec.Name, err)
		}
		log.WithSplit(spec.Name).Debug("Manifest recorded", zap.String("run_id", runID))
		printResult(out, result)
	}

	if store != nil {
		stats, err := store.Stats(ctx)
		if err != nil {
			log.Warn("Failed to read dedupe statistics", zap.Error(err))
			return nil
		}
		log.Info("Dedupe statistics",
			zap.Int64("hits", stats.Hits),
			zap.Int64("misses", stats.Misses),
			zap.Float64("hit_rate", stats.HitRate))
	}
	return nil
}

func printResult(out io.Writer, r *dataset.Result) {
	status := "ok"
	if r.Exhausted {
		status = "attempt budget exhausted"
	}
	fmt.Fprintf(out, "%-5s %d/%d examples -> %s (%s)\n", r.Split, r.Written, r.Target, r.Path, status)
	fmt.Fprintf(out, "      attempts=%d degenerate=%d duplicates=%d similarity=%.3f sha256=%s\n",
		r.Attempts, r.Degenerate, r.Duplicates, r.MeanSimilarity, r.SHA256)
}

// watchAndRegenerate reruns generation whenever the configuration file or
// the pool file changes, until ctx is cancelled. Failed runs are logged and
// the previous output stays in place.
func watchAndRegenerate(ctx context.Context, a *app, opts *generateOptions, out io.Writer) error {
	var current atomic.Pointer[config.Config]
	current.Store(a.cfg)
	trigger := make(chan string, 1)
	notify := func(reason string) {
		select {
		case trigger <- reason:
		default:
		}
	}

	if file := a.loader.ConfigFile(); file != "" {
		a.loader.Watch(func(cfg *config.Config) {
			current.Store(cfg)
			notify(file)
		}, func(err error) {
			a.log.Error("Ignoring invalid configuration", zap.Error(err))
		})
	}

	poolsFile := opts.pools
	if poolsFile == "" {
		poolsFile = a.cfg.Generation.PoolsFile
	}
	if poolsFile != "" {
		if _, err := config.WatchFiles(ctx, []string{poolsFile}, watchDebounce, a.log.WithComponent("watch").Logger, notify); err != nil {
			return fmt.Errorf("failed to watch %s: %w", poolsFile, err)
		}
	}

	a.log.Info("Watching for changes", zap.String("config", a.loader.ConfigFile()), zap.String("pools", poolsFile))
	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-trigger:
			a.log.Info("Change detected, regenerating", zap.String("file", reason))
			if err := runGenerate(ctx, current.Load(), opts, a.log, out); err != nil {
				a.log.Error("Regeneration failed", zap.Error(err))
			}
		}
	}
}
