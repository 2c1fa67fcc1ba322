// Package dataset generates splits of annotated examples and reads them
// back for verification and statistics.
package dataset

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/dedupe"
	"github.com/raaihank/stt-pii-datagen/internal/noise"
	"github.com/raaihank/stt-pii-datagen/internal/synth"
)

// Writer generates splits and persists them
type Writer struct {
	generator *synth.Generator
	dedupe    dedupe.Store
	config    *Config
	logger    *zap.Logger
}

// NewWriter creates a new Writer. store may be nil when duplicates are not
// skipped.
func NewWriter(generator *synth.Generator, store dedupe.Store, config *Config, logger *zap.Logger) *Writer {
	return &Writer{
		generator: generator,
		dedupe:    store,
		config:    config,
		logger:    logger,
	}
}

// GenerateSplit produces up to spec.Count examples and writes them to
// spec.File under the output directory. Running out of attempts is not an
// error: whatever was produced is still written and Result.Exhausted is set.
func (w *Writer) GenerateSplit(ctx context.Context, spec SplitSpec) (*Result, error) {
	format, err := ParseFormat(w.config.Format)
	if err != nil {
		return nil, err
	}
	encoder, err := NewEncoder(format)
	if err != nil {
		return nil, err
	}
	if w.config.SkipDuplicates && w.dedupe == nil {
		return nil, fmt.Errorf("skip_duplicates requires a dedupe store")
	}

	logger := w.logger.With(zap.String("split", spec.Name))
	logger.Info("Generating split",
		zap.Int("target", spec.Count),
		zap.Int64("seed", spec.Seed),
		zap.String("format", string(format)))

	start := time.Now()
	result := &Result{
		Split:       spec.Name,
		Seed:        spec.Seed,
		Target:      spec.Count,
		LabelCounts: make(map[string]int),
		Format:      encoder.Format(),
	}

	rng := noise.NewRand(spec.Seed)
	maxAttempts := max(1, w.config.MaxAttemptFactor) * spec.Count
	records := make([]Record, 0, spec.Count)

	var (
		similaritySum float64
		entityCount   int
	)
	for attempt := 0; len(records) < spec.Count && attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		id := fmt.Sprintf("utt_%04d", attempt+1+spec.IDOffset)
		example, err := w.generator.Generate(rng, spec.Name, id)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", id, err)
		}
		result.Attempts++

		if example.Degenerate() {
			result.Degenerate++
			continue
		}
		if w.config.SkipDuplicates {
			seen, err := w.dedupe.Seen(ctx, example.Text)
			if err != nil {
				return nil, err
			}
			if seen {
				result.Duplicates++
				logger.Debug("Duplicate example skipped", zap.String("id", id))
				continue
			}
		}

		records = append(records, NewRecord(example))
		for _, e := range example.Entities {
			result.LabelCounts[e.Label.String()]++
			similaritySum += matchr.JaroWinkler(strings.ToLower(e.Clean), e.Value, false)
			entityCount++
		}

		if w.config.ProgressReport > 0 && len(records)%w.config.ProgressReport == 0 {
			logger.Debug("Generation progress",
				zap.Int("written", len(records)),
				zap.Int("attempts", result.Attempts))
		}
	}

	result.Written = len(records)
	if entityCount > 0 {
		result.MeanSimilarity = similaritySum / float64(entityCount)
	}
	if result.Written < spec.Count {
		result.Exhausted = true
		logger.Warn("Attempt budget exhausted before reaching target",
			zap.Int("target", spec.Count),
			zap.Int("written", result.Written),
			zap.Int("attempts", result.Attempts))
	}

	result.Path = filepath.Join(w.config.OutputDir, spec.File)
	sum, err := writeAtomic(result.Path, func(out io.Writer) error {
		return encoder.Encode(out, records)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", result.Path, err)
	}
	result.SHA256 = sum
	result.Duration = time.Since(start)

	logger.Info("Split written",
		zap.String("path", result.Path),
		zap.Int("written", result.Written),
		zap.Int("attempts", result.Attempts),
		zap.Int("degenerate", result.Degenerate),
		zap.Int("duplicates", result.Duplicates),
		zap.Float64("mean_similarity", result.MeanSimilarity),
		zap.Duration("duration", result.Duration))

	return result, nil
}
