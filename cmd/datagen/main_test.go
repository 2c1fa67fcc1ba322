package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/raaihank/stt-pii-datagen/internal/config"
	"github.com/raaihank/stt-pii-datagen/internal/dataset"
	"github.com/raaihank/stt-pii-datagen/internal/logger"
)

func writeConfig(t *testing.T, outputDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datagen.yaml")
	body := "generation:\n  output_dir: " + outputDir + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	devFile := filepath.Join(dir, "dev.jsonl")

	t.Run("Generate", func(t *testing.T) {
		out, err := run(t, "generate", "--config", cfg, "--split", "dev", "--count", "5", "--seed", "3")
		if err != nil {
			t.Fatalf("generate: %v\n%s", err, out)
		}
		if !strings.Contains(out, "5/5 examples") {
			t.Errorf("output = %q", out)
		}
		if _, err := os.Stat(devFile); err != nil {
			t.Fatalf("dev file missing: %v", err)
		}
	})

	t.Run("Verify", func(t *testing.T) {
		out, err := run(t, "verify", "--config", cfg, devFile)
		if err != nil {
			t.Fatalf("verify: %v\n%s", err, out)
		}
		if !strings.Contains(out, "5 records ok") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("StatsJSON", func(t *testing.T) {
		out, err := run(t, "stats", "--config", cfg, "--json", devFile)
		if err != nil {
			t.Fatalf("stats: %v\n%s", err, out)
		}
		var summary dataset.Summary
		if err := json.Unmarshal([]byte(out), &summary); err != nil {
			t.Fatalf("decode %q: %v", out, err)
		}
		if summary.Examples != 5 || summary.Entities == 0 {
			t.Errorf("summary = %+v", summary)
		}
	})

	t.Run("Runs", func(t *testing.T) {
		out, err := run(t, "runs", "--config", cfg)
		if err != nil {
			t.Fatalf("runs: %v\n%s", err, out)
		}
		if !strings.Contains(out, "dev") || !strings.Contains(out, "seed=3") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("SeedNeedsSingleSplit", func(t *testing.T) {
		if _, err := run(t, "generate", "--config", cfg, "--seed", "1"); err == nil {
			t.Error("expected an error for --seed without --split")
		}
	})

	t.Run("Parquet", func(t *testing.T) {
		out, err := run(t, "generate", "--config", cfg, "--split", "train", "--count", "4", "--format", "parquet")
		if err != nil {
			t.Fatalf("generate: %v\n%s", err, out)
		}
		records, err := dataset.ReadFile(filepath.Join(dir, "train.parquet"))
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 4 {
			t.Errorf("got %d records, want 4", len(records))
		}
	})

	t.Run("PoolsValidate", func(t *testing.T) {
		out, err := run(t, "pools", "validate", "--config", cfg)
		if err != nil {
			t.Fatalf("pools validate: %v\n%s", err, out)
		}
		if !strings.Contains(out, "train") || !strings.Contains(out, "dev") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestVerifyReportsBrokenSpans(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	path := filepath.Join(dir, "broken.jsonl")
	line := `{"id":"utt_0001","text":"call me at nine","entities":[{"start":0,"end":4,"noisy_value":"nine","label":"PHONE"}]}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "verify", "--config", cfg, path)
	if err == nil {
		t.Fatalf("verify accepted a broken span:\n%s", out)
	}
	if !strings.Contains(out, "utt_0001") {
		t.Errorf("output = %q", out)
	}
}

func TestGenerateReportsDedupeStatistics(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Generation.OutputDir = t.TempDir()
	cfg.Dedupe.Backend = "memory"

	opts := &generateOptions{
		split:     "train",
		count:     5,
		countSet:  true,
		dedupe:    true,
		dedupeSet: true,
	}

	core, logs := observer.New(zapcore.InfoLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	var out bytes.Buffer
	if err := runGenerate(context.Background(), cfg, opts, log, &out); err != nil {
		t.Fatalf("runGenerate: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "5/5 examples") {
		t.Errorf("output = %q", out.String())
	}

	entries := logs.FilterMessage("Dedupe statistics").All()
	if len(entries) != 1 {
		t.Fatalf("got %d dedupe statistics entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if misses, _ := fields["misses"].(int64); misses != 5 {
		t.Errorf("misses = %d, want one per written example", misses)
	}
	if _, ok := fields["hit_rate"]; !ok {
		t.Errorf("hit_rate missing from %v", fields)
	}
	if cfg.Generation.SkipDuplicates {
		t.Error("runGenerate modified the base configuration")
	}
}
