// Package manifest records what each generation run produced.
package manifest

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/dataset"
)

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown manifest backend")

// Run is the manifest entry for one generated split.
type Run struct {
	ID             int64       `db:"id" json:"-"`
	RunID          string      `db:"run_id" json:"run_id"`
	Split          string      `db:"split" json:"split"`
	Seed           int64       `db:"seed" json:"seed"`
	Target         int         `db:"target" json:"target"`
	Written        int         `db:"written" json:"written"`
	Attempts       int         `db:"attempts" json:"attempts"`
	Exhausted      bool        `db:"exhausted" json:"exhausted"`
	Format         string      `db:"format" json:"format"`
	Path           string      `db:"path" json:"path"`
	SHA256         string      `db:"sha256" json:"sha256"`
	LabelCounts    LabelCounts `db:"label_counts" json:"label_counts"`
	MeanSimilarity float64     `db:"mean_similarity" json:"mean_similarity"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// LabelCounts maps label names to entity counts. It is stored as JSON text
// in SQL backends.
type LabelCounts map[string]int

// Value implements driver.Valuer.
func (c LabelCounts) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]int(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *LabelCounts) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = LabelCounts{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into LabelCounts", src)
	}
	m := map[string]int{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("failed to decode label counts: %w", err)
	}
	*c = m
	return nil
}

// FromResult builds a manifest entry for a split result.
func FromResult(runID string, r *dataset.Result) *Run {
	counts := make(LabelCounts, len(r.LabelCounts))
	for k, v := range r.LabelCounts {
		counts[k] = v
	}
	return &Run{
		RunID:          runID,
		Split:          r.Split,
		Seed:           r.Seed,
		Target:         r.Target,
		Written:        r.Written,
		Attempts:       r.Attempts,
		Exhausted:      r.Exhausted,
		Format:         string(r.Format),
		Path:           r.Path,
		SHA256:         r.SHA256,
		LabelCounts:    counts,
		MeanSimilarity: r.MeanSimilarity,
		CreatedAt:      time.Now().UTC(),
	}
}

// NewRunID returns a fresh identifier grouping the splits of one run.
func NewRunID() string {
	return uuid.New().String()
}

// Store persists manifest entries.
type Store interface {
	Record(ctx context.Context, run *Run) error
	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}

// Config contains manifest configuration
type Config struct {
	Backend         string        `yaml:"backend" mapstructure:"backend"` // file, postgres or none
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// New creates the store selected by config.Backend. The file backend keeps
// manifest.json in outputDir.
func New(config *Config, outputDir string, logger *zap.Logger) (Store, error) {
	switch config.Backend {
	case "", "file":
		return NewFileStore(outputDir), nil
	case "postgres":
		return NewPostgresStore(config, logger)
	case "none":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, config.Backend)
	}
}

// NopStore discards entries.
type NopStore struct{}

func (NopStore) Record(context.Context, *Run) error { return nil }

func (NopStore) List(context.Context, int) ([]*Run, error) { return nil, nil }

func (NopStore) Close() error { return nil }
