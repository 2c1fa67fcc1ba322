package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/raaihank/stt-pii-datagen/internal/synth"
)

// Record is the serialized form of one example.
type Record struct {
	ID       string         `parquet:"id" json:"id"`
	Text     string         `parquet:"text" json:"text"`
	Entities []EntityRecord `parquet:"entities" json:"entities"`
}

// EntityRecord is one annotated span of a Record. Final examples carry
// NoisyValue; clean-stage previews carry CleanValue.
type EntityRecord struct {
	Start      int    `parquet:"start" json:"start"`
	End        int    `parquet:"end" json:"end"`
	NoisyValue string `parquet:"noisy_value" json:"noisy_value,omitempty"`
	CleanValue string `parquet:"clean_value" json:"clean_value,omitempty"`
	Label      string `parquet:"label" json:"label"`
}

// Value returns the text the span must hold.
func (e EntityRecord) Value() string {
	if e.NoisyValue != "" {
		return e.NoisyValue
	}
	return e.CleanValue
}

// NewRecord converts a finished example.
func NewRecord(ex synth.Example) Record {
	entities := make([]EntityRecord, len(ex.Entities))
	for i, e := range ex.Entities {
		entities[i] = EntityRecord{Start: e.Start, End: e.End, NoisyValue: e.Value, Label: e.Label.String()}
	}
	return Record{ID: ex.ID, Text: ex.Text, Entities: entities}
}

// NewCleanRecord converts a clean-stage sentence.
func NewCleanRecord(id string, s synth.Sentence) Record {
	entities := make([]EntityRecord, len(s.Entities))
	for i, e := range s.Entities {
		entities[i] = EntityRecord{Start: e.Start, End: e.End, CleanValue: e.Value, Label: e.Label.String()}
	}
	return Record{ID: id, Text: s.Text, Entities: entities}
}

// SplitSpec describes one split to generate.
type SplitSpec struct {
	Name     string
	Count    int
	Seed     int64
	IDOffset int
	File     string
}

// Config contains writer configuration
type Config struct {
	OutputDir        string `yaml:"output_dir" mapstructure:"output_dir"`                 // data
	Format           string `yaml:"format" mapstructure:"format"`                         // jsonl
	MaxAttemptFactor int    `yaml:"max_attempt_factor" mapstructure:"max_attempt_factor"` // 3
	SkipDuplicates   bool   `yaml:"skip_duplicates" mapstructure:"skip_duplicates"`       // false
	ProgressReport   int    `yaml:"progress_report" mapstructure:"progress_report"`       // 100
}

// Result represents the result of generating one split
type Result struct {
	Split          string         `json:"split"`
	Seed           int64          `json:"seed"`
	Target         int            `json:"target"`
	Written        int            `json:"written"`
	Attempts       int            `json:"attempts"`
	Degenerate     int            `json:"degenerate"`
	Duplicates     int            `json:"duplicates"`
	Exhausted      bool           `json:"exhausted"`
	LabelCounts    map[string]int `json:"label_counts"`
	MeanSimilarity float64        `json:"mean_similarity"`
	Format         FileFormat     `json:"format"`
	Path           string         `json:"path"`
	SHA256         string         `json:"sha256"`
	Duration       time.Duration  `json:"duration"`
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatJSONL   FileFormat = "jsonl"
	FormatJSON    FileFormat = "json"
	FormatParquet FileFormat = "parquet"
)

// ParseFormat validates a configured output format name.
func ParseFormat(name string) (FileFormat, error) {
	switch f := FileFormat(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSONL, FormatParquet:
		return f, nil
	case "":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q", name)
	}
}

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".parquet":
		return FormatParquet
	case ".json":
		return FormatJSON
	default:
		return FormatJSONL
	}
}

// Extension returns the file extension for the format, with the dot.
func (f FileFormat) Extension() string {
	return "." + string(f)
}

// WithExtension replaces the extension of filename with the one for format.
func WithExtension(filename string, format FileFormat) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + format.Extension()
}
