package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/segmentio/parquet-go"
)

// Encoder writes records to w in one file format.
type Encoder interface {
	Encode(w io.Writer, records []Record) error
	Format() FileFormat
}

// NewEncoder returns the encoder for format.
func NewEncoder(format FileFormat) (Encoder, error) {
	switch format {
	case FormatJSONL, FormatJSON:
		return JSONLEncoder{}, nil
	case FormatParquet:
		return ParquetEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}
}

// JSONLEncoder writes one JSON object per line.
type JSONLEncoder struct{}

func (JSONLEncoder) Format() FileFormat { return FormatJSONL }

func (JSONLEncoder) Encode(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode record %s: %w", r.ID, err)
		}
	}
	return nil
}

// ParquetEncoder writes a single Parquet file.
type ParquetEncoder struct{}

func (ParquetEncoder) Format() FileFormat { return FormatParquet }

func (ParquetEncoder) Encode(w io.Writer, records []Record) error {
	pw := parquet.NewGenericWriter[Record](w)
	if _, err := pw.Write(records); err != nil {
		_ = pw.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// ReadFile loads every record of a JSONL, JSON-lines or Parquet file.
func ReadFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	switch DetectFileFormat(path) {
	case FormatParquet:
		return readParquet(file)
	default:
		return readJSONL(file)
	}
}

func readJSONL(r io.Reader) ([]Record, error) {
	decoder := json.NewDecoder(r)
	var records []Record
	for {
		var record Record
		err := decoder.Decode(&record)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("failed to read JSON record %d: %w", len(records)+1, err)
		}
		records = append(records, record)
	}
}

func readParquet(file *os.File) ([]Record, error) {
	reader := parquet.NewReader(file)
	defer reader.Close()

	var records []Record
	for {
		var record Record
		err := reader.Read(&record)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("failed to read Parquet record %d: %w", len(records)+1, err)
		}
		records = append(records, record)
	}
}
