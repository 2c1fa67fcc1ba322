package synth

import (
	"errors"
	"fmt"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

var (
	// ErrEntityNotFound marks an annotation whose span does not hold its value.
	ErrEntityNotFound = errors.New("entity not found in text")
	// ErrOverlappingSpan marks an annotation that overlaps an earlier one.
	ErrOverlappingSpan = errors.New("entity span overlaps a previous entity")
	// ErrEmptyValue marks an entity whose rendered value is empty.
	ErrEmptyValue = errors.New("entity value is empty")
)

// Span is a half-open byte range [Start, End) into one text snapshot.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Annotation binds a label and value to a span of a specific text. Value is
// what the text holds at the span at the current stage; Clean keeps the
// value the entity started from.
type Annotation struct {
	Span
	Label pool.Label
	Value string
	Clean string
}

// Sentence is a text together with its sorted, non-overlapping annotations.
type Sentence struct {
	Text     string
	Entities []Annotation
}

// Example is one finished utterance.
type Example struct {
	ID       string
	Text     string
	Entities []Annotation
}

// Degenerate reports whether the example carries nothing worth keeping.
func (e Example) Degenerate() bool {
	return e.Text == "" || len(e.Entities) == 0
}

// Skipped records an annotation that a stage had to drop.
type Skipped struct {
	Annotation Annotation
	Err        error
}

func (s Skipped) Error() string {
	return fmt.Sprintf("%s %q at [%d,%d): %v", s.Annotation.Label, s.Annotation.Value, s.Start(), s.End(), s.Err)
}

func (s Skipped) Unwrap() error { return s.Err }

// Start returns the span start of the dropped annotation.
func (s Skipped) Start() int { return s.Annotation.Start }

// End returns the span end of the dropped annotation.
func (s Skipped) End() int { return s.Annotation.End }

// CheckInvariants verifies that entities are sorted by start, do not
// overlap, lie inside text and that every span holds its value.
func CheckInvariants(text string, entities []Annotation) error {
	var errs []error
	prevEnd := 0
	for i, e := range entities {
		if e.Start < 0 || e.End > len(text) || e.Start > e.End {
			errs = append(errs, fmt.Errorf("entity %d: span [%d,%d) out of range for text of length %d", i, e.Start, e.End, len(text)))
			continue
		}
		if e.Start < prevEnd {
			errs = append(errs, fmt.Errorf("entity %d: %w", i, ErrOverlappingSpan))
		}
		if got := text[e.Start:e.End]; got != e.Value {
			errs = append(errs, fmt.Errorf("entity %d: text holds %q, annotation says %q: %w", i, got, e.Value, ErrEntityNotFound))
		}
		prevEnd = max(prevEnd, e.End)
	}
	return errors.Join(errs...)
}
