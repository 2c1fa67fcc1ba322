package dataset

import (
	"errors"
	"fmt"
	"slices"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
	"github.com/raaihank/stt-pii-datagen/internal/privacy"
	"github.com/raaihank/stt-pii-datagen/internal/synth"
)

var (
	// ErrDuplicateID marks a record whose id was already used in the file.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrNoEntities marks a record without annotations.
	ErrNoEntities = errors.New("record has no entities")
)

// Problem is one failed check on one record.
type Problem struct {
	Index int
	ID    string
	Err   error
}

func (p Problem) Error() string {
	return fmt.Sprintf("record %d (%s): %v", p.Index, p.ID, p.Err)
}

// Verify checks every record: ids unique, text present, at least one
// entity, labels known, spans sorted, non-overlapping and holding their
// value.
func Verify(records []Record) []Problem {
	var problems []Problem
	ids := make(map[string]struct{}, len(records))

	for i, r := range records {
		report := func(err error) {
			problems = append(problems, Problem{Index: i, ID: r.ID, Err: err})
		}

		if _, dup := ids[r.ID]; dup {
			report(ErrDuplicateID)
		}
		ids[r.ID] = struct{}{}

		if r.Text == "" {
			report(errors.New("empty text"))
		}
		if len(r.Entities) == 0 {
			report(ErrNoEntities)
			continue
		}

		annotations := make([]synth.Annotation, 0, len(r.Entities))
		for _, e := range r.Entities {
			label, err := pool.ParseLabel(e.Label)
			if err != nil {
				report(err)
			}
			annotations = append(annotations, synth.Annotation{
				Span:  synth.Span{Start: e.Start, End: e.End},
				Label: label,
				Value: e.Value(),
			})
		}
		if err := synth.CheckInvariants(r.Text, annotations); err != nil {
			report(err)
		}
	}
	return problems
}

// Summary describes a dataset file.
type Summary struct {
	Examples         int            `json:"examples"`
	Entities         int            `json:"entities"`
	MeanEntities     float64        `json:"mean_entities"`
	MeanTextLength   float64        `json:"mean_text_length"`
	LabelCounts      map[string]int `json:"label_counts"`
	RegexDetected    int            `json:"regex_detected"`
	RegexDetectRate  float64        `json:"regex_detect_rate"`
	DetectorFindings map[string]int `json:"detector_findings"`
	// CaughtEntities counts entities whose own value still matches the
	// detector rule for their label.
	CaughtEntities   int            `json:"caught_entities"`
	CaughtByLabel    map[string]int `json:"caught_by_label"`
}

// Labels returns the labels present in the summary, sorted.
func (s *Summary) Labels() []string {
	labels := make([]string, 0, len(s.LabelCounts))
	for l := range s.LabelCounts {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// Summarize counts examples and entities and measures how many texts a
// regular-expression detector still flags. detector may be nil.
func Summarize(records []Record, detector *privacy.Detector) *Summary {
	s := &Summary{
		LabelCounts:      make(map[string]int),
		DetectorFindings: make(map[string]int),
		CaughtByLabel:    make(map[string]int),
	}

	var textLen int
	for _, r := range records {
		s.Examples++
		s.Entities += len(r.Entities)
		textLen += len(r.Text)
		for _, e := range r.Entities {
			s.LabelCounts[e.Label]++
		}

		if detector == nil {
			continue
		}
		result := detector.Scan(r.Text)
		if result.Detected() {
			s.RegexDetected++
		}
		for _, f := range result.Findings {
			s.DetectorFindings[f.Rule] += f.Count
		}
		for _, e := range r.Entities {
			label, err := pool.ParseLabel(e.Label)
			if err == nil && detector.Catches(label, e.Value()) {
				s.CaughtEntities++
				s.CaughtByLabel[e.Label]++
			}
		}
	}

	if s.Examples > 0 {
		s.MeanEntities = float64(s.Entities) / float64(s.Examples)
		s.MeanTextLength = float64(textLen) / float64(s.Examples)
		s.RegexDetectRate = float64(s.RegexDetected) / float64(s.Examples)
	}
	return s
}
