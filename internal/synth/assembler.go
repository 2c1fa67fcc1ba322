// Package synth builds annotated utterances. A clean sentence is assembled
// from a template, its entities are rewritten into speech-to-text form and
// the surrounding context is lowercased and padded with fillers. Every stage
// rebuilds the text from gaps and entities, so spans always come from
// cumulative lengths and never from searching the new text.
package synth

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

// ErrNoTemplates is returned when a split has nothing to draw from.
var ErrNoTemplates = errors.New("split has no templates")

// Assembler fills templates with values drawn from a split's pools.
type Assembler struct {
	provider pool.Provider
}

// NewAssembler creates an Assembler over provider.
func NewAssembler(provider pool.Provider) *Assembler {
	return &Assembler{provider: provider}
}

// Assemble draws one template of split uniformly, draws one value per
// declared label and fills every placeholder occurrence. Each placeholder
// occurrence becomes an annotation. Literal template text that happens to
// contain one of the drawn values is annotated as well, unless it would
// overlap an annotation already taken.
func (a *Assembler) Assemble(rng *rand.Rand, split string) (Sentence, error) {
	pools, templates, err := a.provider.Pools(split)
	if err != nil {
		return Sentence{}, err
	}
	if len(templates) == 0 {
		return Sentence{}, fmt.Errorf("%s: %w", split, ErrNoTemplates)
	}

	tmpl := templates[rng.IntN(len(templates))]
	pieces, err := tmpl.Pieces()
	if err != nil {
		return Sentence{}, err
	}

	values := make(map[pool.Label]string, len(tmpl.Labels))
	for _, label := range tmpl.Labels {
		candidates := pools[label]
		if len(candidates) == 0 {
			return Sentence{}, fmt.Errorf("%w: split %s has no %s values", pool.ErrMalformedTemplate, split, label)
		}
		values[label] = candidates[rng.IntN(len(candidates))]
	}

	var (
		sb       strings.Builder
		entities []Annotation
	)
	for _, p := range pieces {
		if !p.Slot {
			sb.WriteString(p.Literal)
			continue
		}
		v := values[p.Label]
		start := sb.Len()
		sb.WriteString(v)
		if v == "" {
			continue
		}
		entities = append(entities, Annotation{
			Span:  Span{Start: start, End: sb.Len()},
			Label: p.Label,
			Value: v,
			Clean: v,
		})
	}
	text := sb.String()

	for _, label := range tmpl.Labels {
		entities = scanIncidental(text, label, values[label], entities)
	}
	slices.SortFunc(entities, func(x, y Annotation) int { return x.Start - y.Start })

	return Sentence{Text: text, Entities: entities}, nil
}

// scanIncidental adds every left-to-right occurrence of value in text that
// does not overlap an existing annotation.
func scanIncidental(text string, label pool.Label, value string, entities []Annotation) []Annotation {
	if value == "" {
		return entities
	}
	for from := 0; from <= len(text)-len(value); {
		i := strings.Index(text[from:], value)
		if i < 0 {
			break
		}
		span := Span{Start: from + i, End: from + i + len(value)}
		if !overlapsAny(span, entities) {
			entities = append(entities, Annotation{Span: span, Label: label, Value: value, Clean: value})
		}
		from = span.End
	}
	return entities
}

func overlapsAny(span Span, entities []Annotation) bool {
	for _, e := range entities {
		if span.Overlaps(e.Span) {
			return true
		}
	}
	return false
}
