package synth

import (
	"slices"
	"strings"
)

// layout is a text cut into alternating plain gaps and entities:
// gaps[0] entities[0] gaps[1] ... entities[n-1] gaps[n].
type layout struct {
	gaps     []string
	entities []Annotation
}

// split cuts text at the given annotations. Annotations whose span does not
// hold their value, or that overlap one already accepted, are returned as
// skipped and their text stays part of the surrounding gap.
func split(text string, annotations []Annotation) (layout, []Skipped) {
	sorted := slices.Clone(annotations)
	slices.SortStableFunc(sorted, func(a, b Annotation) int { return a.Start - b.Start })

	var (
		l       layout
		skipped []Skipped
		cursor  int
	)
	for _, a := range sorted {
		if a.Start < 0 || a.End > len(text) || a.Start >= a.End || text[a.Start:a.End] != a.Value {
			skipped = append(skipped, Skipped{Annotation: a, Err: ErrEntityNotFound})
			continue
		}
		if a.Start < cursor {
			skipped = append(skipped, Skipped{Annotation: a, Err: ErrOverlappingSpan})
			continue
		}
		l.gaps = append(l.gaps, text[cursor:a.Start])
		l.entities = append(l.entities, a)
		cursor = a.End
	}
	l.gaps = append(l.gaps, text[cursor:])
	return l, skipped
}

// builder concatenates pieces and tracks where entities land.
type builder struct {
	sb       strings.Builder
	entities []Annotation
	sep      string
}

func (b *builder) gap(s string) {
	b.write(s)
}

func (b *builder) entity(a Annotation, value string) {
	b.write(value)
	a.End = b.sb.Len()
	a.Start = a.End - len(value)
	a.Value = value
	b.entities = append(b.entities, a)
}

func (b *builder) write(s string) {
	if s == "" {
		return
	}
	if b.sep != "" && b.sb.Len() > 0 {
		b.sb.WriteString(b.sep)
	}
	b.sb.WriteString(s)
}

func (b *builder) sentence() Sentence {
	return Sentence{Text: b.sb.String(), Entities: b.entities}
}
