package pool

import (
	"fmt"
	"regexp"
	"slices"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Z_]+)\}`)

// Piece is one segment of a parsed template: literal text when Slot is
// false, otherwise a placeholder for Label.
type Piece struct {
	Literal string
	Label   Label
	Slot    bool
}

// Pieces splits the template into literal and placeholder segments in
// order. It fails with ErrMalformedTemplate when a placeholder names an
// unknown label or when placeholders and Labels do not match one to one.
func (t Template) Pieces() ([]Piece, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(t.Text, -1)

	pieces := make([]Piece, 0, 2*len(matches)+1)
	seen := make(map[Label]bool, len(matches))
	last := 0
	for _, m := range matches {
		label, err := ParseLabel(t.Text[m[2]:m[3]])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedTemplate, t.Text, err)
		}
		if m[0] > last {
			pieces = append(pieces, Piece{Literal: t.Text[last:m[0]]})
		}
		pieces = append(pieces, Piece{Label: label, Slot: true})
		seen[label] = true
		last = m[1]
	}
	if last < len(t.Text) {
		pieces = append(pieces, Piece{Literal: t.Text[last:]})
	}

	for label := range seen {
		if !slices.Contains(t.Labels, label) {
			return nil, fmt.Errorf("%w: %q: placeholder %s missing from labels", ErrMalformedTemplate, t.Text, label)
		}
	}
	for _, label := range t.Labels {
		if !seen[label] {
			return nil, fmt.Errorf("%w: %q: label %s has no placeholder", ErrMalformedTemplate, t.Text, label)
		}
	}
	return pieces, nil
}

// Literals returns the template text with every placeholder removed, one
// entry per literal segment.
func (t Template) Literals() []string {
	parts := placeholderPattern.Split(t.Text, -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
