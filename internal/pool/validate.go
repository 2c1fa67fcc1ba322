package pool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// Validate checks every split of p.
//
// Rules:
//   - Each split has at least one template.
//   - Every template parses, lists each label once and has a non-empty
//     pool for each label.
//   - No pool contains an empty value.
//   - Within one template, no candidate value of one label is a substring
//     of a candidate value of another label, and no candidate value occurs
//     in the template's literal text. Either would make span detection
//     ambiguous.
func Validate(p Provider) error {
	var errs []error
	for _, split := range p.Splits() {
		ep, templates, err := p.Pools(split)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := validateSplit(ep, templates); err != nil {
			errs = append(errs, fmt.Errorf("split %q: %w", split, err))
		}
	}
	return errors.Join(errs...)
}

func validateSplit(ep EntityPool, templates []Template) error {
	var errs []error

	if len(templates) == 0 {
		errs = append(errs, errors.New("no templates"))
	}
	for _, label := range AllLabels() {
		for i, v := range ep[label] {
			if v == "" {
				errs = append(errs, fmt.Errorf("%s[%d]: empty value", label, i))
			}
		}
	}

	for ti, t := range templates {
		if _, err := t.Pieces(); err != nil {
			errs = append(errs, fmt.Errorf("template[%d]: %w", ti, err))
			continue
		}

		seen := make(map[Label]bool, len(t.Labels))
		for _, label := range t.Labels {
			if seen[label] {
				errs = append(errs, fmt.Errorf("template[%d]: label %s listed twice", ti, label))
			}
			seen[label] = true
			if len(ep[label]) == 0 {
				errs = append(errs, fmt.Errorf("template[%d]: no values for %s", ti, label))
			}
		}

		errs = append(errs, collisions(ti, t, ep)...)
	}

	return errors.Join(errs...)
}

// collisions reports values that would be found inside another span or in
// the literal text of template t.
func collisions(ti int, t Template, ep EntityPool) []error {
	var errs []error
	literals := t.Literals()
	for _, a := range t.Labels {
		for _, va := range ep[a] {
			if va == "" {
				continue
			}
			for _, lit := range literals {
				if strings.Contains(lit, va) {
					errs = append(errs, fmt.Errorf("template[%d]: %s value %q occurs in literal text", ti, a, va))
				}
			}
			for _, b := range t.Labels {
				if a == b {
					continue
				}
				for _, vb := range ep[b] {
					if strings.Contains(vb, va) {
						errs = append(errs, fmt.Errorf("template[%d]: %s value %q is a substring of %s value %q", ti, a, va, b, vb))
					}
				}
			}
		}
	}
	return errs
}

// Leak is a candidate value shared, or nearly shared, between two splits.
type Leak struct {
	Label      Label
	SplitA     string
	ValueA     string
	SplitB     string
	ValueB     string
	Similarity float64
}

// CheckLeakage compares every pair of splits label by label and returns
// values that are identical or whose Jaro-Winkler similarity (case-folded)
// reaches threshold.
func CheckLeakage(p Provider, threshold float64) ([]Leak, error) {
	splits := p.Splits()
	var leaks []Leak
	for i := 0; i < len(splits); i++ {
		a, _, err := p.Pools(splits[i])
		if err != nil {
			return nil, err
		}
		for j := i + 1; j < len(splits); j++ {
			b, _, err := p.Pools(splits[j])
			if err != nil {
				return nil, err
			}
			for _, label := range AllLabels() {
				for _, va := range a[label] {
					for _, vb := range b[label] {
						sim := 1.0
						if va != vb {
							sim = matchr.JaroWinkler(strings.ToLower(va), strings.ToLower(vb), false)
						}
						if sim >= threshold {
							leaks = append(leaks, Leak{
								Label:      label,
								SplitA:     splits[i],
								ValueA:     va,
								SplitB:     splits[j],
								ValueB:     vb,
								Similarity: sim,
							})
						}
					}
				}
			}
		}
	}
	return leaks, nil
}
