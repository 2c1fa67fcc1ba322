// Package privacy runs regular-expression PII detectors over text. The
// generator uses it to measure how much of a dataset a plain pattern matcher
// would still catch, and the preview server uses it to keep entity values
// out of request logs.
package privacy

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

// Detector applies the selected rules in their built-in order.
type Detector struct {
	rules   []Rule
	enabled bool
	logger  *zap.Logger
}

// New creates a Detector running the rules named in cfg.Detectors. A
// disabled config yields a detector that never matches.
func New(cfg Config, log *zap.Logger) (*Detector, error) {
	rules, err := selectRules(GetDefaultRules(), cfg.Detectors)
	if err != nil {
		return nil, fmt.Errorf("failed to configure detectors: %w", err)
	}

	d := &Detector{rules: rules, enabled: cfg.Enabled, logger: log}
	log.Debug("Privacy detector initialized",
		zap.Bool("enabled", cfg.Enabled),
		zap.Strings("rules", d.Rules()))
	return d, nil
}

func selectRules(all []Rule, names []string) ([]Rule, error) {
	if slices.Contains(names, "all") {
		return all, nil
	}
	for _, name := range names {
		if !slices.ContainsFunc(all, func(r Rule) bool { return r.Name == name }) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, name)
		}
	}
	return slices.DeleteFunc(all, func(r Rule) bool { return !slices.Contains(names, r.Name) }), nil
}

// Scan runs every rule over text. Each rule sees the text already masked by
// the rules before it, so positions are byte offsets into that text.
func (d *Detector) Scan(text string) Result {
	result := Result{Masked: text}
	if !d.enabled {
		return result
	}

	for _, rule := range d.rules {
		matches := rule.Pattern.FindAllStringIndex(result.Masked, -1)
		if len(matches) == 0 {
			continue
		}

		positions := make([]int, len(matches))
		for i, m := range matches {
			positions[i] = m[0]
		}
		result.Findings = append(result.Findings, Finding{
			Rule:      rule.Name,
			Label:     rule.Label,
			Count:     len(matches),
			Positions: positions,
		})
		result.Masked = rule.Pattern.ReplaceAllString(result.Masked, rule.Replacement)
	}
	return result
}

// Mask returns text with every match replaced.
func (d *Detector) Mask(text string) string {
	return d.Scan(text).Masked
}

// Catches reports whether a rule for label still matches somewhere in
// value. Labels without a rule are never caught.
func (d *Detector) Catches(label pool.Label, value string) bool {
	if !d.enabled {
		return false
	}
	for _, rule := range d.rules {
		if rule.Label == label && rule.Pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// Rules returns the names of the active rules in evaluation order.
func (d *Detector) Rules() []string {
	names := make([]string, len(d.rules))
	for i, r := range d.rules {
		names[i] = r.Name
	}
	return names
}
