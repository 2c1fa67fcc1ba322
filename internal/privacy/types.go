package privacy

import (
	"errors"
	"regexp"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

// ErrUnknownRule is returned for a rule name that is not built in.
var ErrUnknownRule = errors.New("unknown detection rule")

// Rule matches the written form of one entity label.
type Rule struct {
	Name        string
	Label       pool.Label
	Pattern     *regexp.Regexp
	Replacement string
}

// Finding counts the matches of one rule in a text.
type Finding struct {
	Rule      string     `json:"rule"`
	Label     pool.Label `json:"label"`
	Count     int        `json:"count"`
	Positions []int      `json:"positions,omitempty"`
}

// Result is the outcome of scanning one text.
type Result struct {
	Masked   string    `json:"masked"`
	Findings []Finding `json:"findings"`
}

// Detected reports whether any rule matched.
func (r Result) Detected() bool {
	return len(r.Findings) > 0
}

// Config contains detector configuration
type Config struct {
	Enabled   bool     `yaml:"enabled" mapstructure:"enabled"`
	Detectors []string `yaml:"detectors" mapstructure:"detectors"` // rule names or "all"
}
