// Package noise turns clean entity values into the kind of text a
// speech-to-text engine produces for them, and injects disfluency fillers
// into plain context text.
//
// Every function that makes a random choice takes the generator explicitly;
// nothing in this package touches global random state, so a caller that
// seeds its own *rand.Rand gets reproducible output.
package noise

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

// Options tunes the probabilistic rules of a Noisifier.
type Options struct {
	// DigitSpellProb is the chance a digit of a numeric id is spoken as a word.
	DigitSpellProb float64 `yaml:"digit_spell_prob" mapstructure:"digit_spell_prob"` // 0.8
	// EmailSpellProb is the chance an email local part is spelled out.
	EmailSpellProb float64 `yaml:"email_spell_prob" mapstructure:"email_spell_prob"` // 0.3
	// EmailSpellMinLen is the length a local part must exceed to be spelled.
	EmailSpellMinLen int `yaml:"email_spell_min_len" mapstructure:"email_spell_min_len"` // 5
	// PlaceDistortProb is the chance a place name gets vowel distortion.
	PlaceDistortProb float64 `yaml:"place_distort_prob" mapstructure:"place_distort_prob"` // 0.2
}

// DefaultOptions returns the standard noise profile.
func DefaultOptions() Options {
	return Options{
		DigitSpellProb:   0.8,
		EmailSpellProb:   0.3,
		EmailSpellMinLen: 5,
		PlaceDistortProb: 0.2,
	}
}

var (
	dateSeparators = regexp.MustCompile(`[/.\s-]`)
	localPartStrip = strings.NewReplacer(".", "", "_", "")
	placeDistort   = strings.NewReplacer("a", "ah", "e", "eh")
)

// Noisifier rewrites entity values according to their label.
type Noisifier struct {
	opts Options
}

// New creates a Noisifier.
func New(opts Options) *Noisifier {
	return &Noisifier{opts: opts}
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Noisify returns the spoken-style rendering of value. The result is lower
// case, trimmed, and has single spaces between tokens.
func (n *Noisifier) Noisify(rng *rand.Rand, value string, label pool.Label) string {
	out := strings.ToLower(value)

	switch label.Kind() {
	case pool.KindNumericID:
		out = n.numericID(rng, out)
	case pool.KindEmail:
		out = n.email(rng, out)
	case pool.KindPersonName:
		out = respellName(out)
	case pool.KindDate:
		if spoken, ok := speakDate(rng, value); ok {
			out = spoken
		}
	case pool.KindPlace:
		if rng.Float64() < n.opts.PlaceDistortProb {
			out = placeDistort.Replace(out)
		}
	}

	return Normalize(strings.ToLower(out))
}

func (n *Noisifier) numericID(rng *rand.Rand, value string) string {
	var b strings.Builder
	for _, r := range value {
		if words, ok := DigitWords[r]; ok {
			if rng.Float64() < n.opts.DigitSpellProb {
				b.WriteString(pick(rng, words))
			} else {
				b.WriteRune(r)
			}
			b.WriteByte(' ')
			continue
		}
		if words, ok := SymbolWords[r]; ok {
			b.WriteString(pick(rng, words))
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func (n *Noisifier) email(rng *rand.Rand, value string) string {
	var b strings.Builder
	for _, r := range value {
		if words, ok := SymbolWords[r]; ok {
			b.WriteString(pick(rng, words))
		} else {
			b.WriteRune(r)
		}
	}
	out := b.String()

	if rng.Float64() >= n.opts.EmailSpellProb {
		return out
	}
	idx := strings.Index(out, atMarker)
	if idx < 0 {
		return out
	}
	local := out[:idx]
	stripped := localPartStrip.Replace(local)
	if len(stripped) <= n.opts.EmailSpellMinLen {
		return out
	}
	return strings.Replace(out, local, spell(stripped), 1)
}

func respellName(value string) string {
	for _, r := range nameRespelling {
		if strings.Contains(value, r.from) {
			value = strings.ReplaceAll(value, r.from, r.to)
		}
	}
	return value
}

// speakDate renders a day/month/year value digit by digit. It reports false
// when the value does not split into exactly three parts.
func speakDate(rng *rand.Rand, value string) (string, bool) {
	parts := dateSeparators.Split(value, -1)
	if len(parts) != 3 {
		return "", false
	}
	day, month, year := speakDigits(parts[0]), speakDigits(parts[1]), speakDigits(parts[2])
	if rng.IntN(2) == 0 {
		return day + " " + month + " " + year, true
	}
	return "the " + day + " of " + month + " " + year, true
}

func speakDigits(s string) string {
	words := make([]string, 0, len(s))
	for _, r := range s {
		if w, ok := DigitWords[r]; ok {
			words = append(words, w[0])
		}
	}
	return strings.Join(words, " ")
}

func spell(s string) string {
	chars := make([]string, 0, len(s))
	for _, r := range s {
		chars = append(chars, string(r))
	}
	return strings.Join(chars, " ")
}

func pick(rng *rand.Rand, options []string) string {
	return options[rng.IntN(len(options))]
}

// Normalize trims s and collapses internal whitespace runs to one space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
