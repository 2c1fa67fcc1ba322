package privacy

import (
	"regexp"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

// GetDefaultRules returns the built-in rules for the written forms of the
// identifiers the generator produces. Rules run in order, and each one sees
// the text already masked by the rules before it, so card numbers are
// masked before the shorter phone pattern gets a chance at them.
func GetDefaultRules() []Rule {
	return []Rule{
		{
			Name:        "email",
			Label:       pool.LabelEmail,
			Pattern:     regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
			Replacement: "[EMAIL_MASKED]",
		},
		{
			Name:        "credit_card",
			Label:       pool.LabelCreditCard,
			Pattern:     regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),
			Replacement: "[CARD_MASKED]",
		},
		{
			Name:        "phone",
			Label:       pool.LabelPhone,
			Pattern:     regexp.MustCompile(`(?:\+\d{1,3}[ -]?)?\b\d{3}[ -]?\d{3}[ -]?\d{4}\b`),
			Replacement: "[PHONE_MASKED]",
		},
		{
			Name:        "date",
			Label:       pool.LabelDate,
			Pattern:     regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`),
			Replacement: "[DATE_MASKED]",
		},
	}
}
