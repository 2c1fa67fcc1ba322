package privacy

import (
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

func newDetector(t *testing.T, cfg Config) *Detector {
	t.Helper()
	d, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestScan(t *testing.T) {
	d := newDetector(t, Config{Enabled: true, Detectors: []string{"all"}})

	tests := []struct {
		name   string
		text   string
		masked string
		rules  []string
	}{
		{"CreditCard", "pay with 4242424242424242 today", "pay with [CARD_MASKED] today", []string{"credit_card"}},
		{"Phone", "call 9876543210 now", "call [PHONE_MASKED] now", []string{"phone"}},
		{"Email", "mail ramesh.sharma@gmail.com please", "mail [EMAIL_MASKED] please", []string{"email"}},
		{"Date", "born on 01/02/2024", "born on [DATE_MASKED]", []string{"date"}},
		{"CardBeforePhone", "card 4242 4242 4242 4242 and phone 987-654-3210", "card [CARD_MASKED] and phone [PHONE_MASKED]", []string{"credit_card", "phone"}},
		{"SpokenDigits", "my number is nine eight 7 6 5 4 3 2 1 0", "my number is nine eight 7 6 5 4 3 2 1 0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Scan(tt.text)
			if result.Masked != tt.masked {
				t.Errorf("masked = %q, want %q", result.Masked, tt.masked)
			}
			var rules []string
			for _, f := range result.Findings {
				rules = append(rules, f.Rule)
			}
			if !reflect.DeepEqual(rules, tt.rules) {
				t.Errorf("findings = %v, want %v", rules, tt.rules)
			}
			if result.Detected() != (len(tt.rules) > 0) {
				t.Errorf("Detected() = %v", result.Detected())
			}
		})
	}

	t.Run("Positions", func(t *testing.T) {
		result := d.Scan("call 9876543210 or 9123456789")
		if len(result.Findings) != 1 || !reflect.DeepEqual(result.Findings[0].Positions, []int{5, 19}) {
			t.Errorf("unexpected findings %+v", result.Findings)
		}
		if result.Findings[0].Label != pool.LabelPhone {
			t.Errorf("label = %v", result.Findings[0].Label)
		}
	})
}

func TestDisabledDetector(t *testing.T) {
	d := newDetector(t, Config{Enabled: false, Detectors: []string{"all"}})
	if got := d.Mask("call 9876543210"); got != "call 9876543210" {
		t.Errorf("disabled detector masked text: %q", got)
	}
	if d.Catches(pool.LabelPhone, "9876543210") {
		t.Error("disabled detector caught a value")
	}
}

func TestRuleSelection(t *testing.T) {
	d := newDetector(t, Config{Enabled: true, Detectors: []string{"phone", "email"}})
	if got := d.Rules(); !reflect.DeepEqual(got, []string{"email", "phone"}) {
		t.Errorf("Rules() = %v, want built-in order", got)
	}
	if d.Scan("born on 01/02/2024").Detected() {
		t.Error("date rule should be inactive")
	}

	_, err := New(Config{Enabled: true, Detectors: []string{"ssn"}}, zap.NewNop())
	if !errors.Is(err, ErrUnknownRule) {
		t.Errorf("New(ssn) error = %v, want ErrUnknownRule", err)
	}
}

func TestCatches(t *testing.T) {
	d := newDetector(t, Config{Enabled: true, Detectors: []string{"all"}})

	tests := []struct {
		label pool.Label
		value string
		want  bool
	}{
		{pool.LabelPhone, "9876543210", true},
		{pool.LabelPhone, "nine eight seven six five four three two one zero", false},
		{pool.LabelEmail, "ramesh.sharma@gmail.com", true},
		{pool.LabelEmail, "r a m e s h at gmail dot com", false},
		{pool.LabelDate, "12/03/2021", true},
		{pool.LabelDate, "twelve march twenty twenty one", false},
		{pool.LabelCity, "Mumbai", false},
		// a rule only counts for its own label
		{pool.LabelPersonName, "9876543210", false},
	}
	for _, tt := range tests {
		t.Run(tt.label.String()+"/"+tt.value, func(t *testing.T) {
			if got := d.Catches(tt.label, tt.value); got != tt.want {
				t.Errorf("Catches(%v, %q) = %v, want %v", tt.label, tt.value, got, tt.want)
			}
		})
	}
}
