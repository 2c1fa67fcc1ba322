package noise

import (
	"slices"
	"strings"
	"testing"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

// allowedDigitTokens returns the tokens a digit may be rendered as.
func allowedDigitTokens(d rune) []string {
	return append([]string{string(d)}, DigitWords[d]...)
}

func TestNoisifyNumericID(t *testing.T) {
	n := New(DefaultOptions())

	t.Run("PhoneScenario", func(t *testing.T) {
		const clean = "9876543210"
		for seed := int64(0); seed < 200; seed++ {
			out := n.Noisify(NewRand(seed), clean, pool.LabelPhone)
			tokens := strings.Split(out, " ")
			if len(tokens) != len(clean) {
				t.Fatalf("seed %d: %q has %d tokens, want %d", seed, out, len(tokens), len(clean))
			}
			for i, d := range clean {
				if !slices.Contains(allowedDigitTokens(d), tokens[i]) {
					t.Fatalf("seed %d: token %d = %q not a rendering of %q (output %q)", seed, i, tokens[i], d, out)
				}
			}
		}
	})

	t.Run("OnlyDigitVocabulary", func(t *testing.T) {
		vocab := map[string]bool{}
		for d, words := range DigitWords {
			vocab[string(d)] = true
			for _, w := range words {
				vocab[w] = true
			}
		}
		for seed := int64(0); seed < 100; seed++ {
			out := n.Noisify(NewRand(seed), "4242424242424242", pool.LabelCreditCard)
			for _, tok := range strings.Fields(out) {
				if !vocab[tok] {
					t.Fatalf("seed %d: unexpected token %q in %q", seed, tok, out)
				}
			}
			if out != Normalize(out) || out != strings.ToLower(out) {
				t.Fatalf("seed %d: output not normalized: %q", seed, out)
			}
		}
	})

	t.Run("AlwaysSpellWhenProbabilityOne", func(t *testing.T) {
		opts := DefaultOptions()
		opts.DigitSpellProb = 1
		out := New(opts).Noisify(NewRand(1), "3-5", pool.LabelPhone)
		fields := strings.Fields(out)
		if len(fields) < 3 || fields[0] != "three" || fields[len(fields)-1] != "five" {
			t.Fatalf("unexpected rendering %q", out)
		}
		middle := strings.Join(fields[1:len(fields)-1], " ")
		if !slices.Contains([]string{"dash", "hyphen", "minus"}, middle) {
			t.Errorf("dash verbalized as %q", middle)
		}
	})

	t.Run("NeverSpellWhenProbabilityZero", func(t *testing.T) {
		opts := DefaultOptions()
		opts.DigitSpellProb = 0
		out := New(opts).Noisify(NewRand(1), "8005550199", pool.LabelPhone)
		if out != "8 0 0 5 5 5 0 1 9 9" {
			t.Errorf("got %q", out)
		}
	})
}

func TestNoisifyDate(t *testing.T) {
	n := New(DefaultOptions())
	const (
		bare   = "oh one oh two two oh two four"
		phrase = "the oh one of oh two two oh two four"
	)

	seen := map[string]bool{}
	for seed := int64(0); seed < 100; seed++ {
		out := n.Noisify(NewRand(seed), "01/02/2024", pool.LabelDate)
		if out != bare && out != phrase {
			t.Fatalf("seed %d: unexpected date rendering %q", seed, out)
		}
		seen[out] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected both date shapes across seeds, saw %v", seen)
	}

	t.Run("OtherSeparators", func(t *testing.T) {
		for _, v := range []string{"01-02-2024", "01.02.2024", "01 02 2024"} {
			out := n.Noisify(NewRand(3), v, pool.LabelDate)
			if out != bare && out != phrase {
				t.Errorf("%q rendered as %q", v, out)
			}
		}
	})

	t.Run("MalformedFallsThrough", func(t *testing.T) {
		for _, v := range []string{"2024", "Jan 2024", "1/2/3/4"} {
			out := n.Noisify(NewRand(3), v, pool.LabelDate)
			if out != Normalize(strings.ToLower(v)) {
				t.Errorf("%q rendered as %q, want passthrough", v, out)
			}
		}
	})
}

func TestNoisifyEmail(t *testing.T) {
	t.Run("SymbolsVerbalized", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EmailSpellProb = 0
		n := New(opts)
		for seed := int64(0); seed < 50; seed++ {
			out := n.Noisify(NewRand(seed), "ramesh.sharma@gmail.com", pool.LabelEmail)
			if strings.ContainsAny(out, "@.") {
				t.Fatalf("seed %d: raw symbol left in %q", seed, out)
			}
			if !strings.HasPrefix(out, "ramesh ") || !strings.HasSuffix(out, " com") {
				t.Fatalf("seed %d: unexpected rendering %q", seed, out)
			}
		}
	})

	t.Run("LocalPartSpelled", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EmailSpellProb = 1
		n := New(opts)
		spelled := 0
		for seed := int64(0); seed < 50; seed++ {
			out := n.Noisify(NewRand(seed), "ramesh.sharma@gmail.com", pool.LabelEmail)
			if strings.Contains(out, atMarker) {
				if !strings.HasPrefix(out, "r a m e s h ") {
					t.Fatalf("seed %d: local part not spelled in %q", seed, out)
				}
				spelled++
			} else if !strings.HasPrefix(out, "ramesh ") {
				t.Fatalf("seed %d: local part changed without an at marker: %q", seed, out)
			}
		}
		if spelled == 0 {
			t.Error("no seed produced an at marker")
		}
	})

	t.Run("ShortLocalPartKept", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EmailSpellProb = 1
		n := New(opts)
		for seed := int64(0); seed < 20; seed++ {
			out := n.Noisify(NewRand(seed), "jo@x.io", pool.LabelEmail)
			if !strings.HasPrefix(out, "jo ") {
				t.Fatalf("seed %d: %q", seed, out)
			}
		}
	})

	t.Run("UnderscoreStripped", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EmailSpellProb = 1
		n := New(opts)
		for seed := int64(0); seed < 50; seed++ {
			out := n.Noisify(NewRand(seed), "sales_team@corp.org", pool.LabelEmail)
			if strings.Contains(out, atMarker) && !strings.HasPrefix(out, "s a l e s t e a m at") {
				t.Fatalf("seed %d: %q", seed, out)
			}
		}
	})
}

func TestNoisifyPersonName(t *testing.T) {
	n := New(DefaultOptions())
	tests := map[string]string{
		"Ramesh Sharma":  "ra mesh sharma",
		"Priyanka Verma": "prianca verma",
		"Anil Kumar":     "a nil kumar",
		"Sita Devi":      "seeta devi",
		"Vinay Rao":      "vinay rao",
	}
	for in, want := range tests {
		if got := n.Noisify(NewRand(1), in, pool.LabelPersonName); got != want {
			t.Errorf("Noisify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNoisifyPlace(t *testing.T) {
	opts := DefaultOptions()

	opts.PlaceDistortProb = 1
	if got := New(opts).Noisify(NewRand(1), "Bangalore", pool.LabelCity); got != "bahngahloreh" {
		t.Errorf("distorted city = %q", got)
	}

	opts.PlaceDistortProb = 0
	if got := New(opts).Noisify(NewRand(1), "123 main street,  building A", pool.LabelLocation); got != "123 main street, building a" {
		t.Errorf("plain location = %q", got)
	}
}

func TestNoisifyDeterministic(t *testing.T) {
	n := New(DefaultOptions())
	for _, l := range pool.AllLabels() {
		a := n.Noisify(NewRand(42), "Ramesh.Sharma@gmail.com 01/02/2024", l)
		b := n.Noisify(NewRand(42), "Ramesh.Sharma@gmail.com 01/02/2024", l)
		if a != b {
			t.Errorf("%s: same seed gave %q and %q", l, a, b)
		}
	}
}

func TestInjectFillers(t *testing.T) {
	vocab := []string{"um"}

	t.Run("DefaultVocabularyLowercase", func(t *testing.T) {
		for _, f := range Fillers {
			if f != strings.ToLower(f) {
				t.Errorf("filler %q is not lower-case", f)
			}
		}
	})

	t.Run("Count", func(t *testing.T) {
		tests := []struct {
			segment string
			want    int
		}{
			{"", 1},
			{"one", 1},
			{"a b c d e", 1},
			{"a b c d e f g h i j", 2},
			{"a b c d e f g h i j k l m n o p", 3},
		}
		for _, tt := range tests {
			out := InjectFillers(NewRand(7), tt.segment, vocab)
			fields := strings.Fields(out)
			got := len(fields) - len(strings.Fields(tt.segment))
			if got != tt.want {
				t.Errorf("%q: inserted %d fillers, want %d (%q)", tt.segment, got, tt.want, out)
			}
		}
	})

	t.Run("PreservesTokenOrder", func(t *testing.T) {
		segment := "my credit card number is really long and spoken slowly today"
		for seed := int64(0); seed < 50; seed++ {
			out := InjectFillers(NewRand(seed), segment, vocab)
			fields := strings.Fields(out)
			kept := slices.DeleteFunc(slices.Clone(fields), func(s string) bool { return s == "um" })
			if strings.Join(kept, " ") != segment {
				t.Fatalf("seed %d: tokens reordered: %q", seed, out)
			}
			for i := 1; i < len(fields); i++ {
				if fields[i] == "um" && fields[i-1] == "um" {
					t.Fatalf("seed %d: adjacent fillers at distinct positions: %q", seed, out)
				}
			}
		}
	})

	t.Run("NormalizesWhitespace", func(t *testing.T) {
		out := InjectFillers(NewRand(1), "  a \t b  ", vocab)
		if out != Normalize(out) {
			t.Errorf("not normalized: %q", out)
		}
	})

	t.Run("EmptyVocabulary", func(t *testing.T) {
		if out := InjectFillers(NewRand(1), " a  b ", nil); out != "a b" {
			t.Errorf("got %q", out)
		}
	})
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  a \n\t b   c "); got != "a b c" {
		t.Errorf("Normalize = %q", got)
	}
}
