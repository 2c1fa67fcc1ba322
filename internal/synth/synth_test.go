package synth

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/noise"
	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

func staticProvider(t *testing.T, ep pool.EntityPool, templates ...pool.Template) *pool.Static {
	t.Helper()
	p, err := pool.NewStatic([]string{"s"},
		map[string]pool.EntityPool{"s": ep},
		map[string][]pool.Template{"s": templates})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAssemble(t *testing.T) {
	t.Run("BuiltinInvariants", func(t *testing.T) {
		a := NewAssembler(pool.Builtin())
		for _, split := range []string{pool.SplitTrain, pool.SplitDev} {
			for seed := int64(0); seed < 300; seed++ {
				s, err := a.Assemble(noise.NewRand(seed), split)
				if err != nil {
					t.Fatalf("%s seed %d: %v", split, seed, err)
				}
				if err := CheckInvariants(s.Text, s.Entities); err != nil {
					t.Fatalf("%s seed %d: %v\n%q", split, seed, err, s.Text)
				}
				if strings.ContainsAny(s.Text, "{}") {
					t.Fatalf("%s seed %d: unfilled placeholder in %q", split, seed, s.Text)
				}
				if len(s.Entities) == 0 {
					t.Fatalf("%s seed %d: no entities in %q", split, seed, s.Text)
				}
				for _, e := range s.Entities {
					if e.Value != e.Clean {
						t.Fatalf("clean stage changed value: %+v", e)
					}
				}
			}
		}
	})

	t.Run("RepeatedPlaceholder", func(t *testing.T) {
		p := staticProvider(t, pool.EntityPool{pool.LabelCity: {"Pune"}},
			pool.Template{Text: "from {CITY} to {CITY}", Labels: []pool.Label{pool.LabelCity}})
		s, err := NewAssembler(p).Assemble(noise.NewRand(1), "s")
		if err != nil {
			t.Fatal(err)
		}
		want := []Span{{Start: 5, End: 9}, {Start: 13, End: 17}}
		if s.Text != "from Pune to Pune" || len(s.Entities) != 2 {
			t.Fatalf("got %q %+v", s.Text, s.Entities)
		}
		for i, e := range s.Entities {
			if e.Span != want[i] {
				t.Errorf("entity %d span %+v, want %+v", i, e.Span, want[i])
			}
		}
	})

	t.Run("IncidentalLiteralMatch", func(t *testing.T) {
		p := staticProvider(t, pool.EntityPool{pool.LabelPhone: {"123"}},
			pool.Template{Text: "call {PHONE} or 123", Labels: []pool.Label{pool.LabelPhone}})
		s, err := NewAssembler(p).Assemble(noise.NewRand(1), "s")
		if err != nil {
			t.Fatal(err)
		}
		if len(s.Entities) != 2 || s.Entities[1].Start != 12 {
			t.Fatalf("expected the literal occurrence to be annotated, got %+v", s.Entities)
		}
	})

	t.Run("OverlappingMatchDiscarded", func(t *testing.T) {
		p := staticProvider(t, pool.EntityPool{
			pool.LabelPhone:      {"98765"},
			pool.LabelCreditCard: {"1198765"},
		}, pool.Template{Text: "{PHONE} {CREDIT_CARD}", Labels: []pool.Label{pool.LabelPhone, pool.LabelCreditCard}})
		s, err := NewAssembler(p).Assemble(noise.NewRand(1), "s")
		if err != nil {
			t.Fatal(err)
		}
		if len(s.Entities) != 2 {
			t.Fatalf("expected 2 entities, got %+v", s.Entities)
		}
		if err := CheckInvariants(s.Text, s.Entities); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("UnknownSplit", func(t *testing.T) {
		_, err := NewAssembler(pool.Builtin()).Assemble(noise.NewRand(1), "test")
		if !errors.Is(err, pool.ErrUnknownSplit) {
			t.Errorf("expected ErrUnknownSplit, got %v", err)
		}
	})

	t.Run("MalformedTemplate", func(t *testing.T) {
		p := staticProvider(t, pool.EntityPool{pool.LabelCity: {"Pune"}},
			pool.Template{Text: "in {CITY} on {DATE}", Labels: []pool.Label{pool.LabelCity}})
		_, err := NewAssembler(p).Assemble(noise.NewRand(1), "s")
		if !errors.Is(err, pool.ErrMalformedTemplate) {
			t.Errorf("expected ErrMalformedTemplate, got %v", err)
		}
	})

	t.Run("NoTemplates", func(t *testing.T) {
		p := staticProvider(t, pool.EntityPool{pool.LabelCity: {"Pune"}})
		_, err := NewAssembler(p).Assemble(noise.NewRand(1), "s")
		if !errors.Is(err, ErrNoTemplates) {
			t.Errorf("expected ErrNoTemplates, got %v", err)
		}
	})
}

func TestSubstituteNoisy(t *testing.T) {
	n := noise.New(noise.DefaultOptions())

	t.Run("PhoneScenario", func(t *testing.T) {
		clean := Sentence{
			Text:     "Call me at 9876543210 tomorrow",
			Entities: []Annotation{{Span: Span{Start: 11, End: 21}, Label: pool.LabelPhone, Value: "9876543210", Clean: "9876543210"}},
		}
		out, skipped := SubstituteNoisy(noise.NewRand(5), n, clean)
		if len(skipped) != 0 {
			t.Fatalf("unexpected skips: %v", skipped)
		}
		if !strings.HasPrefix(out.Text, "Call me at ") || !strings.HasSuffix(out.Text, " tomorrow") {
			t.Errorf("context changed: %q", out.Text)
		}
		e := out.Entities[0]
		if e.Start != 11 || out.Text[e.Start:e.End] != e.Value || e.Clean != "9876543210" {
			t.Errorf("bad entity %+v in %q", e, out.Text)
		}
		if len(strings.Fields(e.Value)) != 10 {
			t.Errorf("expected one token per digit, got %q", e.Value)
		}
	})

	t.Run("BuiltinRoundTrip", func(t *testing.T) {
		a := NewAssembler(pool.Builtin())
		for seed := int64(0); seed < 300; seed++ {
			rng := noise.NewRand(seed)
			clean, err := a.Assemble(rng, pool.SplitTrain)
			if err != nil {
				t.Fatal(err)
			}
			out, skipped := SubstituteNoisy(rng, n, clean)
			if len(skipped) != 0 {
				t.Fatalf("seed %d: unexpected skips %v", seed, skipped)
			}
			if len(out.Entities) != len(clean.Entities) {
				t.Fatalf("seed %d: entity count changed", seed)
			}
			if err := CheckInvariants(out.Text, out.Entities); err != nil {
				t.Fatalf("seed %d: %v", seed, err)
			}
		}
	})

	t.Run("SkipsBadAnnotations", func(t *testing.T) {
		clean := Sentence{
			Text: "pay 4242 now 4242",
			Entities: []Annotation{
				{Span: Span{Start: 4, End: 8}, Label: pool.LabelCreditCard, Value: "4242"},
				{Span: Span{Start: 6, End: 10}, Label: pool.LabelCreditCard, Value: "42 n"},
				{Span: Span{Start: 13, End: 17}, Label: pool.LabelCreditCard, Value: "9999"},
			},
		}
		out, skipped := SubstituteNoisy(noise.NewRand(1), n, clean)
		if len(out.Entities) != 1 || len(skipped) != 2 {
			t.Fatalf("got %d entities and %d skips", len(out.Entities), len(skipped))
		}
		errs := []error{skipped[0].Err, skipped[1].Err}
		if !slices.Contains(errs, ErrOverlappingSpan) || !slices.Contains(errs, ErrEntityNotFound) {
			t.Errorf("unexpected skip reasons %v", errs)
		}
		if !strings.HasSuffix(out.Text, " now 4242") {
			t.Errorf("unlocatable entity text should stay as context: %q", out.Text)
		}
		if err := CheckInvariants(out.Text, out.Entities); err != nil {
			t.Error(err)
		}
	})
}

func TestApplyContextNoise(t *testing.T) {
	entities := []Annotation{{Span: Span{Start: 13, End: 23}, Label: pool.LabelPhone, Value: "nine eight", Clean: "98"}}
	const text = "My Number IS nine eight   Thanks"

	t.Run("NoFillers", func(t *testing.T) {
		out, skipped := ApplyContextNoise(noise.NewRand(1), text, entities, []string{})
		if len(skipped) != 0 {
			t.Fatal(skipped)
		}
		if out.Text != "my number is nine eight thanks" {
			t.Errorf("text = %q", out.Text)
		}
		want := Annotation{Span: Span{Start: 13, End: 23}, Label: pool.LabelPhone, Value: "nine eight", Clean: "98"}
		if !reflect.DeepEqual(out.Entities, []Annotation{want}) {
			t.Errorf("entities = %+v", out.Entities)
		}
	})

	t.Run("FillersStayOutsideEntities", func(t *testing.T) {
		for seed := int64(0); seed < 100; seed++ {
			out, _ := ApplyContextNoise(noise.NewRand(seed), text, entities, []string{"um"})
			if err := CheckInvariants(out.Text, out.Entities); err != nil {
				t.Fatalf("seed %d: %v", seed, err)
			}
			if out.Entities[0].Value != "nine eight" {
				t.Fatalf("seed %d: entity altered: %+v", seed, out.Entities[0])
			}
			kept := slices.DeleteFunc(strings.Fields(out.Text), func(s string) bool { return s == "um" })
			if strings.Join(kept, " ") != "my number is nine eight thanks" {
				t.Fatalf("seed %d: %q", seed, out.Text)
			}
		}
	})

	t.Run("AdjacentEntities", func(t *testing.T) {
		adj := []Annotation{
			{Span: Span{Start: 0, End: 1}, Label: pool.LabelCity, Value: "a"},
			{Span: Span{Start: 1, End: 2}, Label: pool.LabelCity, Value: "b"},
		}
		out, _ := ApplyContextNoise(noise.NewRand(1), "ab", adj, nil)
		// No vocabulary means empty gaps vanish.
		if out.Text != "a b" || out.Entities[1].Start != 2 {
			t.Errorf("got %q %+v", out.Text, out.Entities)
		}

		out, _ = ApplyContextNoise(noise.NewRand(1), "ab", adj, []string{"um"})
		if out.Text != "um a um b um" {
			t.Errorf("every empty gap should get one filler, got %q", out.Text)
		}
		if err := CheckInvariants(out.Text, out.Entities); err != nil {
			t.Error(err)
		}
	})
}

func TestGenerator(t *testing.T) {
	g := NewGenerator(pool.Builtin(), noise.New(noise.DefaultOptions()), nil, zap.NewNop())

	t.Run("Deterministic", func(t *testing.T) {
		run := func() []Example {
			rng := noise.NewRand(42)
			var out []Example
			for i := 0; i < 50; i++ {
				ex, err := g.Generate(rng, pool.SplitTrain, "x")
				if err != nil {
					t.Fatal(err)
				}
				out = append(out, ex)
			}
			return out
		}
		if !reflect.DeepEqual(run(), run()) {
			t.Error("same seed produced different examples")
		}
	})

	t.Run("Invariants", func(t *testing.T) {
		rng := noise.NewRand(100)
		for i := 0; i < 300; i++ {
			ex, err := g.Generate(rng, pool.SplitDev, "x")
			if err != nil {
				t.Fatal(err)
			}
			if ex.Degenerate() {
				t.Fatalf("degenerate example %+v", ex)
			}
			if err := CheckInvariants(ex.Text, ex.Entities); err != nil {
				t.Fatalf("%v\n%q", err, ex.Text)
			}
			if ex.Text != strings.ToLower(ex.Text) || ex.Text != noise.Normalize(ex.Text) {
				t.Fatalf("text not normalized: %q", ex.Text)
			}
		}
	})

	t.Run("UnknownSplit", func(t *testing.T) {
		if _, err := g.Generate(noise.NewRand(1), "holdout", "x"); !errors.Is(err, pool.ErrUnknownSplit) {
			t.Errorf("expected ErrUnknownSplit, got %v", err)
		}
	})
}

func TestCheckInvariants(t *testing.T) {
	text := "abc def"
	tests := []struct {
		name     string
		entities []Annotation
		wantErr  error
	}{
		{"Valid", []Annotation{{Span: Span{0, 3}, Value: "abc"}, {Span: Span{4, 7}, Value: "def"}}, nil},
		{"Mismatch", []Annotation{{Span: Span{0, 3}, Value: "abd"}}, ErrEntityNotFound},
		{"Overlap", []Annotation{{Span: Span{0, 3}, Value: "abc"}, {Span: Span{2, 5}, Value: "c d"}}, ErrOverlappingSpan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInvariants(text, tt.entities)
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if err := CheckInvariants(text, []Annotation{{Span: Span{5, 9}, Value: "ef"}}); err == nil {
		t.Error("out of range span accepted")
	}
}
