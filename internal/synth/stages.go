package synth

import (
	"math/rand/v2"
	"strings"

	"github.com/raaihank/stt-pii-datagen/internal/noise"
)

// SubstituteNoisy replaces every entity of clean with its noisy rendering.
// Context text is copied unchanged. Entities that cannot be located, that
// overlap, or whose rendering comes out empty are reported as skipped and
// do not appear in the result; an unlocatable entity's text is kept as
// context.
func SubstituteNoisy(rng *rand.Rand, n *noise.Noisifier, clean Sentence) (Sentence, []Skipped) {
	l, skipped := split(clean.Text, clean.Entities)

	var b builder
	for i, e := range l.entities {
		b.gap(l.gaps[i])
		noisy := n.Noisify(rng, e.Value, e.Label)
		if noisy == "" {
			skipped = append(skipped, Skipped{Annotation: e, Err: ErrEmptyValue})
			continue
		}
		b.entity(e, noisy)
	}
	b.gap(l.gaps[len(l.gaps)-1])

	return b.sentence(), skipped
}

// ApplyContextNoise lowercases every context gap between entities and
// injects fillers into it, then joins the non-empty pieces with single
// spaces. Entity text is never altered; spans are recomputed from where
// each piece lands.
func ApplyContextNoise(rng *rand.Rand, text string, entities []Annotation, fillers []string) (Sentence, []Skipped) {
	l, skipped := split(text, entities)

	b := builder{sep: " "}
	for i, e := range l.entities {
		b.gap(noise.InjectFillers(rng, strings.ToLower(l.gaps[i]), fillers))
		b.entity(e, e.Value)
	}
	b.gap(noise.InjectFillers(rng, strings.ToLower(l.gaps[len(l.gaps)-1]), fillers))

	return b.sentence(), skipped
}
