package synth

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/noise"
	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

// Generator runs the three stages that turn a template draw into an example.
type Generator struct {
	assembler *Assembler
	noisifier *noise.Noisifier
	fillers   []string
	logger    *zap.Logger
}

// NewGenerator creates a Generator. A nil fillers slice uses noise.Fillers.
func NewGenerator(provider pool.Provider, noisifier *noise.Noisifier, fillers []string, logger *zap.Logger) *Generator {
	if fillers == nil {
		fillers = noise.Fillers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		assembler: NewAssembler(provider),
		noisifier: noisifier,
		fillers:   fillers,
		logger:    logger,
	}
}

// Generate produces one example of split with the given id. Errors are
// returned for configuration problems such as an unknown split, or when the
// finished spans do not hold their values; entities a stage had to drop are
// logged and left out of the example.
func (g *Generator) Generate(rng *rand.Rand, split, id string) (Example, error) {
	clean, err := g.assembler.Assemble(rng, split)
	if err != nil {
		return Example{}, err
	}

	noisy, skipped := SubstituteNoisy(rng, g.noisifier, clean)
	g.logSkipped(id, "substitute", skipped)

	final, skipped := ApplyContextNoise(rng, noisy.Text, noisy.Entities, g.fillers)
	g.logSkipped(id, "context", skipped)

	if err := CheckInvariants(final.Text, final.Entities); err != nil {
		return Example{}, fmt.Errorf("%s: %w", id, err)
	}
	return Example{ID: id, Text: final.Text, Entities: final.Entities}, nil
}

// Noisify exposes the single-value rendering used by the substitute stage.
func (g *Generator) Noisify(rng *rand.Rand, value string, label pool.Label) string {
	return g.noisifier.Noisify(rng, value, label)
}

func (g *Generator) logSkipped(id, stage string, skipped []Skipped) {
	for _, s := range skipped {
		g.logger.Debug("Entity dropped",
			zap.String("id", id),
			zap.String("stage", stage),
			zap.Stringer("label", s.Annotation.Label),
			zap.String("value", s.Annotation.Value),
			zap.Error(s.Err))
	}
}
