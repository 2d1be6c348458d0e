package memory

import (
	"context"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/repository"
	"github.com/marvin-labs/memoria/pkg/service/alignment"
)

// Embedder turns text into a vector for the memory store.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Evaluator scores content against the persona.
type Evaluator interface {
	Evaluate(ctx context.Context, content string, persona *model.Persona) *model.Alignment
}

// UseCase provides memory record operations
type UseCase struct {
	store     repository.MemoryStore
	personas  repository.PersonaStore
	embedder  Embedder
	evaluator Evaluator
	threshold float64
	maxLimit  int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithThreshold sets the minimum alignment score for ungated creates.
func WithThreshold(threshold float64) Option {
	return func(uc *UseCase) {
		uc.threshold = threshold
	}
}

// WithMaxLimit sets the upper bound for page sizes.
func WithMaxLimit(limit int) Option {
	return func(uc *UseCase) {
		uc.maxLimit = limit
	}
}

// New creates a new memory UseCase instance
func New(
	store repository.MemoryStore,
	personas repository.PersonaStore,
	embedder Embedder,
	evaluator Evaluator,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		store:     store,
		personas:  personas,
		embedder:  embedder,
		evaluator: evaluator,
		threshold: alignment.DefaultThreshold,
		maxLimit:  100,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
