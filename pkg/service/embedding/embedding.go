package embedding

import (
	"context"
	"strings"
	"time"

	"github.com/marvin-labs/memoria/pkg/adapter"
	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

const DefaultDimension = 1536

// Service turns text into embedding vectors for the memory store.
//
// Embedding failures never abort the caller's write path: after one retry the
// service logs the failure and returns a zero vector of the configured
// dimension, so the record is still stored and findable by filters even
// though similarity search will not rank it.
type Service struct {
	gemini     adapter.Gemini
	dimension  int
	retryDelay time.Duration
}

type Option func(*Service)

func WithDimension(d int) Option {
	return func(s *Service) {
		s.dimension = d
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = d
	}
}

func New(gemini adapter.Gemini, opts ...Option) *Service {
	s := &Service{
		gemini:     gemini,
		dimension:  DefaultDimension,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Dimension() int {
	return s.dimension
}

// Embed returns a vector for the given text. The text is truncated to the
// model's input budget before embedding. Never returns an error.
func (s *Service) Embed(ctx context.Context, text string) []float32 {
	logger := logging.From(ctx)
	text = truncate(strings.TrimSpace(text), maxInputRunes)

	if text == "" {
		return make([]float32, s.dimension)
	}

	vector, err := s.gemini.Embedding(ctx, text, s.dimension)
	if err == nil {
		return vector
	}

	logger.Warn("embedding failed, retrying once", "error", err)
	select {
	case <-ctx.Done():
		return make([]float32, s.dimension)
	case <-time.After(s.retryDelay):
	}

	vector, err = s.gemini.Embedding(ctx, text, s.dimension)
	if err != nil {
		logger.Error("embedding failed, storing zero vector", "error", err)
		return make([]float32, s.dimension)
	}

	return vector
}

// maxInputRunes bounds the text sent to the embedding model.
const maxInputRunes = 8000

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
