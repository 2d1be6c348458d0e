package tweet

import (
	"context"
	"time"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/repository"
	"github.com/marvin-labs/memoria/pkg/usecase/memory"
)

// Researcher produces research insights for tweet content.
type Researcher interface {
	Research(ctx context.Context, query string) (*model.ResearchResult, error)
	EvaluateCuriosity(ctx context.Context, content string, persona *model.Persona) *model.Curiosity
}

// MemoryCreator stores insights as memory records.
type MemoryCreator interface {
	Create(ctx context.Context, input memory.CreateInput) (*memory.CreateOutput, error)
}

// UseCase is the batch tweet processor: it pulls high-engagement unprocessed
// tweets, decides whether each is worth researching, and stores the research
// insights as memories.
type UseCase struct {
	tweets        repository.TweetStore
	personas      repository.PersonaStore
	researcher    Researcher
	memories      MemoryCreator
	itemDelay     time.Duration
	defaultLimit  int
	minEngagement float64
}

type Option func(*UseCase)

// WithItemDelay sets the pause between candidates, to stay under provider
// rate limits. Zero disables it.
func WithItemDelay(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.itemDelay = d
	}
}

func WithDefaults(limit int, minEngagement float64) Option {
	return func(uc *UseCase) {
		uc.defaultLimit = limit
		uc.minEngagement = minEngagement
	}
}

func New(
	tweets repository.TweetStore,
	personas repository.PersonaStore,
	researcher Researcher,
	memories MemoryCreator,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		tweets:        tweets,
		personas:      personas,
		researcher:    researcher,
		memories:      memories,
		itemDelay:     2 * time.Second,
		defaultLimit:  10,
		minEngagement: 0.7,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
