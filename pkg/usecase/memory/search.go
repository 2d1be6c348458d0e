package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/repository"
)

// SearchOptions contains options for similarity search
type SearchOptions struct {
	Query string
	Limit int

	Type         *model.MemoryType
	Tags         []string
	MinAlignment *float64
}

// Search embeds the query text and runs similarity search. Zero matches is
// an empty slice, never an error.
func (u *UseCase) Search(ctx context.Context, opts SearchOptions) ([]*model.ScoredMemory, error) {
	if opts.Query == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "query is required")
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > u.maxLimit {
		limit = u.maxLimit
	}

	vector := u.embedder.Embed(ctx, opts.Query)

	return u.store.Search(ctx, vector, limit, repository.MemoryQuery{
		Type:         opts.Type,
		Tags:         opts.Tags,
		MinAlignment: opts.MinAlignment,
	})
}
