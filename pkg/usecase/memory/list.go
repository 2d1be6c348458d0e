package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/repository"
)

// ListOptions contains options for listing memories
type ListOptions struct {
	Page  int
	Limit int

	Type         *model.MemoryType
	Tags         []string
	MinAlignment *float64
}

// ListOutput is a page of memories with pagination metadata.
type ListOutput struct {
	Memories   []*model.Memory
	Pagination model.Page
}

// List retrieves a page of memories. Page must be at least 1; Limit is
// clamped to the configured maximum.
func (u *UseCase) List(ctx context.Context, opts ListOptions) (*ListOutput, error) {
	if opts.Page < 1 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "page must be at least 1", goerr.V("page", opts.Page))
	}
	if opts.Limit < 1 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "limit must be at least 1", goerr.V("limit", opts.Limit))
	}
	limit := opts.Limit
	if limit > u.maxLimit {
		limit = u.maxLimit
	}

	offset := (opts.Page - 1) * limit
	query := repository.MemoryQuery{
		Type:         opts.Type,
		Tags:         opts.Tags,
		MinAlignment: opts.MinAlignment,
	}

	page, err := u.store.List(ctx, limit, offset, query)
	if err != nil {
		return nil, err
	}

	return &ListOutput{
		Memories:   page.Memories,
		Pagination: model.NewPage(opts.Page, limit, page.Total),
	}, nil
}
