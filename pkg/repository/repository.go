package repository

import (
	"context"

	"github.com/marvin-labs/memoria/pkg/model"
)

// MemoryQuery is the set of optional constraints a caller may put on a
// search or listing. Absent fields constrain nothing.
type MemoryQuery struct {
	Type         *model.MemoryType
	Tags         []string
	MinAlignment *float64
}

// Empty reports whether the query carries no constraints at all.
func (q MemoryQuery) Empty() bool {
	return q.Type == nil && len(q.Tags) == 0 && q.MinAlignment == nil
}

// MemoryStore is the vector store holding memory records and their
// embeddings.
//
// Search and List never return an error for store-side query failures: after
// the filter fallback ladder and transport retries are exhausted they report
// an empty result. Upsert, Get and Delete propagate errors normally.
type MemoryStore interface {
	// Upsert writes a memory and its embedding vector
	Upsert(ctx context.Context, mem *model.Memory, vector []float32) error

	// Get retrieves a memory by ID
	Get(ctx context.Context, id model.MemoryID) (*model.Memory, error)

	// Search performs similarity search, ranked by the store's score descending
	Search(ctx context.Context, vector []float32, limit int, q MemoryQuery) ([]*model.ScoredMemory, error)

	// List returns a page of memories plus the total count at the filter
	// level that actually answered
	List(ctx context.Context, limit, offset int, q MemoryQuery) (*model.MemoryPage, error)

	// Delete removes a memory; a missing ID yields model.ErrMemoryNotFound
	Delete(ctx context.Context, id model.MemoryID) error
}

// TweetStore is the relational mirror of fetched tweets consumed by the
// batch processor.
type TweetStore interface {
	// ListCandidates returns unprocessed tweets with engagement at or above
	// the threshold, highest engagement first
	ListCandidates(ctx context.Context, limit int, minEngagement float64) ([]*model.Tweet, error)

	// MarkProcessed stamps processed_at and links the created memories
	MarkProcessed(ctx context.Context, id int64, memoryIDs []model.MemoryID) error
}

// PersonaStore provides the character definition used for alignment
// evaluation.
type PersonaStore interface {
	Get(ctx context.Context) (*model.Persona, error)
}
