package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/marvin-labs/memoria/pkg/model"
)

// fakeQdrant is a fake of the Qdrant client that records requests and fails
// on demand, for exercising the filter fallback ladder.
type fakeQdrant struct {
	queryFunc  func(req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	countFunc  func(req *qdrant.CountPoints) (uint64, error)
	upsertFunc func(req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	deleteFunc func(req *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	getFunc    func(req *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)

	queries []*qdrant.QueryPoints
}

func (f *fakeQdrant) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.queries = append(f.queries, req)
	if f.queryFunc != nil {
		return f.queryFunc(req)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeQdrant) Count(_ context.Context, req *qdrant.CountPoints) (uint64, error) {
	if f.countFunc != nil {
		return f.countFunc(req)
	}
	return 0, nil
}

func (f *fakeQdrant) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	if f.upsertFunc != nil {
		return f.upsertFunc(req)
	}
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Delete(_ context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
	if f.deleteFunc != nil {
		return f.deleteFunc(req)
	}
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Get(_ context.Context, req *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error) {
	if f.getFunc != nil {
		return f.getFunc(req)
	}
	return nil, nil
}

func newTestStore(api qdrantAPI) *Qdrant {
	return &Qdrant{
		api:         api,
		collection:  "test_memory",
		dimension:   4,
		tagFilter:   true,
		maxAttempts: 3,
		baseDelay:   time.Millisecond,
	}
}

func fullQuery() MemoryQuery {
	memType := model.MemoryTypeResearch
	minAlign := 0.7
	return MemoryQuery{
		Type:         &memType,
		Tags:         []string{"art", "history"},
		MinAlignment: &minAlign,
	}
}

func scoredPoint(id string, score float32) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{
		Id:    qdrant.NewID(id),
		Score: score,
		Payload: qdrant.NewValueMap(map[string]any{
			"content": "insight",
			"type":    "research",
		}),
	}
}

func conditionCount(req *qdrant.QueryPoints) int {
	return len(req.GetFilter().GetMust())
}

func TestSearchFullFilter(t *testing.T) {
	fake := &fakeQdrant{
		queryFunc: func(req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
			return []*qdrant.ScoredPoint{scoredPoint("3a4da0a1-0000-4000-8000-000000000001", 0.91)}, nil
		},
	}
	store := newTestStore(fake)

	results, err := store.Search(context.Background(), []float32{0.1, 0.2, 0.3, 0.4}, 5, fullQuery())
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, results[0].SimilarityScore, float32(0.91))
	gt.Equal(t, results[0].Memory.Content, "insight")

	// One call, full filter: type + first tag + alignment range
	gt.A(t, fake.queries).Length(1)
	gt.Equal(t, conditionCount(fake.queries[0]), 3)
}

func TestSearchDegradesToExactOnly(t *testing.T) {
	fake := &fakeQdrant{}
	fake.queryFunc = func(req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
		if conditionCount(req) == 3 {
			return nil, status.Error(codes.InvalidArgument, "unsupported range condition")
		}
		return []*qdrant.ScoredPoint{scoredPoint("3a4da0a1-0000-4000-8000-000000000002", 0.5)}, nil
	}
	store := newTestStore(fake)

	results, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 5, fullQuery())
	gt.NoError(t, err)
	gt.A(t, results).Length(1)

	// Second attempt carries only the exact-match conditions
	gt.A(t, fake.queries).Length(2)
	gt.Equal(t, conditionCount(fake.queries[1]), 2)
}

func TestSearchDegradesToUnfiltered(t *testing.T) {
	fake := &fakeQdrant{}
	fake.queryFunc = func(req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
		if req.GetFilter() != nil {
			return nil, status.Error(codes.InvalidArgument, "bad filter")
		}
		return []*qdrant.ScoredPoint{scoredPoint("3a4da0a1-0000-4000-8000-000000000003", 0.2)}, nil
	}
	store := newTestStore(fake)

	results, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 5, fullQuery())
	gt.NoError(t, err)
	gt.A(t, results).Length(1)

	gt.A(t, fake.queries).Length(3)
	gt.Nil(t, fake.queries[2].GetFilter())
}

func TestSearchAllLevelsFailReturnsEmpty(t *testing.T) {
	fake := &fakeQdrant{
		queryFunc: func(req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
			return nil, status.Error(codes.InvalidArgument, "nothing is acceptable")
		},
	}
	store := newTestStore(fake)

	results, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 5, fullQuery())
	gt.NoError(t, err)
	gt.A(t, results).Length(0)
}

func TestSearchSkipsEquivalentLevels(t *testing.T) {
	// With no range condition the exact-only level builds the same filter as
	// the full level; it must not be attempted twice.
	fake := &fakeQdrant{
		queryFunc: func(req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
			return nil, status.Error(codes.InvalidArgument, "rejected")
		},
	}
	store := newTestStore(fake)

	memType := model.MemoryTypeThought
	_, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 5, MemoryQuery{Type: &memType})
	gt.NoError(t, err)

	// full (1 condition) then none; exact_only skipped
	gt.A(t, fake.queries).Length(2)
	gt.Equal(t, conditionCount(fake.queries[0]), 1)
	gt.Nil(t, fake.queries[1].GetFilter())
}

func TestSearchRetriesTransientAtSameLevel(t *testing.T) {
	calls := 0
	fake := &fakeQdrant{}
	fake.queryFunc = func(req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
		calls++
		if calls == 1 {
			return nil, status.Error(codes.Unavailable, "upstream connect error")
		}
		return []*qdrant.ScoredPoint{scoredPoint("3a4da0a1-0000-4000-8000-000000000004", 0.8)}, nil
	}
	store := newTestStore(fake)

	results, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 5, fullQuery())
	gt.NoError(t, err)
	gt.A(t, results).Length(1)

	// Both attempts carry the same full filter
	gt.A(t, fake.queries).Length(2)
	gt.Equal(t, conditionCount(fake.queries[0]), 3)
	gt.Equal(t, conditionCount(fake.queries[1]), 3)
}

func TestSearchTransientExhaustedReturnsEmpty(t *testing.T) {
	fake := &fakeQdrant{
		queryFunc: func(req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
			return nil, status.Error(codes.Unavailable, "store is down")
		},
	}
	store := newTestStore(fake)

	results, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 5, fullQuery())
	gt.NoError(t, err)
	gt.A(t, results).Length(0)

	// maxAttempts at the first level, no degradation for transport failures
	gt.A(t, fake.queries).Length(3)
}

func TestListTotalTracksDegradedFilter(t *testing.T) {
	fake := &fakeQdrant{}
	fake.queryFunc = func(req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
		if conditionCount(req) == 3 {
			return nil, status.Error(codes.InvalidArgument, "bad range")
		}
		return []*qdrant.ScoredPoint{scoredPoint("3a4da0a1-0000-4000-8000-000000000005", 0)}, nil
	}
	countedConds := -1
	fake.countFunc = func(req *qdrant.CountPoints) (uint64, error) {
		countedConds = len(req.GetFilter().GetMust())
		return 42, nil
	}
	store := newTestStore(fake)

	page, err := store.List(context.Background(), 10, 0, fullQuery())
	gt.NoError(t, err)
	gt.A(t, page.Memories).Length(1)
	gt.Equal(t, page.Total, 42)

	// Count ran at the degraded (exact-only) level, not the requested one
	gt.Equal(t, countedConds, 2)
}

func TestListUnfilteredFailureReturnsEmptyPage(t *testing.T) {
	fake := &fakeQdrant{
		queryFunc: func(req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
			return nil, status.Error(codes.Internal, "broken")
		},
	}
	store := newTestStore(fake)

	page, err := store.List(context.Background(), 10, 0, MemoryQuery{})
	gt.NoError(t, err)
	gt.A(t, page.Memories).Length(0)
	gt.Equal(t, page.Total, 0)
}

func TestDeleteNotFound(t *testing.T) {
	fake := &fakeQdrant{
		getFunc: func(req *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error) {
			return nil, nil
		},
	}
	store := newTestStore(fake)

	err := store.Delete(context.Background(), model.MemoryID("3a4da0a1-0000-4000-8000-00000000000f"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrMemoryNotFound))
}

func TestDeleteExisting(t *testing.T) {
	deleted := false
	fake := &fakeQdrant{
		getFunc: func(req *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error) {
			return []*qdrant.RetrievedPoint{{
				Id:      req.GetIds()[0],
				Payload: qdrant.NewValueMap(map[string]any{"content": "x"}),
			}}, nil
		},
		deleteFunc: func(req *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
			deleted = true
			return &qdrant.UpdateResult{}, nil
		},
	}
	store := newTestStore(fake)

	err := store.Delete(context.Background(), model.MemoryID("3a4da0a1-0000-4000-8000-000000000006"))
	gt.NoError(t, err)
	gt.True(t, deleted)
}

func TestUpsertPropagatesError(t *testing.T) {
	fake := &fakeQdrant{
		upsertFunc: func(req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
			return nil, status.Error(codes.Unavailable, "down")
		},
	}
	store := newTestStore(fake)

	err := store.Upsert(context.Background(), &model.Memory{ID: model.NewMemoryID()}, []float32{1, 0, 0, 0})
	gt.Error(t, err)
}

func TestPayloadRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	mem := &model.Memory{
		ID:               model.NewMemoryID(),
		Content:          "glitch aesthetics reframe failure as style",
		Type:             model.MemoryTypeResearch,
		Source:           "tweet:1922949472088203571",
		Tags:             []string{"art", "glitch"},
		Timestamp:        now,
		AlignmentScore:   0.83,
		AgentID:          "af871ddd-febb-4454-9171-080450357b8c",
		MatchedAspects:   []string{"experimental art"},
		CharacterVersion: "7",
		Metadata: model.Metadata{
			"confidence":     model.NumberValue(0.92),
			"research_query": model.StringValue("context of glitch art"),
			"auto_approved":  model.BoolValue(true),
		},
	}

	payload := qdrant.NewValueMap(memoryPayload(mem))
	got := pointToMemory(qdrant.NewID(string(mem.ID)), payload)

	gt.Equal(t, got.ID, mem.ID)
	gt.Equal(t, got.Content, mem.Content)
	gt.Equal(t, got.Type, mem.Type)
	gt.Equal(t, got.Source, mem.Source)
	gt.Equal(t, got.Tags, mem.Tags)
	gt.Equal(t, got.AlignmentScore, mem.AlignmentScore)
	gt.Equal(t, got.AgentID, mem.AgentID)
	gt.Equal(t, got.MatchedAspects, mem.MatchedAspects)
	gt.Equal(t, got.CharacterVersion, mem.CharacterVersion)
	gt.True(t, got.Timestamp.Equal(mem.Timestamp))
	gt.Equal(t, got.Metadata["research_query"].String(), "context of glitch art")
	gt.Equal(t, got.Metadata["confidence"].Number(), 0.92)
	gt.True(t, got.Metadata["auto_approved"].Bool())
}
