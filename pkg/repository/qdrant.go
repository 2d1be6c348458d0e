package repository

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

// qdrantAPI is the slice of the Qdrant client used by this store. Narrowed
// to an interface so the fallback ladder can be exercised against a fake.
type qdrantAPI interface {
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error)
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Delete(ctx context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Get(ctx context.Context, req *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)
}

// Qdrant implements MemoryStore against a Qdrant collection.
//
// Deployed Qdrant versions differ in which filter shapes they accept, and a
// rejected filter fails the whole call even though a looser filter would
// succeed. Search and List therefore walk a ladder of filter levels (full
// filter, exact-match conditions only, no filter) and degrade one level
// whenever the store rejects the filter shape. Transport errors are retried
// with doubling backoff at the same level. If nothing succeeds the result is
// empty, never an error.
type Qdrant struct {
	api         qdrantAPI
	collection  string
	dimension   int
	tagFilter   bool
	maxAttempts int
	baseDelay   time.Duration
}

type QdrantOption func(*Qdrant)

// WithTagFilterDisabled omits tag conditions entirely, for store versions
// without exact match on array fields.
func WithTagFilterDisabled() QdrantOption {
	return func(r *Qdrant) {
		r.tagFilter = false
	}
}

// WithRetry overrides the transport retry policy.
func WithRetry(maxAttempts int, baseDelay time.Duration) QdrantOption {
	return func(r *Qdrant) {
		r.maxAttempts = maxAttempts
		r.baseDelay = baseDelay
	}
}

// NewQdrant connects to Qdrant and ensures the collection exists with cosine
// distance and the given vector dimension.
func NewQdrant(ctx context.Context, host string, port int, collection string, dimension int, opts ...QdrantOption) (*Qdrant, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create qdrant client", goerr.V("host", host))
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check collection", goerr.V("collection", collection))
	}
	if !exists {
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create collection", goerr.V("collection", collection))
		}
	}

	r := &Qdrant{
		api:         client,
		collection:  collection,
		dimension:   dimension,
		tagFilter:   true,
		maxAttempts: 3,
		baseDelay:   200 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

func (r *Qdrant) Upsert(ctx context.Context, mem *model.Memory, vector []float32) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(string(mem.ID)),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(memoryPayload(mem)),
	}

	_, err := r.api.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.collection,
		Points:         []*qdrant.PointStruct{point},
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to upsert memory", goerr.V("id", mem.ID))
	}

	return nil
}

func (r *Qdrant) Get(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	points, err := r.api.Get(ctx, &qdrant.GetPoints{
		CollectionName: r.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(string(id))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("id", id))
	}
	if len(points) == 0 {
		return nil, goerr.Wrap(model.ErrMemoryNotFound, "no such point", goerr.V("id", id))
	}

	return pointToMemory(points[0].GetId(), points[0].GetPayload()), nil
}

func (r *Qdrant) Search(ctx context.Context, vector []float32, limit int, q MemoryQuery) ([]*model.ScoredMemory, error) {
	points, ok := runWithFallback(ctx, r, q, func(filter *qdrant.Filter) ([]*qdrant.ScoredPoint, error) {
		return r.api.Query(ctx, &qdrant.QueryPoints{
			CollectionName: r.collection,
			Query:          qdrant.NewQuery(vector...),
			Filter:         filter,
			Limit:          qdrant.PtrOf(uint64(limit)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
	})
	if !ok {
		return []*model.ScoredMemory{}, nil
	}

	// Ranked by the store's similarity score descending; ties keep the
	// store's native order.
	memories := make([]*model.ScoredMemory, 0, len(points))
	for _, p := range points {
		memories = append(memories, &model.ScoredMemory{
			Memory:          pointToMemory(p.GetId(), p.GetPayload()),
			SimilarityScore: p.GetScore(),
		})
	}

	return memories, nil
}

type listedPoints struct {
	points []*qdrant.ScoredPoint
	total  uint64
}

func (r *Qdrant) List(ctx context.Context, limit, offset int, q MemoryQuery) (*model.MemoryPage, error) {
	// The count runs at the same filter level as the listing, so the total
	// is consistent with whatever filter actually answered, not necessarily
	// the one the caller asked for.
	listed, ok := runWithFallback(ctx, r, q, func(filter *qdrant.Filter) (listedPoints, error) {
		points, err := r.api.Query(ctx, &qdrant.QueryPoints{
			CollectionName: r.collection,
			Filter:         filter,
			Limit:          qdrant.PtrOf(uint64(limit)),
			Offset:         qdrant.PtrOf(uint64(offset)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return listedPoints{}, err
		}

		total, err := r.api.Count(ctx, &qdrant.CountPoints{
			CollectionName: r.collection,
			Filter:         filter,
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			return listedPoints{}, err
		}

		return listedPoints{points: points, total: total}, nil
	})
	if !ok {
		return &model.MemoryPage{Memories: []*model.Memory{}}, nil
	}

	memories := make([]*model.Memory, 0, len(listed.points))
	for _, p := range listed.points {
		memories = append(memories, pointToMemory(p.GetId(), p.GetPayload()))
	}

	return &model.MemoryPage{Memories: memories, Total: int(listed.total)}, nil
}

func (r *Qdrant) Delete(ctx context.Context, id model.MemoryID) error {
	// Qdrant deletes missing points silently, so existence is checked first
	// to report not-found distinctly.
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	_, err := r.api.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: r.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(string(id))),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete memory", goerr.V("id", id))
	}

	return nil
}

// filterLevel is one rung of the degradation ladder: a named strategy that
// builds a filter from the query. Levels are tried in order; a level whose
// condition count equals the previous one is skipped as it would fail the
// same way.
type filterLevel struct {
	name  string
	build func(q MemoryQuery) (*qdrant.Filter, int)
}

func (r *Qdrant) levels() []filterLevel {
	return []filterLevel{
		{name: "full", build: func(q MemoryQuery) (*qdrant.Filter, int) {
			return r.buildFilter(q, true)
		}},
		{name: "exact_only", build: func(q MemoryQuery) (*qdrant.Filter, int) {
			return r.buildFilter(q, false)
		}},
		{name: "none", build: func(q MemoryQuery) (*qdrant.Filter, int) {
			return nil, 0
		}},
	}
}

func (r *Qdrant) buildFilter(q MemoryQuery, withRange bool) (*qdrant.Filter, int) {
	var must []*qdrant.Condition

	if q.Type != nil {
		must = append(must, qdrant.NewMatch("type", string(*q.Type)))
	}
	if r.tagFilter && len(q.Tags) > 0 {
		// Exact match against the first tag only; matching full tag sets is
		// not supported across all deployed store versions.
		must = append(must, qdrant.NewMatch("tags", q.Tags[0]))
	}
	if withRange && q.MinAlignment != nil {
		must = append(must, qdrant.NewRange("alignment_score", &qdrant.Range{
			Gte: q.MinAlignment,
		}))
	}

	if len(must) == 0 {
		return nil, 0
	}
	return &qdrant.Filter{Must: must}, len(must)
}

type storeErrClass int

const (
	classFatal storeErrClass = iota
	classTransient
	classFilterShape
)

// classifyStoreError maps gRPC status codes to the retry/degrade taxonomy.
// InvalidArgument marks a filter the store cannot parse; Unavailable and
// friends (including 502-class proxy failures, which surface as Unavailable)
// are transient.
func classifyStoreError(err error) storeErrClass {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return classFilterShape
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return classTransient
	default:
		return classFatal
	}
}

// runWithFallback executes op down the filter ladder. Transient errors are
// retried at the same level with doubling delay; filter-shape errors drop to
// the next level. Every degradation and retry is logged with the shape
// attempted. Returns false when every level failed.
func runWithFallback[T any](ctx context.Context, r *Qdrant, q MemoryQuery, op func(filter *qdrant.Filter) (T, error)) (T, bool) {
	logger := logging.From(ctx)
	var zero T

	prevConds := -1
	for _, lvl := range r.levels() {
		filter, conds := lvl.build(q)
		if conds == prevConds {
			continue
		}
		prevConds = conds

		delay := r.baseDelay
		for attempt := 1; ; attempt++ {
			result, err := op(filter)
			if err == nil {
				return result, true
			}

			switch classifyStoreError(err) {
			case classTransient:
				if attempt < r.maxAttempts {
					logger.Warn("transient vector store error, retrying",
						"level", lvl.name, "attempt", attempt, "delay", delay, "error", err)
					select {
					case <-ctx.Done():
						return zero, false
					case <-time.After(delay):
					}
					delay *= 2
					continue
				}
				logger.Error("vector store unavailable, returning empty result",
					"level", lvl.name, "attempts", attempt, "error", err)
				return zero, false

			case classFilterShape:
				logger.Warn("vector store rejected filter shape, relaxing filter",
					"level", lvl.name, "conditions", conds, "error", err)

			default:
				logger.Error("vector store query failed, returning empty result",
					"level", lvl.name, "error", err)
				return zero, false
			}
			break
		}
	}

	logger.Error("all filter levels rejected, returning empty result")
	return zero, false
}

func memoryPayload(mem *model.Memory) map[string]any {
	payload := map[string]any{
		"content":         mem.Content,
		"type":            string(mem.Type),
		"source":          mem.Source,
		"timestamp":       mem.Timestamp.UTC().Format(time.RFC3339Nano),
		"alignment_score": mem.AlignmentScore,
	}
	if mem.AgentID != "" {
		payload["agent_id"] = mem.AgentID
	}
	if len(mem.Tags) > 0 {
		payload["tags"] = toAnySlice(mem.Tags)
	}
	if len(mem.MatchedAspects) > 0 {
		payload["matched_aspects"] = toAnySlice(mem.MatchedAspects)
	}
	if mem.CharacterVersion != "" {
		payload["character_version"] = mem.CharacterVersion
	}
	if len(mem.Metadata) > 0 {
		meta := make(map[string]any, len(mem.Metadata))
		for k, v := range mem.Metadata {
			meta[k] = v.Any()
		}
		payload["metadata"] = meta
	}

	return payload
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func pointToMemory(id *qdrant.PointId, payload map[string]*qdrant.Value) *model.Memory {
	mem := &model.Memory{
		ID:               model.MemoryID(id.GetUuid()),
		Content:          payload["content"].GetStringValue(),
		Type:             model.MemoryType(payload["type"].GetStringValue()),
		Source:           payload["source"].GetStringValue(),
		AlignmentScore:   payload["alignment_score"].GetDoubleValue(),
		AgentID:          payload["agent_id"].GetStringValue(),
		CharacterVersion: payload["character_version"].GetStringValue(),
	}

	if ts, err := time.Parse(time.RFC3339Nano, payload["timestamp"].GetStringValue()); err == nil {
		mem.Timestamp = ts
	}
	for _, v := range payload["tags"].GetListValue().GetValues() {
		mem.Tags = append(mem.Tags, v.GetStringValue())
	}
	for _, v := range payload["matched_aspects"].GetListValue().GetValues() {
		mem.MatchedAspects = append(mem.MatchedAspects, v.GetStringValue())
	}

	if fields := payload["metadata"].GetStructValue().GetFields(); len(fields) > 0 {
		mem.Metadata = make(model.Metadata, len(fields))
		for k, v := range fields {
			switch v.GetKind().(type) {
			case *qdrant.Value_DoubleValue:
				mem.Metadata[k] = model.NumberValue(v.GetDoubleValue())
			case *qdrant.Value_IntegerValue:
				mem.Metadata[k] = model.NumberValue(float64(v.GetIntegerValue()))
			case *qdrant.Value_BoolValue:
				mem.Metadata[k] = model.BoolValue(v.GetBoolValue())
			default:
				mem.Metadata[k] = model.StringValue(v.GetStringValue())
			}
		}
	}

	return mem
}
