package memory

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

// CreateInput describes a memory record to store.
type CreateInput struct {
	Content  string
	Type     model.MemoryType
	Source   string
	Tags     []string
	Metadata model.Metadata

	// BypassAlignmentCheck skips the evaluator and stores the record with
	// the caller-supplied score and metadata as-is. Used by the curiosity
	// path, which has already judged relevance on its own terms.
	BypassAlignmentCheck bool
	AlignmentScore       float64
}

// CreateOutput is the result of a create call. Rejected means the content
// scored below the alignment threshold; the record was not stored and Score
// and Explanation carry the evaluator's verdict.
type CreateOutput struct {
	ID          model.MemoryID
	Rejected    bool
	Score       float64
	Explanation string
}

// Create validates, scores, embeds and stores a memory record.
func (u *UseCase) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	logger := logging.From(ctx)

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "content is required")
	}
	if input.Source == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "source is required")
	}
	if err := input.Type.Validate(); err != nil {
		return nil, err
	}

	persona, err := u.personas.Get(ctx)
	if err != nil {
		return nil, err
	}

	mem := &model.Memory{
		ID:               model.NewMemoryID(),
		Content:          content,
		Type:             input.Type,
		Source:           input.Source,
		Tags:             model.NormalizeTags(input.Tags),
		Timestamp:        time.Now().UTC(),
		AgentID:          persona.ID,
		CharacterVersion: persona.Version,
		Metadata:         input.Metadata,
	}

	if input.BypassAlignmentCheck {
		mem.AlignmentScore = input.AlignmentScore
	} else {
		result := u.evaluator.Evaluate(ctx, content, persona)
		if result.Score < u.threshold {
			logger.Info("memory rejected by alignment gate",
				"score", result.Score, "threshold", u.threshold, "source", input.Source)
			return &CreateOutput{
				Rejected:    true,
				Score:       result.Score,
				Explanation: result.Explanation,
			}, nil
		}
		mem.AlignmentScore = result.Score
		mem.MatchedAspects = result.Aspects
	}

	vector := u.embedder.Embed(ctx, content)
	if err := u.store.Upsert(ctx, mem, vector); err != nil {
		return nil, err
	}

	logger.Info("memory stored",
		"id", mem.ID, "type", mem.Type, "score", mem.AlignmentScore)

	return &CreateOutput{ID: mem.ID, Score: mem.AlignmentScore}, nil
}
