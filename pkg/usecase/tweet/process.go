package tweet

import (
	"context"
	"fmt"
	"time"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/usecase/memory"
	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

// ProcessOptions tunes one batch run. Zero values fall back to the
// configured defaults.
type ProcessOptions struct {
	Limit         int
	MinEngagement float64
}

// TweetResult reports one successfully processed tweet.
type TweetResult struct {
	TweetID     string `json:"tweet_id"`
	MemoryCount int    `json:"memory_count"`
}

// ProcessResult summarizes a batch run. ProcessedCount plus FailedCount
// equals the number of candidates picked up.
type ProcessResult struct {
	ProcessedCount int           `json:"processed_count"`
	FailedCount    int           `json:"failed_count"`
	Results        []TweetResult `json:"results"`
}

// Process runs one batch: per candidate, a curiosity gate, research, and
// insight storage. A failing candidate is counted and skipped; the batch
// always runs to completion.
func (u *UseCase) Process(ctx context.Context, opts ProcessOptions) (*ProcessResult, error) {
	logger := logging.From(ctx)

	limit := opts.Limit
	if limit < 1 {
		limit = u.defaultLimit
	}
	minEngagement := opts.MinEngagement
	if minEngagement == 0 {
		minEngagement = u.minEngagement
	}

	persona, err := u.personas.Get(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := u.tweets.ListCandidates(ctx, limit, minEngagement)
	if err != nil {
		return nil, err
	}
	logger.Info("tweet batch started",
		"candidates", len(candidates), "min_engagement", minEngagement)

	result := &ProcessResult{Results: []TweetResult{}}
	for i, tw := range candidates {
		if i > 0 && u.itemDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(u.itemDelay):
			}
		}

		memoryIDs, err := u.processTweet(ctx, tw, persona)
		if err != nil {
			logger.Error("tweet processing failed",
				"tweet_id", tw.TweetID, "error", err)
			result.FailedCount++
			continue
		}

		result.ProcessedCount++
		result.Results = append(result.Results, TweetResult{
			TweetID:     tw.TweetID,
			MemoryCount: len(memoryIDs),
		})
	}

	logger.Info("tweet batch finished",
		"processed", result.ProcessedCount, "failed", result.FailedCount)

	return result, nil
}

func (u *UseCase) processTweet(ctx context.Context, tw *model.Tweet, persona *model.Persona) ([]model.MemoryID, error) {
	logger := logging.From(ctx)

	curiosity := u.researcher.EvaluateCuriosity(ctx, tw.Text, persona)
	if !curiosity.WorthResearching {
		logger.Info("tweet not worth researching, marking processed",
			"tweet_id", tw.TweetID)
		return nil, u.tweets.MarkProcessed(ctx, tw.ID, nil)
	}

	question := curiosity.ResearchQuestion
	if question == "" {
		question = contextQuestion(tw.Text)
	}

	research, err := u.researcher.Research(ctx, question)
	if err != nil {
		return nil, err
	}

	var memoryIDs []model.MemoryID
	for _, insight := range research.Insights {
		input := memory.CreateInput{
			Content:              insight.Content + "\n\nBased on tweet: \"" + tw.Text + "\"",
			Type:                 model.MemoryTypeResearch,
			Source:               "tweet:" + tw.TweetID,
			Tags:                 append(insight.Tags, tw.Tags()...),
			BypassAlignmentCheck: true,
			AlignmentScore:       insight.Confidence,
			Metadata: model.Metadata{
				"confidence":     model.NumberValue(insight.Confidence),
				"research_query": model.StringValue(insight.Query),
			},
		}
		if curiosity.RelevanceType != "" {
			input.Metadata["relevance_type"] = model.StringValue(curiosity.RelevanceType)
		}
		if curiosity.RelevanceExplanation != "" {
			input.Metadata["relevance_explanation"] = model.StringValue(curiosity.RelevanceExplanation)
		}

		out, err := u.memories.Create(ctx, input)
		if err != nil {
			logger.Warn("failed to store insight",
				"tweet_id", tw.TweetID, "error", err)
			continue
		}
		if out.Rejected {
			continue
		}
		memoryIDs = append(memoryIDs, out.ID)
	}

	if err := u.tweets.MarkProcessed(ctx, tw.ID, memoryIDs); err != nil {
		return nil, err
	}

	return memoryIDs, nil
}

func contextQuestion(text string) string {
	return fmt.Sprintf("Explain the cultural or artistic context of this tweet: %q. Include any relevant subcultures, art movements, or philosophies it relates to, analyze its references and themes, and provide historical or contemporary context that helps understand its meaning.", text)
}
