package research

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/goerr/v2"

	"github.com/marvin-labs/memoria/pkg/adapter"
	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

//go:embed prompt/system.md
var systemPrompt string

const (
	// DefaultMinConfidence is the minimum heuristic confidence for an
	// insight to survive extraction.
	DefaultMinConfidence = 0.7

	// DefaultMaxInsights caps how many insights one answer can yield.
	DefaultMaxInsights = 5
)

// Service answers research questions via Claude and distills the answers
// into scored insights.
type Service struct {
	claude        adapter.Claude
	gemini        adapter.Gemini
	minConfidence float64
	maxInsights   int
	retryDelay    time.Duration
	now           func() time.Time
}

type Option func(*Service)

func WithMinConfidence(c float64) Option {
	return func(s *Service) {
		s.minConfidence = c
	}
}

func WithMaxInsights(n int) Option {
	return func(s *Service) {
		s.maxInsights = n
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = d
	}
}

func New(claude adapter.Claude, gemini adapter.Gemini, opts ...Option) *Service {
	s := &Service{
		claude:        claude,
		gemini:        gemini,
		minConfidence: DefaultMinConfidence,
		maxInsights:   DefaultMaxInsights,
		retryDelay:    time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Research asks Claude the given question and extracts insights from the
// answer. Transient API failures get a single retry; authentication errors
// do not.
func (s *Service) Research(ctx context.Context, query string) (*model.ResearchResult, error) {
	answer, err := s.ask(ctx, query)
	if err != nil {
		return nil, err
	}

	return &model.ResearchResult{
		Query:    query,
		Answer:   answer,
		Insights: s.extractInsights(query, answer),
	}, nil
}

func (s *Service) ask(ctx context.Context, query string) (string, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
	}

	message, err := s.claude.Chat(ctx, systemPrompt, messages)
	if err != nil {
		if !retryable(err) {
			return "", err
		}
		logging.From(ctx).Warn("research call failed, retrying once", "error", err)
		select {
		case <-ctx.Done():
			return "", goerr.Wrap(ctx.Err(), "research cancelled")
		case <-time.After(s.retryDelay):
		}
		if message, err = s.claude.Chat(ctx, systemPrompt, messages); err != nil {
			return "", err
		}
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	answer := sb.String()
	if answer == "" {
		return "", goerr.New("empty research answer")
	}

	return answer, nil
}

// retryable reports whether a failed API call is worth one retry. Auth and
// other client-side errors are not; rate limits, server errors and anything
// without an HTTP status (network, timeout) are.
func retryable(err error) bool {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusUnauthorized, apierr.StatusCode == http.StatusForbidden:
			return false
		case apierr.StatusCode == http.StatusTooManyRequests:
			return true
		case apierr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}
	return true
}

// extractInsights splits the answer into bullet or numbered sections
// (falling back to paragraphs), scores each with a position-decayed
// confidence heuristic, and keeps at most maxInsights sections above the
// confidence floor. Short fragments are dropped.
func (s *Service) extractInsights(query, answer string) []*model.Insight {
	sections := splitSections(answer)

	var insights []*model.Insight
	for i, section := range sections {
		if i >= s.maxInsights {
			break
		}
		if len(section) < minSectionLen {
			continue
		}

		confidence := sectionConfidence(i, section)
		if confidence < s.minConfidence {
			continue
		}

		insights = append(insights, &model.Insight{
			Content:    section,
			Confidence: confidence,
			Tags:       extractTags(section),
			Query:      query,
			Timestamp:  s.now(),
		})
	}

	return insights
}

const minSectionLen = 50

func splitSections(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var sections []string
	var current []string
	for _, p := range paragraphs {
		if startsItem(p) {
			if len(current) > 0 {
				sections = append(sections, strings.Join(current, " "))
			}
			current = []string{p}
		} else {
			current = append(current, p)
		}
	}
	if len(current) > 0 {
		sections = append(sections, strings.Join(current, " "))
	}

	if len(sections) == 0 {
		return paragraphs
	}
	return sections
}

func startsItem(p string) bool {
	if strings.HasPrefix(p, "•") || strings.HasPrefix(p, "-") {
		return true
	}
	for i := 1; i <= 10; i++ {
		if strings.HasPrefix(p, strconv.Itoa(i)+".") {
			return true
		}
	}
	return false
}

// sectionConfidence starts high, decays with position, and gets small
// bonuses for length and digit density (statistics read as more factual).
// Capped at 0.99.
func sectionConfidence(position int, section string) float64 {
	base := 0.95 - float64(position)*0.03

	lengthFactor := float64(len(section)) / 1000
	if lengthFactor > 0.05 {
		lengthFactor = 0.05
	}

	digits := 0
	for _, c := range section {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	factFactor := float64(digits) / float64(len(section)) * 10
	if factFactor > 0.05 {
		factFactor = 0.05
	}

	confidence := base + lengthFactor + factFactor
	if confidence > 0.99 {
		confidence = 0.99
	}
	return confidence
}
