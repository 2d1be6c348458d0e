package alignment

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"text/template"

	"google.golang.org/genai"

	"github.com/marvin-labs/memoria/pkg/adapter"
	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

//go:embed prompt/evaluate.md
var evaluatePromptRaw string

var evaluatePromptTmpl = template.Must(template.New("evaluate").Parse(evaluatePromptRaw))

// NeutralScore is the alignment score assigned when the evaluator is
// unavailable. It sits exactly on the default gating threshold so outages
// neither flood the store nor silently drop everything.
const NeutralScore = 0.5

// DefaultThreshold is the minimum alignment score for a memory to be
// accepted without bypass.
const DefaultThreshold = 0.7

// Service scores content against the configured persona.
type Service struct {
	gemini adapter.Gemini
}

func New(gemini adapter.Gemini) *Service {
	return &Service{gemini: gemini}
}

// Evaluate scores how well content fits the persona. Never returns an error:
// if the model call fails, the result is the neutral score with an
// explanation stating the evaluator was unavailable. Scores outside [0, 1]
// are clamped.
func (s *Service) Evaluate(ctx context.Context, content string, persona *model.Persona) *model.Alignment {
	logger := logging.From(ctx)

	var buf bytes.Buffer
	if err := evaluatePromptTmpl.Execute(&buf, map[string]any{
		"Name":    persona.Name,
		"Version": persona.Version,
		"Topics":  persona.Topics,
		"Style":   persona.Style,
		"Content": content,
	}); err != nil {
		logger.Error("failed to build alignment prompt, using neutral score", "error", err)
		return neutralAlignment()
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score": {
					Type:        genai.TypeNumber,
					Description: "Alignment score from 0.0 to 1.0",
				},
				"matched_aspects": {
					Type:        genai.TypeArray,
					Description: "Character aspects the content matches",
					Items:       &genai.Schema{Type: genai.TypeString},
				},
				"explanation": {
					Type:        genai.TypeString,
					Description: "One or two sentence justification",
				},
			},
			Required: []string{"score", "explanation"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := s.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		logger.Warn("alignment evaluation failed, using neutral score", "error", err)
		return neutralAlignment()
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		logger.Warn("empty alignment response, using neutral score")
		return neutralAlignment()
	}

	rawJSON := resp.Candidates[0].Content.Parts[0].Text

	var result model.Alignment
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		logger.Warn("failed to parse alignment response, using neutral score",
			"error", err, "json", rawJSON)
		return neutralAlignment()
	}

	result.Score = clamp(result.Score)
	return &result
}

func neutralAlignment() *model.Alignment {
	return &model.Alignment{
		Score:       NeutralScore,
		Explanation: "alignment evaluator unavailable, neutral score assigned",
	}
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
