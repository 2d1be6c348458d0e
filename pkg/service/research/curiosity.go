package research

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"text/template"

	"google.golang.org/genai"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

//go:embed prompt/curiosity.md
var curiosityPromptRaw string

var curiosityPromptTmpl = template.Must(template.New("curiosity").Parse(curiosityPromptRaw))

// EvaluateCuriosity asks whether the given content is worth researching for
// the persona, and if so, what question to ask. Never returns an error: any
// failure means not worth researching.
func (s *Service) EvaluateCuriosity(ctx context.Context, content string, persona *model.Persona) *model.Curiosity {
	logger := logging.From(ctx)
	notCurious := &model.Curiosity{WorthResearching: false}

	var buf bytes.Buffer
	if err := curiosityPromptTmpl.Execute(&buf, map[string]any{
		"Name":    persona.Name,
		"Topics":  persona.Topics,
		"Content": content,
	}); err != nil {
		logger.Error("failed to build curiosity prompt", "error", err)
		return notCurious
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"is_worth_researching": {
					Type:        genai.TypeBoolean,
					Description: "Whether researching this content would enrich the character",
				},
				"research_question": {
					Type:        genai.TypeString,
					Description: "A single focused research question, empty if not worth researching",
				},
				"relevance_type": {
					Type:        genai.TypeString,
					Description: "How the content relates to the character",
				},
				"relevance_explanation": {
					Type:        genai.TypeString,
					Description: "One sentence explaining the relevance",
				},
			},
			Required: []string{"is_worth_researching"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := s.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		logger.Warn("curiosity evaluation failed, skipping research", "error", err)
		return notCurious
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		logger.Warn("empty curiosity response, skipping research")
		return notCurious
	}

	rawJSON := resp.Candidates[0].Content.Parts[0].Text

	var result model.Curiosity
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		logger.Warn("failed to parse curiosity response, skipping research",
			"error", err, "json", rawJSON)
		return notCurious
	}

	return &result
}
