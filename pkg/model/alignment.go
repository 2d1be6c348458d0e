package model

// Alignment is the result of evaluating how well a piece of content fits the
// configured persona. Score is always within [0, 1].
type Alignment struct {
	Score       float64  `json:"score"`
	Aspects     []string `json:"matched_aspects"`
	Explanation string   `json:"explanation"`
}

// Curiosity is the result of the exploratory pre-research evaluation: whether
// a tweet is worth researching at all, and if so, what to ask.
type Curiosity struct {
	WorthResearching     bool   `json:"is_worth_researching"`
	ResearchQuestion     string `json:"research_question"`
	RelevanceType        string `json:"relevance_type"`
	RelevanceExplanation string `json:"relevance_explanation"`
}

// Persona is the character definition that alignment is evaluated against.
type Persona struct {
	ID      string
	Name    string
	Version string
	Topics  []string
	Style   string
}
