package model

import "time"

// Insight is a single piece of knowledge extracted from a research answer.
type Insight struct {
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence"`
	Tags       []string  `json:"tags"`
	Query      string    `json:"query"`
	Timestamp  time.Time `json:"timestamp"`
}

// ResearchResult is the outcome of one research call.
type ResearchResult struct {
	Query    string     `json:"query"`
	Answer   string     `json:"answer"`
	Insights []*Insight `json:"insights"`
}
