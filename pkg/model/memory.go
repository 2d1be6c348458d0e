package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type MemoryID string

// NewMemoryID generates a new unique MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

type MemoryType string

const (
	MemoryTypeTweet     MemoryType = "tweet"
	MemoryTypeResearch  MemoryType = "research"
	MemoryTypeThought   MemoryType = "thought"
	MemoryTypeOutput    MemoryType = "output"
	MemoryTypeQuote     MemoryType = "quote"
	MemoryTypeReference MemoryType = "reference"
)

// Validate checks if the memory type is valid
func (t MemoryType) Validate() error {
	switch t {
	case MemoryTypeTweet, MemoryTypeResearch, MemoryTypeThought, MemoryTypeOutput, MemoryTypeQuote, MemoryTypeReference:
		return nil
	default:
		return goerr.Wrap(ErrInvalidMemoryType, "unknown memory type", goerr.V("type", t))
	}
}

// Memory is the unit of persistence: a piece of content with its provenance,
// alignment score and open metadata. The embedding vector lives only in the
// vector store and is never exposed to callers.
type Memory struct {
	ID               MemoryID   `json:"id"`
	Content          string     `json:"content"`
	Type             MemoryType `json:"type"`
	Source           string     `json:"source"`
	Tags             []string   `json:"tags"`
	Timestamp        time.Time  `json:"timestamp"`
	AlignmentScore   float64    `json:"alignment_score"`
	AgentID          string     `json:"agent_id,omitempty"`
	MatchedAspects   []string   `json:"matched_aspects,omitempty"`
	CharacterVersion string     `json:"character_version,omitempty"`
	Metadata         Metadata   `json:"metadata,omitempty"`
}

// ScoredMemory is a search result: a memory with the store's similarity score.
type ScoredMemory struct {
	Memory          *Memory `json:"memory"`
	SimilarityScore float32 `json:"similarity_score"`
}

// MemoryPage is a single page of a listing with the total count reported by
// the store at whichever filter level actually answered.
type MemoryPage struct {
	Memories []*Memory
	Total    int
}

// Page describes pagination metadata returned to API callers.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPage computes pagination metadata. Pages is ceil(total/limit).
func NewPage(page, limit, total int) Page {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page{Page: page, Limit: limit, Total: total, Pages: pages}
}

// NormalizeTags collapses duplicate tags while preserving first-seen order
// and drops empty entries.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
