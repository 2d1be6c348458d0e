package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Tweet mirrors a row of the tweets_cache table: a fetched tweet waiting to
// be researched and turned into memories.
type Tweet struct {
	ID              int64
	TweetID         string
	Text            string
	URL             string
	EngagementScore float64
	PublicMetrics   json.RawMessage
	VibeTags        string
	CreatedAt       time.Time
	FetchedAt       time.Time
	ProcessedAt     *time.Time
	MemoryIDs       []MemoryID
}

// Tags splits the comma-separated vibe_tags column into clean tags.
func (t *Tweet) Tags() []string {
	if t.VibeTags == "" {
		return nil
	}
	parts := strings.Split(t.VibeTags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// Processed reports whether the tweet has already been handled by the batch
// processor.
func (t *Tweet) Processed() bool {
	return t.ProcessedAt != nil
}
