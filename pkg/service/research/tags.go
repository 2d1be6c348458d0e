package research

import (
	"sort"
	"strings"
)

// tagCategories maps coarse topic tags to the keywords that indicate them.
var tagCategories = map[string][]string{
	"technology": {
		"technology", "tech", "software", "hardware", "digital", "computer",
		"ai", "artificial intelligence", "machine learning", "data",
		"internet", "online", "app", "algorithm", "programming", "code",
	},
	"science": {
		"science", "scientific", "research", "study", "experiment",
		"physics", "chemistry", "biology", "astronomy", "discovery",
		"theory", "hypothesis", "evidence", "quantum", "genetic",
	},
	"art": {
		"art", "artist", "artistic", "aesthetic", "painting", "sculpture",
		"gallery", "exhibition", "movement", "avant-garde", "surreal",
		"glitch", "collage", "installation", "performance",
	},
	"culture": {
		"culture", "cultural", "subculture", "society", "community",
		"media", "music", "film", "literature", "poetry", "meme",
		"trend", "movement", "philosophy", "zeitgeist",
	},
	"history": {
		"history", "historical", "century", "era", "decade", "ancient",
		"medieval", "origin", "archive", "heritage", "tradition",
		"revolution", "war", "empire",
	},
	"politics": {
		"politics", "political", "government", "policy", "law",
		"election", "vote", "campaign", "party", "nation", "state",
		"international", "global",
	},
	"environment": {
		"environment", "environmental", "climate", "sustainability",
		"renewable", "energy", "pollution", "carbon", "ecosystem",
		"nature", "wildlife", "conservation",
	},
	"business": {
		"business", "company", "startup", "market", "economy", "finance",
		"investment", "industry", "product", "revenue", "profit",
	},
}

const maxTags = 3

// extractTags picks up to three topic tags by keyword density, normalized
// per category so categories with longer keyword lists get no advantage.
// Falls back to "general" when nothing matches.
func extractTags(text string) []string {
	lower := strings.ToLower(text)

	type scored struct {
		tag   string
		score float64
	}
	var scores []scored
	for tag, keywords := range tagCategories {
		hits := 0
		for _, kw := range keywords {
			hits += strings.Count(lower, kw)
		}
		if hits > 0 {
			scores = append(scores, scored{tag: tag, score: float64(hits) / float64(len(keywords))})
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].tag < scores[j].tag
	})

	if len(scores) == 0 {
		return []string{"general"}
	}
	if len(scores) > maxTags {
		scores = scores[:maxTags]
	}

	tags := make([]string, len(scores))
	for i, s := range scores {
		tags[i] = s.tag
	}
	return tags
}
