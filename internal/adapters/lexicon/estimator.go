package lexicon

import (
	"strings"

	"review_analyzer/internal/domain"
)

// Fixed lexicons, matched by substring containment anywhere in the
// lower-cased text (not word-boundary tokenized).
var (
	positive = []string{
		"bagus", "baik", "mantap", "puas", "awet", "keren", "suka",
		"recommended", "good", "great", "excellent", "love",
	}
	negative = []string{
		"jelek", "buruk", "rusak", "kecewa", "lambat", "mengecewakan",
		"bad", "poor", "terrible", "broken", "hate",
	}
)

// Estimate is the local fallback when the remote classifier is down.
// Pure and deterministic: more positive hits than negative gives POSITIVE
// with score 0.85 + 0.01 per hit (deliberately uncapped, so heavy hit counts
// can push it past 1.0), the mirror for NEGATIVE, and NEUTRAL at 0.50 on a
// tie or no hits at all.
func Estimate(text string) domain.Classification {
	lower := strings.ToLower(text)

	var pos, neg int
	for _, w := range positive {
		pos += strings.Count(lower, w)
	}
	for _, w := range negative {
		neg += strings.Count(lower, w)
	}

	switch {
	case pos > neg:
		return domain.Classification{Label: "POSITIVE", Score: 0.85 + 0.01*float64(pos)}
	case neg > pos:
		return domain.Classification{Label: "NEGATIVE", Score: 0.85 + 0.01*float64(neg)}
	default:
		return domain.Classification{Label: "NEUTRAL", Score: 0.50}
	}
}
