// Package classify assigns a document category from extracted text using
// fixed per-category detection signals.
package classify

import (
	"regexp"

	"github.com/joseph-ayodele/docpipeline/constants"
)

const Model = "pattern_matching_v1"

// Result is a classification outcome.
//
// Confidence is relative, not an absolute probability: it is the winning
// category's signal count over the total matches across all categories,
// scaled to 0..100. A text matching many categories at once scores low even
// when the winner matched every one of its signals.
type Result struct {
	Type       constants.Category `json:"type"`
	Confidence float32            `json:"confidence"`
	Model      string             `json:"model"`
}

// signals holds the ordered detection patterns per category. Each signal
// contributes at most 1 to its category's score regardless of repeat matches.
var signals = map[constants.Category][]*regexp.Regexp{
	constants.Invoice: {
		regexp.MustCompile(`(?i)invoice`),
		regexp.MustCompile(`(?i)bill\s+to`),
		regexp.MustCompile(`(?i)invoice\s+number`),
		regexp.MustCompile(`(?i)invoice\s+date`),
		regexp.MustCompile(`(?i)amount\s+due`),
		regexp.MustCompile(`(?i)subtotal`),
		regexp.MustCompile(`(?i)tax\s+amount`),
		regexp.MustCompile(`(?i)total\s+amount`),
	},
	constants.Receipt: {
		regexp.MustCompile(`(?i)receipt`),
		regexp.MustCompile(`(?i)thank\s+you`),
		regexp.MustCompile(`(?i)purchased`),
		regexp.MustCompile(`(?i)cashier`),
		regexp.MustCompile(`(?i)transaction`),
		regexp.MustCompile(`(?i)payment\s+method`),
		regexp.MustCompile(`(?i)card\s+number`),
	},
	constants.CV: {
		regexp.MustCompile(`(?i)curriculum\s+vitae`),
		regexp.MustCompile(`(?i)resume`),
		regexp.MustCompile(`(?i)education`),
		regexp.MustCompile(`(?i)experience`),
		regexp.MustCompile(`(?i)skills`),
		regexp.MustCompile(`(?i)references`),
		regexp.MustCompile(`(?i)objective`),
		regexp.MustCompile(`(?i)professional\s+summary`),
	},
	constants.IDCard: {
		regexp.MustCompile(`(?i)identity\s+card`),
		regexp.MustCompile(`(?i)id\s+card`),
		regexp.MustCompile(`(?i)driver['’]s?\s+license`),
		regexp.MustCompile(`(?i)passport`),
		regexp.MustCompile(`(?i)date\s+of\s+birth`),
		regexp.MustCompile(`(?i)nationality`),
		regexp.MustCompile(`(?i)card\s+number`),
	},
}

// Classify scores every category's signals against text and returns the best
// match. Ties break by first-declared category order (stable iteration over
// constants.Categories, never map order); zero matches everywhere yields
// Other with confidence 0. Deterministic: the same text always produces the
// same result.
func Classify(text string) Result {
	maxScore := 0
	total := 0
	detected := constants.Other

	for _, cat := range constants.Categories {
		score := 0
		for _, sig := range signals[cat] {
			if sig.MatchString(text) {
				score++
			}
		}
		total += score
		if score > maxScore {
			maxScore = score
			detected = cat
		}
	}

	var confidence float32
	if total > 0 {
		confidence = float32(maxScore) / float32(total) * 100
	}
	if confidence > 100 {
		confidence = 100
	}

	return Result{
		Type:       detected,
		Confidence: confidence,
		Model:      Model,
	}
}
