// Package fields extracts named, typed data points from document text.
// Each category carries its own independent rule set; rules attempt a pattern
// match against the full text and emit one field on success with a fixed
// confidence weight. A rule that does not match silently contributes nothing.
package fields

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docpipeline/constants"
	"github.com/joseph-ayodele/docpipeline/internal/entity"
)

// Field is one extracted datum before persistence.
type Field struct {
	Name       string                  `json:"name"`
	Value      string                  `json:"value"`
	Confidence float32                 `json:"confidence"`
	Normalized *entity.NormalizedValue `json:"normalized,omitempty"`
}

// rulesets dispatches on the fixed category set. Categories without a rule
// set (including Other) intentionally yield no fields.
var rulesets = map[constants.Category]func(string) []Field{
	constants.Invoice: extractInvoice,
	constants.Receipt: extractReceipt,
	constants.CV:      extractCV,
	constants.IDCard:  extractID,
}

// Extract runs the rule set for category against text. An unknown category
// returns an empty list; that is expected, not an error.
func Extract(text string, category constants.Category) []Field {
	rs, ok := rulesets[category]
	if !ok {
		return nil
	}
	return rs(text)
}

// normalizeMoney parses a captured amount string ("1,250.00") into a typed
// money value. Currency detection is not attempted; amounts are recorded as
// USD.
func normalizeMoney(raw string) *entity.NormalizedValue {
	amount, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &entity.NormalizedValue{Type: "money", Value: amount, Currency: "USD"}
}
