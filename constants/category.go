package constants

import "strings"

// Category is the detected document type label.
type Category string

const (
	Invoice Category = "invoice"
	Receipt Category = "receipt"
	CV      Category = "cv"
	IDCard  Category = "id_card"
	Other   Category = "other"
)

// Categories is the fixed, ordered category set. Order matters: the classifier
// breaks score ties by first-declared position, so iteration must stay stable.
var Categories = []Category{
	Invoice,
	Receipt,
	CV,
	IDCard,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(Categories))
	for i, cat := range Categories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free-form input to a known category.
// Unknown input maps to Other with ok=false.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Other, false
	}
	for _, cat := range Categories {
		if normalized == string(cat) {
			return cat, true
		}
	}
	return Other, false
}
