package fields

import (
	"regexp"
	"strings"
)

var (
	reIDName    = regexp.MustCompile(`(?i)name[\s:]*([A-Z][a-z]+\s+[A-Z][a-z]+)`)
	reIDDob     = regexp.MustCompile(`(?i)(?:date\s+of\s+birth|DOB|born)[\s:]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`)
	reIDNumber  = regexp.MustCompile(`(?i)(?:id|card|license)\s+(?:number|#|no\.?)[\s:]*([A-Z0-9-]+)`)
	reIDAddress = regexp.MustCompile(`(?i)address[\s:]*([A-Z0-9][^\n]+)`)
)

func extractID(text string) []Field {
	var out []Field

	if m := firstSubmatch(reIDName, text); m != "" {
		out = append(out, Field{Name: "name", Value: m, Confidence: 85})
	}
	if m := firstSubmatch(reIDDob, text); m != "" {
		out = append(out, Field{Name: "date_of_birth", Value: m, Confidence: 90})
	}
	if m := firstSubmatch(reIDNumber, text); m != "" {
		out = append(out, Field{Name: "id_number", Value: m, Confidence: 85})
	}
	if m := firstSubmatch(reIDAddress, text); m != "" {
		out = append(out, Field{Name: "address", Value: strings.TrimSpace(m), Confidence: 75})
	}

	return out
}
