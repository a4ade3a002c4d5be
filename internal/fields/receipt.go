package fields

import (
	"regexp"
	"strings"
)

var (
	reReceiptStore   = regexp.MustCompile(`(?im)^([A-Z][A-Za-z\s&,.']+?)(?:\n|receipt)`)
	reReceiptDate    = regexp.MustCompile(`(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`)
	reReceiptTotal   = regexp.MustCompile(`(?i)(?:total|amount)[\s:]*\$?\s*([\d,]+\.?\d{0,2})`)
	reReceiptPayment = regexp.MustCompile(`(?i)(card|visa|mastercard|amex|cash)`)
)

func extractReceipt(text string) []Field {
	var out []Field

	if m := reReceiptStore.FindStringSubmatch(text); m != nil {
		out = append(out, Field{Name: "store", Value: strings.TrimSpace(m[1]), Confidence: 75})
	}
	if m := reReceiptDate.FindStringSubmatch(text); m != nil {
		out = append(out, Field{Name: "date", Value: m[1], Confidence: 80})
	}
	if m := reReceiptTotal.FindStringSubmatch(text); m != nil {
		out = append(out, Field{
			Name:       "total",
			Value:      m[1],
			Confidence: 90,
			Normalized: normalizeMoney(m[1]),
		})
	}
	if m := reReceiptPayment.FindString(text); m != "" {
		out = append(out, Field{Name: "payment_method", Value: m, Confidence: 70})
	}

	return out
}
