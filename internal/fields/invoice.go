package fields

import (
	"regexp"
	"strings"
)

var (
	reInvoiceNumber = regexp.MustCompile(`(?i)invoice\s+(?:number|#|no\.?)[\s:]*([A-Z0-9-]+)`)
	reInvoiceDate   = regexp.MustCompile(`(?i)(?:invoice\s+)?date[\s:]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`)
	reInvoiceVendor = regexp.MustCompile(`(?im)^([A-Z][A-Za-z\s&,.']+?)(?:\n|invoice)`)
	reInvoiceTotal  = regexp.MustCompile(`(?i)(?:total|amount\s+due|grand\s+total)[\s:]*\$?\s*([\d,]+\.?\d{0,2})`)
	reInvoiceTax    = regexp.MustCompile(`(?i)(?:tax|vat)[\s:]*\$?\s*([\d,]+\.?\d{0,2})`)
)

func extractInvoice(text string) []Field {
	var out []Field

	if m := reInvoiceNumber.FindStringSubmatch(text); m != nil {
		out = append(out, Field{Name: "invoice_number", Value: m[1], Confidence: 85})
	}
	if m := reInvoiceDate.FindStringSubmatch(text); m != nil {
		out = append(out, Field{Name: "date", Value: m[1], Confidence: 80})
	}
	if m := reInvoiceVendor.FindStringSubmatch(text); m != nil {
		out = append(out, Field{Name: "company", Value: strings.TrimSpace(m[1]), Confidence: 70})
	}
	if m := reInvoiceTotal.FindStringSubmatch(text); m != nil {
		out = append(out, Field{
			Name:       "invoice_total",
			Value:      m[1],
			Confidence: 90,
			Normalized: normalizeMoney(m[1]),
		})
	}
	if m := reInvoiceTax.FindStringSubmatch(text); m != nil {
		out = append(out, Field{
			Name:       "tax",
			Value:      m[1],
			Confidence: 85,
			Normalized: normalizeMoney(m[1]),
		})
	}

	return out
}
