package constants

import "strings"

// ContentKind selects the text-extraction backend for a document.
type ContentKind string

const (
	KindImage ContentKind = "IMAGE"
	KindPDF   ContentKind = "PDF"
)

// AllowedMIMETypes holds the accepted upload content types.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/jpg":       {},
	"image/png":       {},
	"application/pdf": {},
}

// MapMIMEToKind maps an upload content type to a ContentKind.
// Returns "" for unsupported types.
func MapMIMEToKind(mimeType string) ContentKind {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "application/pdf":
		return KindPDF
	case "image/jpeg", "image/jpg", "image/png":
		return KindImage
	default:
		return ""
	}
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
