package util

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLimit is how many leading bytes DetectDocument needs.
const SniffLimit = 3072

// documentTypes lists the content types accepted for budget-plan documents and
// the extension a stored copy gets.
var documentTypes = []struct {
	mime string
	ext  string
}{
	{"application/pdf", ".pdf"},
	{"image/png", ".png"},
	{"image/jpeg", ".jpg"},
	{"image/gif", ".gif"},
	{"image/webp", ".webp"},
	{"text/csv", ".csv"},
	{"application/msword", ".doc"},
	{"application/vnd.ms-excel", ".xls"},
	{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx"},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"},
}

// DetectDocument sniffs head and reports the content type and stored
// extension when it is an accepted document type.
func DetectDocument(head []byte) (mime string, ext string, ok bool) {
	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		for _, dt := range documentTypes {
			if m.Is(dt.mime) {
				return dt.mime, dt.ext, true
			}
		}
	}
	return detected.String(), "", false
}

func IsImageMIME(mimeType string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(cleaned, "image/")
}

// IsLogoFormat reports whether an image.Decode format name is accepted for
// institution logos.
func IsLogoFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "png", "jpeg", "gif", "webp":
		return true
	default:
		return false
	}
}
