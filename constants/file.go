package constants

import "strings"

// Document formats accepted by the pipeline.
const (
	PDF   = "pdf"
	DOCX  = "docx"
	IMAGE = "image"
)

// AllowedExtensions holds the default allowed file extensions for uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"doc":  {},
	"docx": {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tiff": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized extension to a document format.
// Returns "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "doc", "docx":
		return DOCX
	case "png", "jpg", "jpeg", "tiff", "image":
		return IMAGE
	default:
		return ""
	}
}
