package photoflow

// contentTypeExtensions maps supported image content types to their
// canonical file extension.
var contentTypeExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ExtensionForContentType returns the canonical file extension for a MIME
// content type. Unknown content types default to "jpg"; the function is
// total and never fails.
func ExtensionForContentType(contentType string) string {
	if ext, ok := contentTypeExtensions[contentType]; ok {
		return ext
	}
	return "jpg"
}
