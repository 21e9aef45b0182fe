package s3

// SecureMIMETypesExtension lists the image types a gift may carry and
// the extension stored alongside the object key. Types that can embed
// scripts (svg) are deliberately absent.
var SecureMIMETypesExtension = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// CheckSecureImageAndGetExtension reports whether the MIME type is an
// allowed image type and returns the matching extension.
func CheckSecureImageAndGetExtension(mimeType string) (bool, string) {
	ext, ok := SecureMIMETypesExtension[mimeType]
	return ok, ext
}
