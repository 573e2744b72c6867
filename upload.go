package attachkit

// UploadContext carries caller-supplied information about one upload that
// cannot be derived from the content itself, such as the original file name
// of a browser upload or an externally supplied content type. Analyzers read
// from it; empty fields simply contribute nothing.
type UploadContext struct {
	// Filename is the original name of the uploaded file, if known.
	Filename string

	// ContentType is an externally supplied media type, if any. It is only
	// trusted when the uploader's MIME analyzer runs in supplied mode.
	ContentType string
}
