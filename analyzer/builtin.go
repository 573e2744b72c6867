package analyzer

import (
	"context"
	"io"
	"mime"

	"github.com/gabriel-vasile/mimetype"

	"github.com/attachkit/attachkit"
)

// Size contributes the byte length of the content.
func Size() Analyzer {
	return Func{
		AnalyzerName: "size",
		AnalyzeFunc: func(ctx context.Context, src io.ReadSeeker, md *attachkit.Metadata, uc attachkit.UploadContext) error {
			n, err := io.Copy(io.Discard, src)
			if err != nil {
				return err
			}
			md.SetSize(n)
			return nil
		},
	}
}

// Filename contributes the original file name from the upload context. A
// missing filename contributes nothing.
func Filename() Analyzer {
	return Func{
		AnalyzerName: "filename",
		AnalyzeFunc: func(ctx context.Context, src io.ReadSeeker, md *attachkit.Metadata, uc attachkit.UploadContext) error {
			if uc.Filename != "" {
				md.SetFilename(uc.Filename)
			}
			return nil
		},
	}
}

// MIMEMode selects how the MIME analyzer determines the media type.
type MIMEMode int

const (
	// SniffMIME detects the media type from the content itself.
	SniffMIME MIMEMode = iota

	// ExtensionMIME looks the media type up from the filename extension.
	ExtensionMIME

	// SuppliedMIME trusts the externally supplied content type.
	SuppliedMIME
)

// MIME contributes the media type of the content, determined according to
// mode. When the mode cannot produce an answer (no filename, no supplied
// type) it contributes nothing rather than guessing.
func MIME(mode MIMEMode) Analyzer {
	return Func{
		AnalyzerName: "mime_type",
		AnalyzeFunc: func(ctx context.Context, src io.ReadSeeker, md *attachkit.Metadata, uc attachkit.UploadContext) error {
			switch mode {
			case SniffMIME:
				mt, err := mimetype.DetectReader(src)
				if err != nil {
					return err
				}
				md.SetMIMEType(mt.String())
			case ExtensionMIME:
				ext := attachkit.Extension(uc.Filename)
				if ext == "" {
					return nil
				}
				typ := mime.TypeByExtension(ext)
				if typ == "" {
					return nil
				}
				if mediatype, _, err := mime.ParseMediaType(typ); err == nil {
					typ = mediatype
				}
				md.SetMIMEType(typ)
			case SuppliedMIME:
				if uc.ContentType != "" {
					md.SetMIMEType(uc.ContentType)
				}
			}
			return nil
		},
	}
}
