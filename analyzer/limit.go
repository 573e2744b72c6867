package analyzer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/attachkit/attachkit"
)

// Limits constrains uploads by size and media type, rejecting offending
// content with attachkit.InvalidFileError before it reaches storage. A zero
// field disables the corresponding check.
type Limits struct {
	// MaxSize is the largest accepted content length in bytes.
	MaxSize int64

	// AllowedTypes lists accepted media types. An entry ending in "/*"
	// accepts the whole type family, e.g. "image/*".
	AllowedTypes []string
}

// Limit validates content against the given limits. It determines size and
// media type itself, so it does not depend on pipeline ordering.
func Limit(limits Limits) Analyzer {
	return Func{
		AnalyzerName: "limit",
		AnalyzeFunc: func(ctx context.Context, src io.ReadSeeker, md *attachkit.Metadata, uc attachkit.UploadContext) error {
			if limits.MaxSize > 0 {
				n, err := io.Copy(io.Discard, io.LimitReader(src, limits.MaxSize+1))
				if err != nil {
					return err
				}
				if n > limits.MaxSize {
					return attachkit.InvalidFileError{
						Reason: fmt.Sprintf("content exceeds maximum size of %d bytes", limits.MaxSize),
					}
				}
				if _, err := src.Seek(0, io.SeekStart); err != nil {
					return err
				}
			}

			if len(limits.AllowedTypes) > 0 {
				mt, err := detectMediaType(ctx, src, md)
				if err != nil {
					return err
				}
				if !typeAllowed(mt, limits.AllowedTypes) {
					return attachkit.InvalidFileError{
						Reason: fmt.Sprintf("media type %s is not allowed", mt),
					}
				}
			}
			return nil
		},
	}
}

// detectMediaType reuses a media type recorded by an earlier MIME analyzer
// and sniffs the content otherwise.
func detectMediaType(ctx context.Context, src io.ReadSeeker, md *attachkit.Metadata) (string, error) {
	if md.MIMEType != nil {
		return *md.MIMEType, nil
	}

	var probe attachkit.Metadata
	err := MIME(SniffMIME).Analyze(ctx, src, &probe, attachkit.UploadContext{})
	if err != nil {
		return "", err
	}
	if probe.MIMEType == nil {
		return "", nil
	}
	return *probe.MIMEType, nil
}

func typeAllowed(mediaType string, allowed []string) bool {
	// sniffed types may carry parameters such as "; charset=utf-8"
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}

	for _, entry := range allowed {
		if family, ok := strings.CutSuffix(entry, "/*"); ok {
			if strings.HasPrefix(mediaType, family+"/") {
				return true
			}
			continue
		}
		if mediaType == entry {
			return true
		}
	}
	return false
}
