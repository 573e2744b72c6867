// Package analyzer implements the metadata-extraction pipeline run over
// uploaded content before any bytes are committed to storage.
//
// Analyzers are composed at uploader construction time. Each analyzer reads
// from the start of the content (the pipeline rewinds between analyzers) and
// contributes zero or more metadata fields. An analyzer may also reject the
// upload outright by returning attachkit.InvalidFileError, making extraction
// the validation checkpoint of an upload.
package analyzer

import (
	"context"
	"fmt"
	"io"

	"github.com/attachkit/attachkit"
)

// Analyzer extracts metadata fields from uploaded content.
type Analyzer interface {
	// Name returns the analyzer's name for error reporting.
	Name() string

	// Analyze reads content from src and records its findings on md. The
	// src is positioned at the start of the content; analyzers that consume
	// it need not rewind afterwards. Returning attachkit.InvalidFileError
	// aborts the upload as rejected; any other error aborts it as failed.
	Analyze(ctx context.Context, src io.ReadSeeker, md *attachkit.Metadata, uc attachkit.UploadContext) error
}

// Func adapts a function to the Analyzer interface.
type Func struct {
	AnalyzerName string
	AnalyzeFunc  func(ctx context.Context, src io.ReadSeeker, md *attachkit.Metadata, uc attachkit.UploadContext) error
}

// Name returns the analyzer's name.
func (f Func) Name() string { return f.AnalyzerName }

// Analyze invokes the wrapped function.
func (f Func) Analyze(ctx context.Context, src io.ReadSeeker, md *attachkit.Metadata, uc attachkit.UploadContext) error {
	return f.AnalyzeFunc(ctx, src, md, uc)
}

// Run executes the pipeline over src, rewinding to the start of the content
// before each analyzer and once more before returning, so the caller can
// consume src afterwards. The first analyzer error aborts the run;
// attachkit.InvalidFileError passes through unwrapped so callers can
// distinguish a rejected file from a failed extraction.
func Run(ctx context.Context, analyzers []Analyzer, src io.ReadSeeker, uc attachkit.UploadContext) (attachkit.Metadata, error) {
	var md attachkit.Metadata

	for _, a := range analyzers {
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return attachkit.Metadata{}, fmt.Errorf("rewinding before analyzer %s: %w", a.Name(), err)
		}
		if err := a.Analyze(ctx, src, &md, uc); err != nil {
			if _, invalid := err.(attachkit.InvalidFileError); invalid {
				return attachkit.Metadata{}, err
			}
			return attachkit.Metadata{}, fmt.Errorf("analyzer %s: %w", a.Name(), err)
		}
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return attachkit.Metadata{}, err
	}
	return md, nil
}
