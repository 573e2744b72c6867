package analyzer

import (
	"context"
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/attachkit/attachkit"
)

// Digest contributes a content digest to the metadata extras under the
// algorithm's name (e.g. "sha256"), letting callers verify stored content or
// deduplicate uploads.
func Digest(alg digest.Algorithm) Analyzer {
	return Func{
		AnalyzerName: "digest",
		AnalyzeFunc: func(ctx context.Context, src io.ReadSeeker, md *attachkit.Metadata, uc attachkit.UploadContext) error {
			dgst, err := alg.FromReader(src)
			if err != nil {
				return err
			}
			md.Extra.Set(string(alg), dgst.Encoded())
			return nil
		},
	}
}
