package analyzer

import (
	"context"
	"image"
	"io"

	// register the common decoders for image.DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/attachkit/attachkit"
)

// Dimensions contributes "width" and "height" extras for image content. It
// decodes only the image header, never the pixel data. Content that is not
// a recognized image format contributes nothing; it is not an error.
func Dimensions() Analyzer {
	return Func{
		AnalyzerName: "dimensions",
		AnalyzeFunc: func(ctx context.Context, src io.ReadSeeker, md *attachkit.Metadata, uc attachkit.UploadContext) error {
			cfg, _, err := image.DecodeConfig(src)
			if err != nil {
				return nil
			}
			md.Extra.Set("width", cfg.Width)
			md.Extra.Set("height", cfg.Height)
			return nil
		},
	}
}
