package processor

import (
	"context"

	"github.com/aliskhannn/jpg-converter/internal/model"
)

const DefaultHEICQuality = 90

var heicRule = acceptRule{
	extensions:   []string{".heic", ".heif"},
	contentTypes: []string{"image/heic", "image/heif"},
}

// CodecOptions describes the output requested from a Codec.
type CodecOptions struct {
	Format  string // output MIME type, e.g. "image/jpeg"
	Quality int    // 1-100
}

// Codec decodes container images into the requested output format.
// A container with several embedded images yields several results.
type Codec interface {
	Convert(ctx context.Context, data []byte, opts CodecOptions) ([][]byte, error)
}

// HEIC converts HEIC/HEIF files to JPEG by delegating to a Codec.
type HEIC struct {
	codec   Codec
	quality int
}

// NewHEIC creates a HEIC strategy. A non-positive quality means DefaultHEICQuality.
func NewHEIC(codec Codec, quality int) *HEIC {
	if quality <= 0 {
		quality = DefaultHEICQuality
	}
	return &HEIC{codec: codec, quality: quality}
}

func (h *HEIC) Mode() model.Mode { return model.ModeHEIC }

// Accepts reports whether src is a HEIC or HEIF file.
func (h *HEIC) Accepts(src model.SourceFile) bool {
	return heicRule.match(src)
}

// Decode converts src and returns the first image of the container.
func (h *HEIC) Decode(ctx context.Context, src model.SourceFile) ([]byte, error) {
	results, err := h.codec.Convert(ctx, src.Data, CodecOptions{
		Format:  "image/jpeg",
		Quality: h.quality,
	})
	if err != nil {
		return nil, decodeError(model.ModeHEIC, src.Name, "the HEIC format could not be converted", err)
	}
	if len(results) == 0 || len(results[0]) == 0 {
		return nil, decodeError(model.ModeHEIC, src.Name, "the HEIC format could not be converted", nil)
	}

	return results[0], nil
}
