package processor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/heic"
)

// NativeCodec decodes HEIC containers in-process and re-encodes the primary
// image. It only produces JPEG.
type NativeCodec struct{}

// NewNativeCodec creates a NativeCodec.
func NewNativeCodec() *NativeCodec {
	return &NativeCodec{}
}

// Convert decodes the primary image of data and encodes it as JPEG.
func (c *NativeCodec) Convert(ctx context.Context, data []byte, opts CodecOptions) ([][]byte, error) {
	if opts.Format != "image/jpeg" {
		return nil, fmt.Errorf("unsupported output format: %s", opts.Format)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Decode into an image object.
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode heic: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return [][]byte{buf.Bytes()}, nil
}
