// Package webp registers a lossy WebP codec backed by libwebp.
//
// It needs cgo and the libwebp headers; import it for its side effect:
//
//	import _ "github.com/vatsal3003/snapnorm/internal/codec/webp"
package webp

import (
	"fmt"
	"image"
	"io"

	"github.com/kolesa-team/go-webp/encoder"
	gowebp "github.com/kolesa-team/go-webp/webp"

	"github.com/vatsal3003/snapnorm/internal/codec"
)

// Codec writes lossy WebP with the default preset.
type Codec struct{}

func (Codec) Name() string { return "webp" }
func (Codec) Ext() string  { return ".webp" }

func (Codec) Encode(w io.Writer, img image.Image, quality int) error {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(clamp(quality)))
	if err != nil {
		return fmt.Errorf("failed to build webp options: %w", err)
	}

	if err := gowebp.Encode(w, img, opts); err != nil {
		return fmt.Errorf("failed to encode webp: %w", err)
	}
	return nil
}

func clamp(q int) int {
	switch {
	case q < 0:
		return 0
	case q > 100:
		return 100
	default:
		return q
	}
}

func init() {
	codec.Register(Codec{})
}
