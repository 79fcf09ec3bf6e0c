package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCodec struct{ name string }

func (f fakeCodec) Name() string { return f.name }

func (fakeCodec) Ext() string { return ".fake" }

func (fakeCodec) Encode(_ io.Writer, _ image.Image, _ int) error { return nil }

func TestLookup(t *testing.T) {
	t.Run("Should find the builtin jpeg codec", func(t *testing.T) {
		c, err := Lookup("jpeg")
		require.NoError(t, err)
		assert.Equal(t, ".jpg", c.Ext())
	})

	t.Run("Should accept jpg alias and mixed case", func(t *testing.T) {
		c, err := Lookup(" JPG ")
		require.NoError(t, err)
		assert.Equal(t, "jpeg", c.Name())
	})

	t.Run("Should list available codecs on unknown name", func(t *testing.T) {
		_, err := Lookup("avif")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jpeg")
	})
}

func TestRegister(t *testing.T) {
	t.Run("Should register a new codec once", func(t *testing.T) {
		Register(fakeCodec{name: "fake-once"})
		assert.Contains(t, Names(), "fake-once")
	})

	t.Run("Should panic on duplicate registration", func(t *testing.T) {
		Register(fakeCodec{name: "fake-dup"})
		assert.Panics(t, func() { Register(fakeCodec{name: "fake-dup"}) })
	})
}

func TestJPEGEncode(t *testing.T) {
	t.Run("Should produce a decodable jpeg deterministically", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 32, 16))
		for y := 0; y < 16; y++ {
			for x := 0; x < 32; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(x * 8)})
			}
		}

		var a, b bytes.Buffer
		require.NoError(t, JPEG{}.Encode(&a, img, 75))
		require.NoError(t, JPEG{}.Encode(&b, img, 75))
		assert.Equal(t, a.Bytes(), b.Bytes())

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(a.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 32, cfg.Width)
		assert.Equal(t, 16, cfg.Height)
	})
}
