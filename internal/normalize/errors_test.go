package normalize

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("Should format kind, stage, path and cause", func(t *testing.T) {
		err := newError(KindDecodeFailed, "decode", "/in/a.png", errors.New("bad header"))
		assert.Equal(t, "[decode_failed] decode /in/a.png: bad header", err.Error())
	})

	t.Run("Should survive wrapping", func(t *testing.T) {
		inner := newError(KindNotFound, "stat source", "/x", os.ErrNotExist)
		wrapped := fmt.Errorf("job j1: %w", inner)

		assert.True(t, IsKind(wrapped, KindNotFound))
		assert.Equal(t, KindNotFound, KindOf(wrapped))
		assert.ErrorIs(t, wrapped, os.ErrNotExist)
	})

	t.Run("Should report unknown for foreign errors", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
		assert.False(t, IsKind(nil, KindUnknown))
	})

	t.Run("Should name every kind", func(t *testing.T) {
		assert.Equal(t, "io_failed", KindIOFailed.String())
		assert.Equal(t, "metadata_unavailable", KindMetadataUnavailable.String())
		assert.Equal(t, "kind(99)", Kind(99).String())
	})
}
