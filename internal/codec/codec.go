// Package codec holds the lossy encoders an artifact can be written with.
//
// Codecs register themselves by name, the same way image decoders register
// with the image package. The JPEG codec is always available; importing
// internal/codec/webp adds WebP.
package codec

import (
	"fmt"
	"image"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// Codec encodes an image at a quality factor in the range 0-100.
type Codec interface {
	// Name is the registry key, e.g. "jpeg".
	Name() string
	// Ext is the canonical file extension including the dot.
	Ext() string
	Encode(w io.Writer, img image.Image, quality int) error
}

var (
	mu     sync.RWMutex
	codecs = map[string]Codec{}
)

// Register makes a codec available by name. It panics on a duplicate name.
func Register(c Codec) {
	mu.Lock()
	defer mu.Unlock()

	name := strings.ToLower(c.Name())
	if _, dup := codecs[name]; dup {
		panic("codec: Register called twice for " + name)
	}
	codecs[name] = c
}

// Lookup returns the codec registered under name. "jpg" is accepted as an
// alias for "jpeg".
func Lookup(name string) (Codec, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "jpg" {
		name = "jpeg"
	}

	mu.RLock()
	defer mu.RUnlock()

	c, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q (available: %s)", name, strings.Join(namesLocked(), ", "))
	}
	return c, nil
}

// Names lists the registered codec names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JPEG is the universally compatible fallback codec.
type JPEG struct{}

func (JPEG) Name() string { return "jpeg" }
func (JPEG) Ext() string  { return ".jpg" }

func (JPEG) Encode(w io.Writer, img image.Image, quality int) error {
	// imaging clamps quality to [1, 100]
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return nil
}

func init() {
	Register(JPEG{})
}
