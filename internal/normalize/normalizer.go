// Package normalize turns user supplied screenshots and photos into small,
// grayscale, content-hashed artifacts ready for OCR and long-term storage.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	_ "golang.org/x/image/webp" // webp sources

	"github.com/vatsal3003/snapnorm/internal/codec"
	"github.com/vatsal3003/snapnorm/internal/store"
	"github.com/vatsal3003/snapnorm/pkg/models"
)

const (
	DefaultMaxDimension = 1536
	DefaultQuality      = 75
	DefaultCodec        = "webp"
)

// Config controls a Normalizer. Codec and MaxDimension are independent.
// AutoOrient applies the EXIF orientation tag before resizing; it is off by
// default so output matches the stored raster of the source.
type Config struct {
	MaxDimension int    `yaml:"max_dimension"`
	Quality      int    `yaml:"quality"`
	Codec        string `yaml:"codec"`
	StorageRoot  string `yaml:"storage_root"`
	AutoOrient   bool   `yaml:"auto_orient"`
}

func DefaultConfig() Config {
	return Config{
		MaxDimension: DefaultMaxDimension,
		Quality:      DefaultQuality,
		Codec:        DefaultCodec,
		StorageRoot:  filepath.Join(os.TempDir(), "snapnorm"),
	}
}

func (c Config) Validate() error {
	if c.MaxDimension <= 0 {
		return fmt.Errorf("max_dimension must be positive, got %d", c.MaxDimension)
	}
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("quality must be within 0-100, got %d", c.Quality)
	}
	if c.StorageRoot == "" {
		return errors.New("storage_root is required")
	}
	if c.Codec == "" {
		return errors.New("codec is required")
	}
	return nil
}

// Request names the source image and the caller-assigned artifact ID.
type Request struct {
	SourcePath string
	ArtifactID string
}

// Normalizer runs the normalization pipeline. It holds no mutable state and
// is safe for concurrent use; concurrent calls sharing an ArtifactID race on
// the same output path.
type Normalizer struct {
	cfg   Config
	fs    afero.Fs
	codec codec.Codec
	store *store.Store
}

// New validates cfg and resolves its codec. Sources are read from and
// artifacts written to fs.
func New(cfg Config, fs afero.Fs) (*Normalizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, newError(KindInvalid, "config", "", err)
	}

	c, err := codec.Lookup(cfg.Codec)
	if err != nil {
		return nil, newError(KindInvalid, "config", "", err)
	}

	return &Normalizer{
		cfg:   cfg,
		fs:    fs,
		codec: c,
		store: store.New(fs, cfg.StorageRoot),
	}, nil
}

func (n *Normalizer) Config() Config      { return n.cfg }
func (n *Normalizer) Codec() codec.Codec  { return n.codec }
func (n *Normalizer) Store() *store.Store { return n.store }

// OutputPath is where the artifact for id is written.
func (n *Normalizer) OutputPath(id string) string {
	return n.store.Path(id, n.codec.Ext())
}

// Normalize decodes the source, shrinks it to fit MaxDimension, reduces it
// to luminance, encodes it with the configured codec and atomically writes
// it under the storage root. The returned result is fully populated, or an
// *Error explains which stage failed.
func (n *Normalizer) Normalize(req Request) (*models.NormalizationResult, error) {
	if err := store.ValidateID(req.ArtifactID); err != nil {
		return nil, newError(KindInvalid, "artifact id", req.SourcePath, err)
	}

	info, err := n.fs.Stat(req.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newError(KindNotFound, "stat source", req.SourcePath, err)
		}
		return nil, newError(KindMetadataUnavailable, "stat source", req.SourcePath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, newError(KindNotFound, "stat source", req.SourcePath, errors.New("not a regular file"))
	}
	originalSize := info.Size()

	src, err := n.decode(req.SourcePath)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	width, height := TargetSize(bounds.Dx(), bounds.Dy(), n.cfg.MaxDimension)

	var resized image.Image = src
	if width != bounds.Dx() || height != bounds.Dy() {
		resized = imaging.Resize(src, width, height, imaging.Lanczos)
	}

	gray := reduceToLuminance(resized)

	var buf bytes.Buffer
	if err := n.codec.Encode(&buf, gray, n.cfg.Quality); err != nil {
		return nil, newError(KindEncodeFailed, "encode "+n.codec.Name(), req.SourcePath, err)
	}

	outputPath, err := n.store.Put(req.ArtifactID, n.codec.Ext(), buf.Bytes())
	if err != nil {
		return nil, newError(KindIOFailed, "write artifact", n.OutputPath(req.ArtifactID), err)
	}

	// size and hash come from what is on disk, not from the buffer
	written, err := n.store.Read(outputPath)
	if err != nil {
		return nil, newError(KindIOFailed, "read back artifact", outputPath, err)
	}

	// the perceptual hash is advisory; the artifact is already persisted
	phash, err := perceptualHash(gray)
	if err != nil {
		phash = ""
	}

	return &models.NormalizationResult{
		ArtifactID:     req.ArtifactID,
		SourcePath:     req.SourcePath,
		OutputPath:     outputPath,
		Codec:          n.codec.Name(),
		OriginalSize:   uint64(originalSize),
		CompressedSize: uint64(len(written)),
		Width:          uint32(gray.Bounds().Dx()),
		Height:         uint32(gray.Bounds().Dy()),
		ContentHash:    ContentHash(written),
		PerceptualHash: phash,
	}, nil
}

// decode sniffs the format from content, never from the extension.
func (n *Normalizer) decode(path string) (image.Image, error) {
	f, err := n.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newError(KindNotFound, "open source", path, err)
		}
		return nil, newError(KindIOFailed, "open source", path, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(n.cfg.AutoOrient))
	if err != nil {
		return nil, newError(KindDecodeFailed, "decode", path, err)
	}
	return img, nil
}

// reduceToLuminance keeps only the luma channel and expands it back to an
// opaque three channel image (R=G=B=Y) that every codec accepts.
func reduceToLuminance(img image.Image) *image.NRGBA {
	g := imaging.Grayscale(img)
	w, h := g.Rect.Dx(), g.Rect.Dy()

	luma := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+w*4]
		dst := luma.Pix[y*luma.Stride : y*luma.Stride+w]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}

	return imaging.Clone(luma)
}
