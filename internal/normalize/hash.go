package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"

	"github.com/corona10/goimagehash"
	"github.com/spf13/afero"
)

// ContentHash is the dedup key of an artifact: lowercase hex MD5 of its
// encoded bytes. MD5 is fine for a single user's accidental duplicates but
// must not be trusted against adversarial input.
func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// HashFile computes the content hash of an existing file without decoding or
// normalizing it, so callers can skip sources they have already seen.
func HashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", newError(KindNotFound, "hash", path, err)
		}
		return "", newError(KindIOFailed, "hash", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", newError(KindIOFailed, "hash", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

var perceptualHash = PerceptualHash

// PerceptualHash returns the 64-bit pHash of img as 16 hex digits. Unlike
// ContentHash it survives re-encoding, so it can flag near-duplicates.
func PerceptualHash(img image.Image) (string, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", hash.GetHash()), nil
}

// PerceptualDistance returns the Hamming distance between two hashes produced
// by PerceptualHash.
func PerceptualDistance(a, b string) (int, error) {
	ha, err := parsePerceptual(a)
	if err != nil {
		return 0, err
	}
	hb, err := parsePerceptual(b)
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}

func parsePerceptual(s string) (*goimagehash.ImageHash, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid perceptual hash %q: %w", s, err)
	}
	return goimagehash.NewImageHash(v, goimagehash.PHash), nil
}
