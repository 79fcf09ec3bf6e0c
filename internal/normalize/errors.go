package normalize

import (
	"errors"
	"fmt"
)

// Kind classifies why a normalization failed. None of them are retryable.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: the source is missing or not a regular file.
	KindNotFound
	// KindMetadataUnavailable: the source exists but could not be stat'ed.
	KindMetadataUnavailable
	KindDecodeFailed
	KindEncodeFailed
	// KindIOFailed covers storage root creation, artifact write and re-read.
	KindIOFailed
	// KindInvalid: bad configuration or an unusable artifact ID.
	KindInvalid
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindNotFound:            "not_found",
	KindMetadataUnavailable: "metadata_unavailable",
	KindDecodeFailed:        "decode_failed",
	KindEncodeFailed:        "encode_failed",
	KindIOFailed:            "io_failed",
	KindInvalid:             "invalid",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error reports the stage that failed, the path involved and the cause.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Kind, e.Op)
	if e.Path != "" {
		s += " " + e.Path
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
