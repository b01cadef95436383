package common

import "errors"

// Errors shared by every codec package. Call sites wrap them with context
// via fmt.Errorf("...: %w", err) so callers can match with errors.Is.
var (
	// ErrFormat is returned for a bad GLB magic number, a chunk length that is not
	// 4-byte aligned, or a structurally broken document reference.
	ErrFormat = errors.New("invalid glTF container format")

	// ErrVersion is returned when the GLB header declares a version other than 2.
	ErrVersion = errors.New("unsupported GLB version")

	// ErrLengthMismatch is returned when the declared GLB length disagrees with the stream length.
	ErrLengthMismatch = errors.New("GLB length mismatch")

	// ErrEndOfStream is returned when a requested chunk is never found before the stream ends.
	ErrEndOfStream = errors.New("GLB chunk not found before end of stream")

	// ErrSizeMismatch is returned when resolved bytes fall outside the declared size window.
	ErrSizeMismatch = errors.New("buffer size mismatch")

	// ErrAmbiguousBinaryBuffer is returned when more than one buffer has no URI.
	ErrAmbiguousBinaryBuffer = errors.New("multiple GLB binary buffer references")

	// ErrUnexpectedBuffer is returned when a binary payload is supplied for a document
	// that has no GLB-internal buffer, or one is missing where required.
	ErrUnexpectedBuffer = errors.New("unexpected binary buffer")

	// ErrUnknownMimeType is returned when an image MIME type cannot be sniffed from its URI.
	ErrUnknownMimeType = errors.New("unable to determine image mime type")

	// ErrMissingResource is returned when an external file or image source is absent.
	ErrMissingResource = errors.New("missing resource")
)
