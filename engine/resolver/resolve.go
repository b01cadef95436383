package resolver

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/document"
	"github.com/Carmen-Shannon/oxy-glb/engine/validation"
)

// bufferStrategy is one way of locating a buffer's bytes. Strategies are tried in
// order and the first one whose predicate matches is used.
type bufferStrategy struct {
	matches func(b document.Buffer) bool
	load    func(b document.Buffer, r Resolver) ([]byte, error)
}

var bufferStrategies = []bufferStrategy{
	{
		matches: hasPrefixFold(document.BufferURIPrefixGLTF),
		load:    loadEmbedded(document.BufferURIPrefixGLTF),
	},
	{
		matches: hasPrefixFold(document.BufferURIPrefixOctet),
		load:    loadEmbedded(document.BufferURIPrefixOctet),
	},
	{
		matches: func(b document.Buffer) bool { return b.URI == "" },
		load:    func(_ document.Buffer, r Resolver) ([]byte, error) { return r.ResolveInternal() },
	},
	{
		matches: func(document.Buffer) bool { return true },
		load:    func(b document.Buffer, r Resolver) ([]byte, error) { return r.ResolveNamed(b.URI) },
	},
}

func hasPrefixFold(prefix string) func(document.Buffer) bool {
	return func(b document.Buffer) bool {
		return len(b.URI) >= len(prefix) && strings.EqualFold(b.URI[:len(prefix)], prefix)
	}
}

func loadEmbedded(prefix string) func(document.Buffer, Resolver) ([]byte, error) {
	return func(b document.Buffer, _ Resolver) ([]byte, error) {
		return decodeBase64(b.URI[len(prefix):])
	}
}

// ResolveBuffer returns the bytes of doc.Buffers[index], whichever storage mode the
// buffer uses, and checks them against the declared byteLength.
//
// Parameters:
//   - doc: the document owning the buffer
//   - index: the buffer index
//   - r: the resolver for external and GLB-internal data
//   - slack: how many bytes the data may exceed byteLength by
//
// Returns:
//   - []byte: the buffer bytes; callers must not modify them
//   - error: ErrSizeMismatch if the length is outside the window, or the resolution error
func ResolveBuffer(doc *document.Document, index int, r Resolver, slack int) ([]byte, error) {
	if index < 0 || index >= len(doc.Buffers) {
		return nil, fmt.Errorf("%w: buffer index %d out of range", common.ErrFormat, index)
	}

	buf := doc.Buffers[index]
	data, err := loadBufferUnchecked(buf, r)
	if err != nil {
		return nil, fmt.Errorf("buffer %d: %w", index, err)
	}

	if err := validation.CheckSizeWindow(len(data), buf.ByteLength, slack); err != nil {
		return nil, fmt.Errorf("buffer %d: %w", index, err)
	}
	return data, nil
}

func loadBufferUnchecked(buf document.Buffer, r Resolver) ([]byte, error) {
	for _, s := range bufferStrategies {
		if s.matches(buf) {
			return s.load(buf, r)
		}
	}
	// Unreachable: the external strategy matches everything.
	return nil, fmt.Errorf("%w: no strategy for buffer", common.ErrFormat)
}

// ImageBytes returns the encoded bytes of doc.Images[index]. An image stored in a
// bufferView is sliced out of its owning buffer; an embedded PNG/JPEG data URI is
// decoded; any other URI is handed to the resolver.
//
// Parameters:
//   - doc: the document owning the image
//   - index: the image index
//   - r: the resolver for external and GLB-internal data
//   - slack: how many bytes a buffer may exceed its byteLength by
//
// Returns:
//   - []byte: the image bytes; callers must not modify them
//   - error: error if the image has no source or its source cannot be resolved
func ImageBytes(doc *document.Document, index int, r Resolver, slack int) ([]byte, error) {
	if index < 0 || index >= len(doc.Images) {
		return nil, fmt.Errorf("%w: image index %d out of range", common.ErrFormat, index)
	}
	img := doc.Images[index]

	switch {
	case img.BufferView != nil:
		bvIndex := *img.BufferView
		if bvIndex < 0 || bvIndex >= len(doc.BufferViews) {
			return nil, fmt.Errorf("%w: image %d references missing bufferView %d", common.ErrFormat, index, bvIndex)
		}
		bv := doc.BufferViews[bvIndex]

		data, err := ResolveBuffer(doc, bv.Buffer, r, slack)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", index, err)
		}
		if err := validation.CheckSlice(bv.ByteOffset, bv.ByteLength, len(data)); err != nil {
			return nil, fmt.Errorf("image %d bufferView %d: %w", index, bvIndex, err)
		}
		return data[bv.ByteOffset:bv.End()], nil

	case strings.HasPrefix(img.URI, "data:image/"):
		data, err := decodeEmbeddedImage(img.URI)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", index, err)
		}
		return data, nil

	case img.URI != "":
		data, err := r.ResolveNamed(img.URI)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", index, err)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("%w: image %d has neither a bufferView nor a uri", common.ErrMissingResource, index)
	}
}

// OpenImage returns a seekable stream over the bytes of doc.Images[index].
//
// Parameters:
//   - doc: the document owning the image
//   - index: the image index
//   - r: the resolver for external and GLB-internal data
//   - slack: how many bytes a buffer may exceed its byteLength by
//
// Returns:
//   - *bytes.Reader: a reader over the image bytes
//   - error: error if the image cannot be resolved
func OpenImage(doc *document.Document, index int, r Resolver, slack int) (*bytes.Reader, error) {
	data, err := ImageBytes(doc, index, r, slack)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// AccessorData returns the tightly packed elements of doc.Accessors[index],
// de-interleaving them when the bufferView has a byteStride.
//
// Parameters:
//   - doc: the document owning the accessor
//   - index: the accessor index
//   - r: the resolver for external and GLB-internal data
//   - slack: how many bytes a buffer may exceed its byteLength by
//
// Returns:
//   - []byte: count * element size bytes, freshly allocated
//   - error: error if the accessor is sparse, has no bufferView, or reads out of bounds
func AccessorData(doc *document.Document, index int, r Resolver, slack int) ([]byte, error) {
	if index < 0 || index >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor index %d out of range", common.ErrFormat, index)
	}
	acc := doc.Accessors[index]

	if acc.Sparse != nil {
		return nil, fmt.Errorf("accessor %d: sparse accessors are not supported", index)
	}
	if acc.BufferView == nil {
		return nil, fmt.Errorf("%w: accessor %d has no bufferView", common.ErrMissingResource, index)
	}
	if *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return nil, fmt.Errorf("%w: accessor %d references missing bufferView %d", common.ErrFormat, index, *acc.BufferView)
	}
	bv := doc.BufferViews[*acc.BufferView]

	elementSize := acc.ElementSize()
	if elementSize == 0 {
		return nil, fmt.Errorf("%w: accessor %d has unknown layout %d/%s", common.ErrFormat, index, acc.ComponentType, acc.Type)
	}
	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	data, err := ResolveBuffer(doc, bv.Buffer, r, slack)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w", index, err)
	}
	if err := validation.CheckSlice(bv.ByteOffset, bv.ByteLength, len(data)); err != nil {
		return nil, fmt.Errorf("accessor %d bufferView %d: %w", index, *acc.BufferView, err)
	}
	view := data[bv.ByteOffset:bv.End()]

	if acc.Count < 0 {
		return nil, fmt.Errorf("%w: accessor %d has negative count %d", common.ErrFormat, index, acc.Count)
	}
	if acc.Count > 0 {
		if err := validation.CheckSlice(acc.ByteOffset, (acc.Count-1)*stride+elementSize, len(view)); err != nil {
			return nil, fmt.Errorf("accessor %d: %w", index, err)
		}
	}

	result := make([]byte, acc.Count*elementSize)
	for i := 0; i < acc.Count; i++ {
		src := acc.ByteOffset + i*stride
		copy(result[i*elementSize:(i+1)*elementSize], view[src:src+elementSize])
	}
	return result, nil
}

func decodeEmbeddedImage(uri string) ([]byte, error) {
	for _, prefix := range []string{document.ImageURIPrefixPNG, document.ImageURIPrefixJPEG} {
		if payload, ok := strings.CutPrefix(uri, prefix); ok {
			return decodeBase64(payload)
		}
	}
	return nil, fmt.Errorf("%w: unsupported embedded image %q", common.ErrUnknownMimeType, truncate(uri, 32))
}

func decodeBase64(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode base64: %v", common.ErrFormat, err)
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// MimeType sniffs an image MIME type from its URI.
//   - data:image/png or a .png suffix → image/png
//   - data:image/jpeg or a .jpg/.jpeg suffix → image/jpeg
//
// Parameters:
//   - uri: the image URI
//
// Returns:
//   - string: the MIME type
//   - error: ErrUnknownMimeType for any other URI
func MimeType(uri string) (string, error) {
	lower := strings.ToLower(uri)
	switch {
	case strings.HasPrefix(uri, document.DataURIScheme+document.MimeTypePNG), strings.HasSuffix(lower, ".png"):
		return document.MimeTypePNG, nil
	case strings.HasPrefix(uri, document.DataURIScheme+document.MimeTypeJPEG), strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return document.MimeTypeJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownMimeType, truncate(uri, 64))
	}
}

// Extension returns the file extension used when extracting an image of the given
// MIME type: "jpg" for image/jpeg, "png" otherwise.
func Extension(mimeType string) string {
	if mimeType == document.MimeTypeJPEG {
		return "jpg"
	}
	return "png"
}
