// Package validation holds the length, padding and reference cross-checks shared by
// the container read path, the buffer resolver and the binary write path.
package validation

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/document"
)

// DefaultSizeSlack is how many bytes a resolved buffer may exceed its declared
// byteLength by. Writers pad buffers to 4 bytes without updating byteLength.
// Reference: https://github.com/KhronosGroup/glTF/issues/1026
const DefaultSizeSlack = 3

// CheckChunkLength verifies that a chunk length is a multiple of 4.
//
// Parameters:
//   - n: the declared chunk length
//
// Returns:
//   - error: ErrFormat if n is not 4-byte aligned
func CheckChunkLength(n uint32) error {
	if n&3 != 0 {
		return fmt.Errorf("%w: chunk must be padded to 4 bytes, got length %d", common.ErrFormat, n)
	}
	return nil
}

// CheckSizeWindow verifies that actual lies in [declared, declared+slack].
//
// Parameters:
//   - actual: the number of bytes resolved
//   - declared: the declared byteLength
//   - slack: the tolerated excess
//
// Returns:
//   - error: ErrSizeMismatch if actual is outside the window
func CheckSizeWindow(actual, declared, slack int) error {
	if actual < declared {
		return fmt.Errorf("%w: length is %d, expected %d", common.ErrSizeMismatch, actual, declared)
	}
	if actual-declared > slack {
		return fmt.Errorf("%w: length is %d, expected %d (at most %d bytes of padding)", common.ErrSizeMismatch, actual, declared, slack)
	}
	return nil
}

// CheckBinaryBuffers enforces the "at most one GLB-internal buffer" rule before a
// binary container is written.
//   - more than one buffer without a URI fails with ErrAmbiguousBinaryBuffer
//   - exactly one requires bin, the buffer must be buffers[0], and len(bin) must
//     fit the size window
//   - none requires bin to be empty, else ErrUnexpectedBuffer
//
// Parameters:
//   - doc: the document about to be written
//   - bin: the binary chunk payload, or nil
//   - slack: the tolerated excess over the declared byteLength
//
// Returns:
//   - error: the first violation found
func CheckBinaryBuffers(doc *document.Document, bin []byte, slack int) error {
	internal := doc.InternalBuffers()

	switch {
	case len(internal) > 1:
		return fmt.Errorf("%w: buffers %v have no uri", common.ErrAmbiguousBinaryBuffer, internal)
	case len(internal) == 1:
		if internal[0] != 0 {
			return fmt.Errorf("%w: the GLB-stored buffer must be buffers[0], found at index %d", common.ErrFormat, internal[0])
		}
		if bin == nil {
			return fmt.Errorf("%w: buffers[0] has no uri but no binary payload was supplied", common.ErrUnexpectedBuffer)
		}
		if err := CheckSizeWindow(len(bin), doc.Buffers[0].ByteLength, slack); err != nil {
			return fmt.Errorf("binary payload: %w", err)
		}
	default:
		if len(bin) > 0 {
			return fmt.Errorf("%w: every buffer has a uri but a binary payload of %d bytes was supplied", common.ErrUnexpectedBuffer, len(bin))
		}
	}
	return nil
}

// CheckBufferViews verifies that every bufferView references an existing buffer and
// stays within its declared byteLength plus slack.
//
// Parameters:
//   - doc: the document to check
//   - slack: the tolerated excess over the declared byteLength
//
// Returns:
//   - error: ErrFormat for a dangling or negative reference, ErrSizeMismatch for an overrun
func CheckBufferViews(doc *document.Document, slack int) error {
	for i, bv := range doc.BufferViews {
		if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
			return fmt.Errorf("%w: bufferView %d references missing buffer %d", common.ErrFormat, i, bv.Buffer)
		}
		if bv.ByteOffset < 0 || bv.ByteLength < 0 {
			return fmt.Errorf("%w: bufferView %d has negative offset or length", common.ErrFormat, i)
		}
		if limit := doc.Buffers[bv.Buffer].ByteLength + slack; bv.End() > limit {
			return fmt.Errorf("%w: bufferView %d ends at %d, buffer %d holds %d bytes",
				common.ErrSizeMismatch, i, bv.End(), bv.Buffer, doc.Buffers[bv.Buffer].ByteLength)
		}
	}
	return nil
}

// CheckSlice verifies that [offset, offset+length) lies inside a byte slice of size n.
//
// Parameters:
//   - offset: the slice start
//   - length: the slice length
//   - n: the size of the data being sliced
//
// Returns:
//   - error: ErrSizeMismatch if the range is out of bounds
func CheckSlice(offset, length, n int) error {
	if offset < 0 || length < 0 || offset+length > n {
		return fmt.Errorf("%w: range [%d, %d) outside %d bytes", common.ErrSizeMismatch, offset, offset+length, n)
	}
	return nil
}

// CheckPacked verifies the layout produced by packing: a single buffer, every view
// in buffer 0, offsets 4-byte aligned, increasing and non-overlapping.
//
// Parameters:
//   - doc: the packed document
//
// Returns:
//   - error: ErrFormat describing the first violation
func CheckPacked(doc *document.Document) error {
	if len(doc.BufferViews) == 0 {
		return nil
	}
	if len(doc.Buffers) != 1 {
		return fmt.Errorf("%w: packed document has %d buffers", common.ErrFormat, len(doc.Buffers))
	}

	prevEnd := 0
	for i, bv := range doc.BufferViews {
		switch {
		case bv.Buffer != 0:
			return fmt.Errorf("%w: bufferView %d references buffer %d", common.ErrFormat, i, bv.Buffer)
		case bv.ByteOffset%4 != 0:
			return fmt.Errorf("%w: bufferView %d offset %d is not 4-byte aligned", common.ErrFormat, i, bv.ByteOffset)
		case bv.ByteOffset < prevEnd:
			return fmt.Errorf("%w: bufferView %d at %d overlaps previous view ending at %d", common.ErrFormat, i, bv.ByteOffset, prevEnd)
		case bv.End() > doc.Buffers[0].ByteLength:
			return fmt.Errorf("%w: bufferView %d ends past the packed buffer", common.ErrFormat, i)
		}
		prevEnd = bv.End()
	}
	return nil
}
