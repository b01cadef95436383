package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-glb/common"
)

// Length returns the total container length for the given unpadded chunk sizes.
// A binLen of zero means the BIN chunk is omitted.
//
// Parameters:
//   - jsonLen: the unpadded JSON chunk length
//   - binLen: the unpadded BIN chunk length, or 0 when absent
//
// Returns:
//   - int: 12 + 8 + padded JSON length, plus 8 + padded BIN length when present
func Length(jsonLen, binLen int) int {
	total := HeaderSize + ChunkHeaderSize + common.AlignUp(jsonLen)
	if binLen > 0 {
		total += ChunkHeaderSize + common.AlignUp(binLen)
	}
	return total
}

// Write emits a complete GLB container: header, JSON chunk padded with spaces, and,
// when binChunk is non-empty, a BIN chunk padded with zero bytes. An empty binChunk
// is treated as absent.
//
// Parameters:
//   - w: the destination writer
//   - jsonChunk: the serialized document
//   - binChunk: the binary payload, or nil
//
// Returns:
//   - int64: the number of bytes written
//   - error: error if the container is too large or a write fails
func Write(w io.Writer, jsonChunk, binChunk []byte) (int64, error) {
	total := Length(len(jsonChunk), len(binChunk))
	if uint64(total) > uint64(^uint32(0)) {
		return 0, fmt.Errorf("%w: container of %d bytes exceeds the 32-bit length field", common.ErrFormat, total)
	}

	cw := &countingWriter{w: w}

	cw.header(Header{Magic: Magic, Version: Version, Length: uint32(total)})

	jsonPad := common.Padding(len(jsonChunk))
	cw.chunkHeader(ChunkHeader{Length: uint32(len(jsonChunk) + jsonPad), Type: ChunkJSON})
	cw.write(jsonChunk)
	cw.pad(jsonPad, jsonPadByte)

	if len(binChunk) > 0 {
		binPad := common.Padding(len(binChunk))
		cw.chunkHeader(ChunkHeader{Length: uint32(len(binChunk) + binPad), Type: ChunkBIN})
		cw.write(binChunk)
		cw.pad(binPad, binPadByte)
	}

	if cw.err != nil {
		return cw.n, fmt.Errorf("failed to write GLB container: %w", cw.err)
	}
	return cw.n, nil
}

// Encode returns the container bytes produced by Write.
//
// Parameters:
//   - jsonChunk: the serialized document
//   - binChunk: the binary payload, or nil
//
// Returns:
//   - []byte: the complete container
//   - error: error if the container is too large
func Encode(jsonChunk, binChunk []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(Length(len(jsonChunk), len(binChunk)))
	if _, err := Write(&buf, jsonChunk, binChunk); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// countingWriter stops at the first error and tracks the bytes written.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) write(p []byte) {
	if cw.err != nil || len(p) == 0 {
		return
	}
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	cw.err = err
}

func (cw *countingWriter) header(h Header) {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint32(b[0:], h.Magic)
	binary.LittleEndian.PutUint32(b[4:], h.Version)
	binary.LittleEndian.PutUint32(b[8:], h.Length)
	cw.write(b[:])
}

func (cw *countingWriter) chunkHeader(ch ChunkHeader) {
	var b [ChunkHeaderSize]byte
	binary.LittleEndian.PutUint32(b[0:], ch.Length)
	binary.LittleEndian.PutUint32(b[4:], ch.Type)
	cw.write(b[:])
}

func (cw *countingWriter) pad(n int, fill byte) {
	if n == 0 {
		return
	}
	var b [3]byte
	for i := range n {
		b[i] = fill
	}
	cw.write(b[:n])
}
