// Package asset reads and writes whole glTF assets: it detects GLB versus JSON
// input, transparently handles zstd-compressed files, and guards every binary
// write with the GLB-internal buffer checks.
package asset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/container"
	"github.com/Carmen-Shannon/oxy-glb/engine/document"
	"github.com/Carmen-Shannon/oxy-glb/engine/validation"
)

// zstdMagic is the little-endian frame magic of a zstd stream.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// CompressedExt is appended to output names when compression is enabled.
const CompressedExt = ".zst"

// Decode reads a glTF asset from r. The stream is sniffed without being consumed:
// a zstd frame is decompressed first, then a GLB container is split into its JSON
// and BIN chunks, otherwise the whole stream is parsed as glTF JSON.
//
// Parameters:
//   - r: the stream positioned at the start of the asset
//
// Returns:
//   - *document.Document: the decoded document
//   - []byte: the GLB BIN chunk, or nil for JSON assets and containers without one
//   - error: error if the asset is malformed
func Decode(r io.ReadSeeker) (*document.Document, []byte, error) {
	r, err := Uncompressed(r)
	if err != nil {
		return nil, nil, err
	}

	binary, err := container.IsBinary(r)
	if err != nil {
		return nil, nil, err
	}

	if binary {
		jsonChunk, binChunk, err := container.ReadContainer(r)
		if err != nil {
			return nil, nil, err
		}
		doc, err := document.Decode(jsonChunk)
		if err != nil {
			return nil, nil, err
		}
		return doc, binChunk, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data: %w", err)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	return doc, nil, nil
}

// Load opens the asset at path and decodes it with Decode.
//
// Parameters:
//   - path: the .gltf, .glb or zstd-compressed asset path
//
// Returns:
//   - *document.Document: the decoded document
//   - []byte: the GLB BIN chunk, or nil
//   - error: ErrMissingResource if path does not exist, or a decode error
func Load(path string) (*document.Document, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", common.ErrMissingResource, path)
		}
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, bin, err := Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return doc, bin, nil
}

// LoadBinaryChunk returns the BIN chunk of the GLB container at path.
//
// Parameters:
//   - path: the GLB file path
//
// Returns:
//   - []byte: the BIN chunk payload
//   - error: error if the file is not a valid container or has no BIN chunk
func LoadBinaryChunk(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrMissingResource, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadBinaryChunk(f)
}

// ReadBinaryChunk returns the BIN chunk of a GLB stream, decompressing it first
// when it is a zstd frame.
//
// Parameters:
//   - r: the stream positioned at the start of the container
//
// Returns:
//   - []byte: the BIN chunk payload
//   - error: error if the stream is not a valid container or has no BIN chunk
func ReadBinaryChunk(r io.ReadSeeker) ([]byte, error) {
	r, err := Uncompressed(r)
	if err != nil {
		return nil, err
	}
	return container.ReadBinaryChunk(r)
}

// Uncompressed returns r itself when it does not start with a zstd frame, and a
// reader over the decompressed bytes otherwise.
//
// Parameters:
//   - r: the stream positioned at the start of the asset
//
// Returns:
//   - io.ReadSeeker: a stream over the uncompressed asset
//   - error: error if the zstd stream is corrupt
func Uncompressed(r io.ReadSeeker) (io.ReadSeeker, error) {
	compressed, err := isCompressed(r)
	if err != nil {
		return nil, err
	}
	if !compressed {
		return r, nil
	}

	raw, err := decompress(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(raw), nil
}

// WriteBinary serializes doc and writes it with bin as a GLB container. The
// GLB-internal buffer rules are checked before anything is written.
//
// Parameters:
//   - w: the destination writer
//   - doc: the document to write
//   - bin: the BIN chunk payload, or nil
//   - slack: how many bytes bin may exceed buffers[0].byteLength by
//
// Returns:
//   - int64: the number of bytes written
//   - error: ErrAmbiguousBinaryBuffer, ErrUnexpectedBuffer, ErrSizeMismatch or a write error
func WriteBinary(w io.Writer, doc *document.Document, bin []byte, slack int) (int64, error) {
	if doc == nil {
		return 0, fmt.Errorf("cannot write a nil document")
	}
	if err := validation.CheckBinaryBuffers(doc, bin, slack); err != nil {
		return 0, err
	}

	jsonChunk, err := document.Encode(doc, false)
	if err != nil {
		return 0, err
	}
	return container.Write(w, jsonChunk, bin)
}

// WriteText serializes doc as glTF JSON.
//
// Parameters:
//   - w: the destination writer
//   - doc: the document to write
//   - indent: true to indent the output
//
// Returns:
//   - error: error if serialization or the write fails
func WriteText(w io.Writer, doc *document.Document, indent bool) error {
	data, err := document.Encode(doc, indent)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write glTF JSON: %w", err)
	}
	return nil
}

// Create opens path for writing, truncating any existing file. With compress set
// the returned writer zstd-encodes everything written to it. Close flushes the
// encoder and closes the file.
//
// Parameters:
//   - path: the destination path
//   - compress: true to zstd-compress the output
//
// Returns:
//   - io.WriteCloser: the destination writer
//   - error: error if the file or encoder cannot be created
func Create(path string, compress bool) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if !compress {
		return f, nil
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &compressedFile{enc: enc, f: f}, nil
}

// BaseName returns the asset name used for generated sibling files: the file name
// without directory, compression suffix and extension.
//
// Parameters:
//   - path: the asset path
//
// Returns:
//   - string: e.g. "Fox" for "models/Fox.glb.zst"
func BaseName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, CompressedExt)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

type compressedFile struct {
	enc *zstd.Encoder
	f   *os.File
}

func (c *compressedFile) Write(p []byte) (int, error) {
	return c.enc.Write(p)
}

func (c *compressedFile) Close() error {
	encErr := c.enc.Close()
	fileErr := c.f.Close()
	if encErr != nil {
		return fmt.Errorf("failed to flush zstd stream: %w", encErr)
	}
	return fileErr
}

func isCompressed(r io.ReadSeeker) (bool, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, fmt.Errorf("failed to query stream position: %w", err)
	}

	head := make([]byte, len(zstdMagic))
	n, readErr := io.ReadFull(r, head)

	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return false, fmt.Errorf("failed to rewind stream: %w", err)
	}
	if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
		return false, fmt.Errorf("failed to read stream head: %w", readErr)
	}
	return n == len(zstdMagic) && bytes.Equal(head, zstdMagic), nil
}

func decompress(r io.Reader) ([]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress asset: %w", err)
	}
	return raw, nil
}
