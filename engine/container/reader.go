package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/validation"
)

// IsBinary reports whether r holds a GLB container by reading the first four bytes
// as a little-endian integer and comparing them to Magic. The read position is
// restored before returning, so the stream can be handed to either decode path.
//
// Parameters:
//   - r: the stream to sniff, positioned at the start of the asset
//
// Returns:
//   - bool: true if the stream starts with the GLB magic number
//   - error: error if the stream cannot be read or rewound
func IsBinary(r io.ReadSeeker) (bool, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, fmt.Errorf("failed to query stream position: %w", err)
	}

	var magic [4]byte
	n, readErr := io.ReadFull(r, magic[:])

	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return false, fmt.Errorf("failed to rewind stream: %w", err)
	}

	if readErr != nil {
		// Shorter than four bytes cannot be a container.
		if n < 4 && (errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF)) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read magic: %w", readErr)
	}

	return binary.LittleEndian.Uint32(magic[:]) == Magic, nil
}

// ReadHeader reads and validates the 12-byte GLB header at the current position.
// The declared length is compared with the number of bytes between the header
// start and the end of the stream.
//
// Parameters:
//   - r: the stream positioned at the start of the container
//
// Returns:
//   - Header: the decoded header
//   - error: ErrFormat on bad magic, ErrVersion on an unsupported version,
//     ErrLengthMismatch when the declared length disagrees with the stream
func ReadHeader(r io.ReadSeeker) (Header, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return Header{}, fmt.Errorf("failed to query stream position: %w", err)
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return Header{}, fmt.Errorf("failed to query stream length: %w", err)
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return Header{}, fmt.Errorf("failed to rewind stream: %w", err)
	}

	var header Header
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: stream too short for GLB header", common.ErrFormat)
		}
		return Header{}, fmt.Errorf("failed to read GLB header: %w", err)
	}

	if header.Magic != Magic {
		return Header{}, fmt.Errorf("%w: unexpected magic number 0x%08X", common.ErrFormat, header.Magic)
	}
	if header.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", common.ErrVersion, header.Version)
	}
	if actual := end - start; int64(header.Length) != actual {
		return Header{}, fmt.Errorf("%w: declared %d bytes, stream holds %d", common.ErrLengthMismatch, header.Length, actual)
	}

	return header, nil
}

// ReadChunk scans forward chunk by chunk until it finds one tagged want, and returns
// its payload. Chunks with other tags are skipped without being buffered.
//
// Parameters:
//   - r: the stream positioned at a chunk header (directly after the GLB header)
//   - want: the chunk type to look for (ChunkJSON or ChunkBIN)
//
// Returns:
//   - []byte: the payload of the first matching chunk
//   - error: ErrFormat when a chunk length is not 4-byte aligned or a chunk is
//     truncated, ErrEndOfStream when the stream ends cleanly before a matching chunk
func ReadChunk(r io.Reader, want uint32) ([]byte, error) {
	for {
		var ch ChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %s chunk", common.ErrEndOfStream, ChunkTypeName(want))
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: truncated chunk header", common.ErrFormat)
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		if err := validation.CheckChunkLength(ch.Length); err != nil {
			return nil, err
		}

		if ch.Type != want {
			if err := skip(r, int64(ch.Length)); err != nil {
				return nil, err
			}
			continue
		}

		return readPayload(r, ch.Length)
	}
}

// ReadContainer reads a whole GLB container: the header, the required JSON chunk and
// the optional BIN chunk that follows it.
//
// Parameters:
//   - r: the stream positioned at the start of the container
//
// Returns:
//   - []byte: the JSON chunk payload (including any space padding)
//   - []byte: the BIN chunk payload, or nil if the container has none
//   - error: error if the header or chunks are invalid
func ReadContainer(r io.ReadSeeker) ([]byte, []byte, error) {
	if _, err := ReadHeader(r); err != nil {
		return nil, nil, err
	}

	jsonChunk, err := ReadChunk(r, ChunkJSON)
	if err != nil {
		return nil, nil, err
	}

	binChunk, err := ReadChunk(r, ChunkBIN)
	if err != nil {
		if errors.Is(err, common.ErrEndOfStream) {
			return jsonChunk, nil, nil
		}
		return nil, nil, err
	}

	return jsonChunk, binChunk, nil
}

// ReadBinaryChunk reads the header of a GLB container and returns its BIN chunk.
//
// Parameters:
//   - r: the stream positioned at the start of the container
//
// Returns:
//   - []byte: the BIN chunk payload
//   - error: error if the header is invalid or no BIN chunk exists
func ReadBinaryChunk(r io.ReadSeeker) ([]byte, error) {
	if _, err := ReadHeader(r); err != nil {
		return nil, err
	}
	return ReadChunk(r, ChunkBIN)
}

// Inspect walks every chunk of a container and returns its layout.
// Unlike ReadChunk it keeps all chunks, including unknown ones.
//
// Parameters:
//   - r: the stream positioned at the start of the container
//
// Returns:
//   - Layout: the header and every chunk in file order
//   - error: error if the header or any chunk is invalid
func Inspect(r io.ReadSeeker) (Layout, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return Layout{}, err
	}

	layout := Layout{Header: header}
	offset := int64(HeaderSize)
	for {
		var ch ChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			if errors.Is(err, io.EOF) {
				return layout, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return Layout{}, fmt.Errorf("%w: truncated chunk header at offset %d", common.ErrFormat, offset)
			}
			return Layout{}, fmt.Errorf("failed to read chunk header: %w", err)
		}
		if err := validation.CheckChunkLength(ch.Length); err != nil {
			return Layout{}, fmt.Errorf("chunk at offset %d: %w", offset, err)
		}

		payload, err := readPayload(r, ch.Length)
		if err != nil {
			return Layout{}, fmt.Errorf("chunk at offset %d: %w", offset, err)
		}

		layout.Chunks = append(layout.Chunks, ChunkInfo{
			Offset:  offset,
			Length:  ch.Length,
			Type:    ch.Type,
			Payload: payload,
		})
		offset += ChunkHeaderSize + int64(ch.Length)
	}
}

// readPayload reads exactly n bytes. When the reader can seek, the remaining stream
// length is checked first so a corrupt length cannot trigger a huge allocation.
func readPayload(r io.Reader, n uint32) ([]byte, error) {
	if s, ok := r.(io.Seeker); ok {
		remaining, err := remainingBytes(s)
		if err != nil {
			return nil, err
		}
		if int64(n) > remaining {
			return nil, fmt.Errorf("%w: chunk declares %d bytes, %d remain", common.ErrFormat, n, remaining)
		}
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated chunk payload", common.ErrFormat)
		}
		return nil, fmt.Errorf("failed to read chunk data: %w", err)
	}
	return data, nil
}

// skip advances r by n bytes, seeking when possible.
func skip(r io.Reader, n int64) error {
	if s, ok := r.(io.Seeker); ok {
		remaining, err := remainingBytes(s)
		if err != nil {
			return err
		}
		if n > remaining {
			return fmt.Errorf("%w: chunk declares %d bytes, %d remain", common.ErrFormat, n, remaining)
		}
		if _, err := s.Seek(n, io.SeekCurrent); err != nil {
			return fmt.Errorf("failed to skip chunk: %w", err)
		}
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: truncated chunk payload", common.ErrFormat)
		}
		return fmt.Errorf("failed to skip chunk: %w", err)
	}
	return nil
}

func remainingBytes(s io.Seeker) (int64, error) {
	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("failed to query stream position: %w", err)
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to query stream length: %w", err)
	}
	if _, err := s.Seek(pos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to rewind stream: %w", err)
	}
	return end - pos, nil
}
