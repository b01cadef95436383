// container_types.go contains the GLB binary envelope structures.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
package container

import "fmt"

// Header is the header of a GLB file (12 bytes).
type Header struct {
	Magic   uint32 // Must be 0x46546C67 ("glTF" in ASCII)
	Version uint32 // Must be 2
	Length  uint32 // Total file length
}

// ChunkHeader is the header of a GLB chunk (8 bytes).
type ChunkHeader struct {
	Length uint32
	Type   uint32 // 0x4E4F534A for JSON, 0x004E4942 for BIN
}

// GLB magic number and chunk type constants
const (
	Magic     = 0x46546C67 // "glTF" in little-endian ASCII
	Version   = 2
	ChunkJSON = 0x4E4F534A // "JSON" in little-endian ASCII
	ChunkBIN  = 0x004E4942 // "BIN\0" in little-endian ASCII

	HeaderSize      = 12
	ChunkHeaderSize = 8
)

// Pad bytes used for each chunk type.
const (
	jsonPadByte = 0x20
	binPadByte  = 0x00
)

// ChunkInfo describes one chunk found while walking a container.
type ChunkInfo struct {
	// Offset is the absolute offset of the chunk header within the container.
	Offset int64

	// Length is the declared payload length.
	Length uint32

	// Type is the raw chunk type tag.
	Type uint32

	// Payload holds the chunk bytes.
	Payload []byte
}

// Layout is the full chunk listing of a container, as returned by Inspect.
type Layout struct {
	Header Header
	Chunks []ChunkInfo
}

// ChunkTypeName returns a printable name for a chunk type tag.
//
// Parameters:
//   - t: the chunk type tag
//
// Returns:
//   - string: "JSON", "BIN" or the hexadecimal tag for unknown chunks
func ChunkTypeName(t uint32) string {
	switch t {
	case ChunkJSON:
		return "JSON"
	case ChunkBIN:
		return "BIN"
	default:
		return fmt.Sprintf("0x%08X", t)
	}
}
