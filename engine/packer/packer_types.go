package packer

import (
	"github.com/opencontainers/go-digest"
)

// PackReport summarizes a completed pack.
type PackReport struct {
	// BufferViews is the number of bufferViews in the packed document, synthetic image views included.
	BufferViews int

	// Images is the number of images moved into the binary chunk.
	Images int

	// BinBytes is the unpadded length of the binary chunk.
	BinBytes int

	// Written is the number of container bytes written.
	Written int64

	// Digest is the sha256 digest of the binary chunk, empty when there is none.
	Digest digest.Digest
}

// UnpackReport summarizes a completed unpack.
type UnpackReport struct {
	// GLTF is the path of the written .gltf file.
	GLTF string

	// Files lists every side file written or copied into the output directory.
	Files []string

	// Images is the number of images extracted from the binary chunk.
	Images int

	// BinBytes is the length of the written .bin file, 0 when none was written.
	BinBytes int

	// Remapped is the number of bufferViews whose index changed during compaction.
	Remapped int

	// Digest is the sha256 digest of the written .bin file, empty when there is none.
	Digest digest.Digest
}
