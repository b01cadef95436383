package packer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-glb/engine/document"
)

// Packed output must be readable by an independent glTF decoder.
func TestPackedOutputOpensWithGLTFLibrary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	payload := sequence(1, 10)
	image := []byte("PNGDATA")

	writeGLTF(t, filepath.Join(dir, "crate.gltf"), &document.Document{
		Asset:   &document.Asset{Version: "2.0"},
		Buffers: []document.Buffer{{URI: "crate.bin", ByteLength: 10}},
		BufferViews: []document.BufferView{
			{Buffer: 0, ByteLength: 6},
			{Buffer: 0, ByteOffset: 6, ByteLength: 4},
		},
		Images: []document.Image{{URI: "tex.png"}},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crate.bin"), payload, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tex.png"), image, 0o644))

	output := filepath.Join(dir, "crate.glb")
	_, err := NewPacker().Pack(filepath.Join(dir, "crate.gltf"), output)
	require.NoError(t, err)

	doc, err := gltf.Open(output)
	require.NoError(t, err)

	require.Len(t, doc.Buffers, 1)
	assert.Empty(t, doc.Buffers[0].URI)
	require.GreaterOrEqual(t, len(doc.Buffers[0].Data), 19)
	assert.Equal(t, payload[:6], doc.Buffers[0].Data[0:6])
	assert.Equal(t, payload[6:], doc.Buffers[0].Data[8:12])
	assert.Equal(t, image, doc.Buffers[0].Data[12:19])

	require.Len(t, doc.BufferViews, 3)
	require.Len(t, doc.Images, 1)
	assert.Equal(t, "image/png", doc.Images[0].MimeType)
	assert.NotNil(t, doc.Images[0].BufferView)
}
