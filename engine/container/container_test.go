package container

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-glb/common"
)

// rawContainer assembles a container by hand so tests do not depend on Write.
// Each chunk payload is written as given, without padding.
func rawContainer(version uint32, chunks ...ChunkInfo) []byte {
	var body bytes.Buffer
	for _, ch := range chunks {
		_ = binary.Write(&body, binary.LittleEndian, ChunkHeader{Length: uint32(len(ch.Payload)), Type: ch.Type})
		body.Write(ch.Payload)
	}

	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, Header{
		Magic:   Magic,
		Version: version,
		Length:  uint32(HeaderSize + body.Len()),
	})
	out.Write(body.Bytes())
	return out.Bytes()
}

func scenarioA() []byte {
	json := []byte(`{"buffers":[{"byteLength":12}]} `)
	bin := make([]byte, 12)
	copy(bin, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	return rawContainer(Version,
		ChunkInfo{Type: ChunkJSON, Payload: json},
		ChunkInfo{Type: ChunkBIN, Payload: bin},
	)
}

func TestReadContainerScenarioA(t *testing.T) {
	data := scenarioA()

	jsonChunk, binChunk, err := ReadContainer(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, `{"buffers":[{"byteLength":12}]} `, string(jsonChunk))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, binChunk)

	bin, err := ReadBinaryChunk(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, bin, 12)
}

func TestWritePadsJSONWithSpaces(t *testing.T) {
	data, err := Encode([]byte(`{"a":1}`), nil)
	require.NoError(t, err)

	require.Len(t, data, HeaderSize+ChunkHeaderSize+8)
	assert.Equal(t, uint32(Magic), binary.LittleEndian.Uint32(data[0:]))
	assert.Equal(t, uint32(Version), binary.LittleEndian.Uint32(data[4:]))
	assert.Equal(t, uint32(len(data)), binary.LittleEndian.Uint32(data[8:]))

	// The chunk length field carries the padded size.
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(data[12:]))
	assert.Equal(t, uint32(ChunkJSON), binary.LittleEndian.Uint32(data[16:]))
	assert.Equal(t, []byte(`{"a":1} `), data[20:28])
}

func TestWritePadsBinWithZeros(t *testing.T) {
	jsonChunk := []byte(`{"x":0}`)
	data, err := Encode(jsonChunk, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE})
	require.NoError(t, err)

	binHeader := HeaderSize + ChunkHeaderSize + 8
	require.Len(t, data, binHeader+ChunkHeaderSize+8)
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(data[binHeader:]))
	assert.Equal(t, uint32(ChunkBIN), binary.LittleEndian.Uint32(data[binHeader+4:]))
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0, 0, 0}, data[binHeader+ChunkHeaderSize:])
}

func TestWriteOmitsEmptyBin(t *testing.T) {
	data, err := Encode([]byte(`{}`), []byte{})
	require.NoError(t, err)
	assert.Len(t, data, Length(2, 0))

	_, binChunk, err := ReadContainer(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Nil(t, binChunk)

	_, err = ReadBinaryChunk(bytes.NewReader(data))
	assert.ErrorIs(t, err, common.ErrEndOfStream)
}

func TestLength(t *testing.T) {
	assert.Equal(t, 12+8+4, Length(1, 0))
	assert.Equal(t, 12+8+8+8+12, Length(8, 9))
	assert.Equal(t, 12+8+32+8+12, Length(31, 12))
}

func TestWriteReportsBytesWritten(t *testing.T) {
	var buf bytes.Buffer
	n, err := Write(&buf, []byte(`{"asset":{}}`), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, Length(12, 1), buf.Len())
}

func TestEncodeRoundTrip(t *testing.T) {
	jsonChunk := []byte(`{"buffers":[{"byteLength":3}]}`)
	data, err := Encode(jsonChunk, []byte{7, 8, 9})
	require.NoError(t, err)

	gotJSON, gotBin, err := ReadContainer(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, string(jsonChunk)+"  ", string(gotJSON))
	assert.Equal(t, []byte{7, 8, 9, 0}, gotBin)
}

func TestReadHeaderErrors(t *testing.T) {
	valid := scenarioA()

	badMagic := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(badMagic[0:], 0x12345678)

	badVersion := rawContainer(1, ChunkInfo{Type: ChunkJSON, Payload: []byte("{}  ")})

	longer := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(longer[8:], uint32(len(valid)+4))

	trailing := append(bytes.Clone(valid), 0, 0, 0, 0)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "bad magic", data: badMagic, want: common.ErrFormat},
		{name: "bad version", data: badVersion, want: common.ErrVersion},
		{name: "declared length too long", data: longer, want: common.ErrLengthMismatch},
		{name: "trailing bytes", data: trailing, want: common.ErrLengthMismatch},
		{name: "short stream", data: valid[:8], want: common.ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeader(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)

			_, _, err = ReadContainer(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadChunkRejectsMisalignedLength(t *testing.T) {
	data := rawContainer(Version, ChunkInfo{Type: ChunkJSON, Payload: []byte(`{"a":1}`)})

	_, _, err := ReadContainer(bytes.NewReader(data))
	assert.ErrorIs(t, err, common.ErrFormat)
}

func TestReadChunkSkipsUnknownChunks(t *testing.T) {
	data := rawContainer(Version,
		ChunkInfo{Type: 0x41424344, Payload: []byte{9, 9, 9, 9}},
		ChunkInfo{Type: ChunkJSON, Payload: []byte("{}  ")},
		ChunkInfo{Type: 0x41424344, Payload: []byte{9, 9, 9, 9, 9, 9, 9, 9}},
		ChunkInfo{Type: ChunkBIN, Payload: []byte{1, 2, 3, 4}},
	)

	jsonChunk, binChunk, err := ReadContainer(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "{}  ", string(jsonChunk))
	assert.Equal(t, []byte{1, 2, 3, 4}, binChunk)
}

func TestReadChunkWithoutSeeker(t *testing.T) {
	data := scenarioA()

	// Strip Seek so the skip path falls back to copying.
	r := io.MultiReader(bytes.NewReader(data[HeaderSize:]))
	bin, err := ReadChunk(r, ChunkBIN)
	require.NoError(t, err)
	assert.Len(t, bin, 12)
}

func TestReadChunkTruncatedPayload(t *testing.T) {
	data := scenarioA()
	// Claim a BIN chunk larger than the bytes that remain, keeping the header length consistent.
	binHeader := HeaderSize + ChunkHeaderSize + 32
	binary.LittleEndian.PutUint32(data[binHeader:], 64)

	_, _, err := ReadContainer(bytes.NewReader(data))
	assert.ErrorIs(t, err, common.ErrFormat)
}

func TestIsBinary(t *testing.T) {
	r := bytes.NewReader(scenarioA())
	ok, err := IsBinary(r)
	require.NoError(t, err)
	assert.True(t, ok)

	pos, err := r.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Zero(t, pos, "read position must be restored")

	ok, err = IsBinary(bytes.NewReader([]byte(`{"asset":{"version":"2.0"}}`)))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = IsBinary(bytes.NewReader([]byte("gl")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInspect(t *testing.T) {
	data := rawContainer(Version,
		ChunkInfo{Type: ChunkJSON, Payload: []byte("{}  ")},
		ChunkInfo{Type: ChunkBIN, Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		ChunkInfo{Type: 0x41424344, Payload: []byte{0, 0, 0, 0}},
	)

	layout, err := Inspect(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint32(len(data)), layout.Header.Length)
	require.Len(t, layout.Chunks, 3)

	assert.Equal(t, int64(12), layout.Chunks[0].Offset)
	assert.Equal(t, "JSON", ChunkTypeName(layout.Chunks[0].Type))
	assert.Equal(t, int64(24), layout.Chunks[1].Offset)
	assert.Equal(t, uint32(8), layout.Chunks[1].Length)
	assert.Equal(t, "BIN", ChunkTypeName(layout.Chunks[1].Type))
	assert.Equal(t, int64(40), layout.Chunks[2].Offset)
	assert.Equal(t, "0x41424344", ChunkTypeName(layout.Chunks[2].Type))
}

func TestInspectTruncatedChunkHeader(t *testing.T) {
	data := rawContainer(Version, ChunkInfo{Type: ChunkJSON, Payload: []byte("{}  ")})
	data = append(data, 1, 2, 3, 4)
	binary.LittleEndian.PutUint32(data[8:], uint32(len(data)))

	_, err := Inspect(bytes.NewReader(data))
	assert.ErrorIs(t, err, common.ErrFormat)
}
