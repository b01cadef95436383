package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/document"
)

func TestCheckChunkLength(t *testing.T) {
	for _, n := range []uint32{0, 4, 8, 1024} {
		assert.NoError(t, CheckChunkLength(n), "length %d", n)
	}
	for _, n := range []uint32{1, 2, 3, 7, 1025} {
		assert.ErrorIs(t, CheckChunkLength(n), common.ErrFormat, "length %d", n)
	}
}

func TestCheckSizeWindow(t *testing.T) {
	tests := []struct {
		name     string
		actual   int
		declared int
		slack    int
		ok       bool
	}{
		{name: "exact", actual: 12, declared: 12, slack: 3, ok: true},
		{name: "padded by three", actual: 15, declared: 12, slack: 3, ok: true},
		{name: "too short", actual: 11, declared: 12, slack: 3},
		{name: "too long", actual: 16, declared: 12, slack: 3},
		{name: "strict window", actual: 13, declared: 12, slack: 0},
		{name: "wider window", actual: 20, declared: 12, slack: 8, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSizeWindow(tt.actual, tt.declared, tt.slack)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, common.ErrSizeMismatch)
		})
	}
}

func TestCheckBinaryBuffers(t *testing.T) {
	tests := []struct {
		name    string
		buffers []document.Buffer
		bin     []byte
		want    error
	}{
		{
			name:    "two internal buffers",
			buffers: []document.Buffer{{ByteLength: 4}, {ByteLength: 4}},
			bin:     make([]byte, 4),
			want:    common.ErrAmbiguousBinaryBuffer,
		},
		{
			name:    "internal buffer not first",
			buffers: []document.Buffer{{URI: "a.bin", ByteLength: 4}, {ByteLength: 4}},
			bin:     make([]byte, 4),
			want:    common.ErrFormat,
		},
		{
			name:    "internal buffer without payload",
			buffers: []document.Buffer{{ByteLength: 4}},
			want:    common.ErrUnexpectedBuffer,
		},
		{
			name:    "payload too short",
			buffers: []document.Buffer{{ByteLength: 8}},
			bin:     make([]byte, 4),
			want:    common.ErrSizeMismatch,
		},
		{
			name:    "payload too long",
			buffers: []document.Buffer{{ByteLength: 4}},
			bin:     make([]byte, 8),
			want:    common.ErrSizeMismatch,
		},
		{
			name:    "payload without internal buffer",
			buffers: []document.Buffer{{URI: "a.bin", ByteLength: 4}},
			bin:     make([]byte, 4),
			want:    common.ErrUnexpectedBuffer,
		},
		{
			name:    "padded payload",
			buffers: []document.Buffer{{ByteLength: 5}, {URI: "a.bin", ByteLength: 4}},
			bin:     make([]byte, 8),
		},
		{
			name:    "no buffers",
			buffers: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &document.Document{Buffers: tt.buffers}
			err := CheckBinaryBuffers(doc, tt.bin, DefaultSizeSlack)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckBufferViews(t *testing.T) {
	buffers := []document.Buffer{{ByteLength: 10}}

	tests := []struct {
		name  string
		views []document.BufferView
		want  error
	}{
		{name: "inside", views: []document.BufferView{{Buffer: 0, ByteOffset: 4, ByteLength: 6}}},
		{name: "inside padding", views: []document.BufferView{{Buffer: 0, ByteOffset: 8, ByteLength: 4}}},
		{name: "past padding", views: []document.BufferView{{Buffer: 0, ByteOffset: 8, ByteLength: 8}}, want: common.ErrSizeMismatch},
		{name: "missing buffer", views: []document.BufferView{{Buffer: 1, ByteLength: 1}}, want: common.ErrFormat},
		{name: "negative offset", views: []document.BufferView{{Buffer: 0, ByteOffset: -4, ByteLength: 1}}, want: common.ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &document.Document{Buffers: buffers, BufferViews: tt.views}
			err := CheckBufferViews(doc, DefaultSizeSlack)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckSlice(t *testing.T) {
	assert.NoError(t, CheckSlice(0, 4, 4))
	assert.NoError(t, CheckSlice(4, 0, 4))
	assert.ErrorIs(t, CheckSlice(2, 3, 4), common.ErrSizeMismatch)
	assert.ErrorIs(t, CheckSlice(-1, 1, 4), common.ErrSizeMismatch)
	assert.ErrorIs(t, CheckSlice(0, -1, 4), common.ErrSizeMismatch)
}

func TestCheckPacked(t *testing.T) {
	packed := func(views ...document.BufferView) *document.Document {
		return &document.Document{Buffers: []document.Buffer{{ByteLength: 32}}, BufferViews: views}
	}

	assert.NoError(t, CheckPacked(&document.Document{}))
	assert.NoError(t, CheckPacked(packed(
		document.BufferView{ByteOffset: 0, ByteLength: 5},
		document.BufferView{ByteOffset: 8, ByteLength: 4},
		document.BufferView{ByteOffset: 12, ByteLength: 20},
	)))

	failures := map[string]*document.Document{
		"two buffers": {
			Buffers:     []document.Buffer{{ByteLength: 4}, {URI: "a.bin", ByteLength: 4}},
			BufferViews: []document.BufferView{{ByteLength: 4}},
		},
		"other buffer": packed(document.BufferView{Buffer: 1, ByteLength: 4}),
		"misaligned":   packed(document.BufferView{ByteOffset: 2, ByteLength: 4}),
		"overlap": packed(
			document.BufferView{ByteOffset: 0, ByteLength: 8},
			document.BufferView{ByteOffset: 4, ByteLength: 4},
		),
		"past end": packed(document.BufferView{ByteOffset: 28, ByteLength: 8}),
	}
	for name, doc := range failures {
		assert.ErrorIs(t, CheckPacked(doc), common.ErrFormat, name)
	}
}
