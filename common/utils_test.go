package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaddingAndAlignUp(t *testing.T) {
	tests := []struct {
		n       int
		padding int
		aligned int
	}{
		{0, 0, 0},
		{1, 3, 4},
		{2, 2, 4},
		{3, 1, 4},
		{4, 0, 4},
		{7, 1, 8},
		{13, 3, 16},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.padding, Padding(tt.n), "Padding(%d)", tt.n)
		assert.Equal(t, tt.aligned, AlignUp(tt.n), "AlignUp(%d)", tt.n)
	}
}

func TestPadTo4(t *testing.T) {
	assert.Equal(t, []byte("abc "), PadTo4([]byte("abc"), ' '))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, PadTo4([]byte{1, 2, 3, 4, 5}, 0))
	assert.Equal(t, []byte("abcd"), PadTo4([]byte("abcd"), ' '))
	assert.Empty(t, PadTo4(nil, 0))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 5))
	assert.Equal(t, "x", Coalesce("", "x"))
	assert.Equal(t, 0, Coalesce[int]())
}
