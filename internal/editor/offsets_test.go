package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// "aé😀b" is 8 bytes and 5 UTF-16 units; the emoji is a surrogate pair.
const mixedText = "aé😀b"

func TestByteOffset(t *testing.T) {
	tests := []struct {
		units int
		want  int
	}{
		{-1, 0},
		{0, 0},
		{1, 1},
		{2, 3},
		{3, 3}, // between the surrogate halves
		{4, 7},
		{5, 8},
		{99, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ByteOffset(mixedText, tt.units), "units=%d", tt.units)
	}
}

func TestUTF16Offset(t *testing.T) {
	tests := []struct {
		off  int
		want int
	}{
		{-3, 0},
		{0, 0},
		{1, 1},
		{3, 2},
		{7, 4},
		{8, 5},
		{42, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UTF16Offset(mixedText, tt.off), "off=%d", tt.off)
	}
}

func TestOffsets_RoundTripOnASCII(t *testing.T) {
	for i := 0; i <= 5; i++ {
		assert.Equal(t, i, UTF16Offset("hello", ByteOffset("hello", i)))
	}
}
