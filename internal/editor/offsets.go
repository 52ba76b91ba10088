package editor

import (
	"unicode/utf16"
	"unicode/utf8"
)

// ByteOffset converts units, a caret position counted in UTF-16 code units
// as browsers report it, to a byte offset into text. Positions past the end
// map to len(text); a position between the halves of a surrogate pair maps
// to the start of that rune.
func ByteOffset(text string, units int) int {
	if units <= 0 {
		return 0
	}
	n := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		n += utf16Len(r)
		if n > units {
			return i
		}
		i += size
		if n == units {
			return i
		}
	}
	return len(text)
}

// UTF16Offset converts a byte offset into text to UTF-16 code units. It is
// the inverse of ByteOffset for offsets on rune boundaries.
func UTF16Offset(text string, off int) int {
	off = min(max(off, 0), len(text))
	n := 0
	for _, r := range text[:off] {
		n += utf16Len(r)
	}
	return n
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	// Invalid runes decode as U+FFFD, one unit.
	return 1
}
