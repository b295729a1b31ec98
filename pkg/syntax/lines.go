package syntax

import (
	"sort"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
)

// LineIndex maps byte offsets of a source text to line/column positions.
//
// Line terminators are \n, \r\n, \r, U+2028 and U+2029, matching the
// ECMAScript definition. Columns count runes and are 1-based, like lines.
type LineIndex struct {
	src    []byte
	starts []int
}

// NewLineIndex indexes src. The index keeps a reference to src, which must
// not be modified afterwards.
func NewLineIndex(src []byte) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); {
		switch {
		case src[i] == '\n':
			i++
			starts = append(starts, i)
		case src[i] == '\r':
			i++
			if i < len(src) && src[i] == '\n' {
				i++
			}
			starts = append(starts, i)
		case src[i] == 0xE2 && i+2 < len(src) && src[i+1] == 0x80 && (src[i+2] == 0xA8 || src[i+2] == 0xA9):
			i += 3
			starts = append(starts, i)
		default:
			i++
		}
	}
	return &LineIndex{src: src, starts: starts}
}

// LineCount returns the number of lines. A trailing line terminator starts
// one more, empty, line.
func (li *LineIndex) LineCount() int {
	return len(li.starts)
}

// Pos converts a byte offset to a position. Offsets are clamped to the text.
func (li *LineIndex) Pos(offset int) hcl.Pos {
	offset = max(0, min(offset, len(li.src)))
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	col := utf8.RuneCount(li.src[li.starts[line]:offset]) + 1
	return hcl.Pos{Line: line + 1, Column: col, Byte: offset}
}

// Range converts a span to a source range in the named file.
func (li *LineIndex) Range(filename string, s Span) hcl.Range {
	return hcl.Range{Filename: filename, Start: li.Pos(s.Start), End: li.Pos(s.End)}
}

// Offset converts a 1-based line and rune column back to a byte offset. Out
// of range values are clamped to the nearest valid offset.
func (li *LineIndex) Offset(line, column int) int {
	if line < 1 {
		return 0
	}
	if line > len(li.starts) {
		return len(li.src)
	}
	off := li.starts[line-1]
	end := len(li.src)
	if line < len(li.starts) {
		end = li.starts[line]
	}
	for c := 1; c < column && off < end; c++ {
		_, size := utf8.DecodeRune(li.src[off:end])
		off += size
	}
	return off
}
