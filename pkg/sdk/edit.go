package sdk

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/santosr2/esguard/pkg/syntax"
)

var (
	// ErrOverlappingEdits is returned when two edits of one fix touch the
	// same text.
	ErrOverlappingEdits = errors.New("overlapping edits")
	// ErrEditOutOfRange is returned when an edit does not fit the text.
	ErrEditOutOfRange = errors.New("edit out of range")
)

// Edit replaces Range of the original text with Text. An empty Range is an
// insertion.
type Edit struct {
	Range syntax.Span `json:"range"`
	Text  string      `json:"text"`
}

func (e Edit) String() string {
	return fmt.Sprintf("%s -> %q", e.Range, e.Text)
}

// Fix is an atomic set of edits, sorted by position and pairwise
// non-overlapping, all expressed in coordinates of the original text.
type Fix struct {
	Edits []Edit `json:"edits"`
}

// NewFix sorts edits and checks that they fit a text of size n and do not
// overlap.
func NewFix(edits []Edit, n int) (*Fix, error) {
	sorted := slices.Clone(edits)
	SortEdits(sorted)
	if err := validate(sorted, n); err != nil {
		return nil, err
	}
	return &Fix{Edits: sorted}, nil
}

// Span returns the smallest span covering every edit of the fix.
func (f *Fix) Span() syntax.Span {
	if f == nil || len(f.Edits) == 0 {
		return syntax.Span{}
	}
	s := f.Edits[0].Range
	for _, e := range f.Edits[1:] {
		s.Start = min(s.Start, e.Range.Start)
		s.End = max(s.End, e.Range.End)
	}
	return s
}

// SortEdits orders edits by start then end offset. The sort is stable so
// insertions at one point keep their relative order.
func SortEdits(edits []Edit) {
	slices.SortStableFunc(edits, func(a, b Edit) int {
		if a.Range.Start != b.Range.Start {
			return a.Range.Start - b.Range.Start
		}
		return a.Range.End - b.Range.End
	})
}

func validate(sorted []Edit, n int) error {
	for i, e := range sorted {
		if !e.Range.Valid(n) {
			return fmt.Errorf("%w: %s in text of %d bytes", ErrEditOutOfRange, e.Range, n)
		}
		if i > 0 && sorted[i-1].Range.Overlaps(e.Range) {
			return fmt.Errorf("%w: %s and %s", ErrOverlappingEdits, sorted[i-1].Range, e.Range)
		}
	}
	return nil
}

// ApplyEdits returns src with edits applied. Edits are given in original
// coordinates and must not overlap; src is not modified.
func ApplyEdits(src []byte, edits []Edit) ([]byte, error) {
	sorted := slices.Clone(edits)
	SortEdits(sorted)
	if err := validate(sorted, len(src)); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(src))
	last := 0
	for _, e := range sorted {
		buf.Write(src[last:e.Range.Start])
		buf.WriteString(e.Text)
		last = e.Range.End
	}
	buf.Write(src[last:])
	return buf.Bytes(), nil
}

// Fixer builds edits for a fix. It never modifies the source; each method
// returns one edit in original coordinates.
type Fixer struct {
	src []byte
}

// NewFixer returns a fixer over src.
func NewFixer(src []byte) *Fixer {
	return &Fixer{src: src}
}

// ReplaceTextRange replaces the text in r.
func (f *Fixer) ReplaceTextRange(r syntax.Span, text string) Edit {
	return Edit{Range: r, Text: text}
}

// ReplaceText replaces the text of n.
func (f *Fixer) ReplaceText(n syntax.Node, text string) Edit {
	return f.ReplaceTextRange(n.Span(), text)
}

// InsertTextBefore inserts text right before n.
func (f *Fixer) InsertTextBefore(n syntax.Node, text string) Edit {
	return f.InsertTextBeforeRange(n.Span(), text)
}

// InsertTextAfter inserts text right after n.
func (f *Fixer) InsertTextAfter(n syntax.Node, text string) Edit {
	return f.InsertTextAfterRange(n.Span(), text)
}

func (f *Fixer) InsertTextBeforeRange(r syntax.Span, text string) Edit {
	return Edit{Range: syntax.Span{Start: r.Start, End: r.Start}, Text: text}
}

func (f *Fixer) InsertTextAfterRange(r syntax.Span, text string) Edit {
	return Edit{Range: syntax.Span{Start: r.End, End: r.End}, Text: text}
}

// Remove deletes the text of n.
func (f *Fixer) Remove(n syntax.Node) Edit {
	return f.ReplaceTextRange(n.Span(), "")
}

// Text returns the source text in r, or "" when r does not fit the source.
func (f *Fixer) Text(r syntax.Span) string {
	if !r.Valid(len(f.src)) {
		return ""
	}
	return string(f.src[r.Start:r.End])
}
