// Package syntax defines the read-only syntax tree that esguard rules walk.
//
// Trees are produced by a parser frontend (see internal/parse) and are never
// mutated by rules. Every node records a half-open byte range into the
// original source text and a non-owning reference to its parent.
package syntax

import "fmt"

// Span is a half-open byte range [Start, End) into the original source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// IsEmpty reports whether the span covers no bytes. Empty spans mark
// insertion points.
func (s Span) IsEmpty() bool {
	return s.Start == s.End
}

// Valid reports whether the span is well-formed and fits in a text of size n.
func (s Span) Valid(n int) bool {
	return s.Start >= 0 && s.Start <= s.End && s.End <= n
}

// Contains reports whether other lies entirely within s.
func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// Overlaps reports whether two spans share any byte.
//
// Two empty spans never overlap. An empty span overlaps a non-empty one only
// when it sits strictly inside it or at its start.
func (s Span) Overlaps(other Span) bool {
	switch {
	case s.IsEmpty() && other.IsEmpty():
		return false
	case s.IsEmpty():
		return other.Start <= s.Start && s.Start < other.End
	case other.IsEmpty():
		return s.Start <= other.Start && other.Start < s.End
	default:
		return s.Start < other.End && other.Start < s.End
	}
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}
