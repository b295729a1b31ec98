package fix

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff between the original and fixed contents of
// path. It returns "" when the contents are equal.
func Diff(path string, before, after []byte) (string, error) {
	if string(before) == string(after) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}
