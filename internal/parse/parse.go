// Package parse turns source files into esguard syntax trees.
//
// Two frontends exist: a tree-sitter frontend that parses JavaScript,
// JSX and TypeScript source directly, and an ESTree frontend that reads the
// JSON AST written by an external parser (Babel, flow-parser, espree) next
// to the source file. Flow type annotations are only available through the
// ESTree frontend.
package parse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santosr2/esguard/pkg/syntax"
)

// DefaultASTSuffix is appended to a source path to locate its JSON AST.
const DefaultASTSuffix = ".ast.json"

// Frontend parses one file into a linked syntax tree.
type Frontend interface {
	Name() string
	Parse(ctx context.Context, path string, src []byte) (*syntax.Program, error)
}

// Reparser is implemented by frontends that can parse rewritten source
// again, which the fix loop needs for its follow-up passes.
type Reparser interface {
	CanReparse(path string) bool
}

// CanReparse reports whether f can parse modified contents of path.
func CanReparse(f Frontend, path string) bool {
	r, ok := f.(Reparser)
	return ok && r.CanReparse(path)
}

// SyntaxError reports source that a frontend could not parse.
type SyntaxError struct {
	Path    string
	Span    syntax.Span
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax error at %s: %s", e.Path, e.Span, e.Message)
}

// SourceExtensions lists the file extensions esguard lints.
var SourceExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// IsSource reports whether path has a lintable extension.
func IsSource(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// New returns the frontend with the given name: "auto" (or ""),
// "treesitter" or "estree".
func New(name, astSuffix string) (Frontend, error) {
	if astSuffix == "" {
		astSuffix = DefaultASTSuffix
	}
	switch name {
	case "", "auto":
		return &Auto{Suffix: astSuffix, Source: NewTreeSitter(), AST: &ESTree{Suffix: astSuffix}}, nil
	case "treesitter", "tree-sitter":
		return NewTreeSitter(), nil
	case "estree":
		return &ESTree{Suffix: astSuffix}, nil
	default:
		return nil, fmt.Errorf("unknown parser %q (must be auto, treesitter, or estree)", name)
	}
}

// Auto uses the ESTree frontend for files that have a JSON AST next to them
// and tree-sitter for the rest.
type Auto struct {
	Suffix string
	Source Frontend
	AST    Frontend
}

func (a *Auto) Name() string {
	return "auto"
}

func (a *Auto) hasAST(path string) bool {
	info, err := os.Stat(path + a.Suffix)
	return err == nil && !info.IsDir()
}

func (a *Auto) Parse(ctx context.Context, path string, src []byte) (*syntax.Program, error) {
	if a.hasAST(path) {
		return a.AST.Parse(ctx, path, src)
	}
	return a.Source.Parse(ctx, path, src)
}

func (a *Auto) CanReparse(path string) bool {
	if a.hasAST(path) {
		return CanReparse(a.AST, path)
	}
	return CanReparse(a.Source, path)
}
