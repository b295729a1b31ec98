package parse

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/santosr2/esguard/pkg/syntax"
)

// TreeSitter parses source text with the tree-sitter JavaScript, TypeScript
// and TSX grammars.
type TreeSitter struct {
	languages map[string]*sitter.Language
}

// NewTreeSitter returns a tree-sitter frontend. Parsers are created per
// call, so the frontend is safe for concurrent use.
func NewTreeSitter() *TreeSitter {
	js := javascript.GetLanguage()
	ts := typescript.GetLanguage()
	return &TreeSitter{languages: map[string]*sitter.Language{
		".js":  js,
		".jsx": js,
		".mjs": js,
		".cjs": js,
		".ts":  ts,
		".mts": ts,
		".cts": ts,
		".tsx": tsx.GetLanguage(),
	}}
}

func (t *TreeSitter) Name() string {
	return "treesitter"
}

func (t *TreeSitter) CanReparse(string) bool {
	return true
}

func (t *TreeSitter) Parse(ctx context.Context, path string, src []byte) (*syntax.Program, error) {
	lang, ok := t.languages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported file type", path)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		bad := firstError(root)
		msg := "unexpected " + bad.Type()
		if bad.IsMissing() {
			msg = "missing " + bad.Type()
		}
		return nil, &SyntaxError{Path: path, Span: spanOf(bad), Message: msg}
	}

	m := &tsMapper{src: src}
	prog := &syntax.Program{Base: syntax.Base{Range: syntax.Span{Start: 0, End: len(src)}}}
	prog.Body = m.namedChildren(root)
	prog.Comments = m.collectComments(root, nil)
	syntax.Link(prog)
	return prog, nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && (c.HasError() || c.IsMissing()) {
			return firstError(c)
		}
	}
	return n
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func spanOf(n *sitter.Node) syntax.Span {
	return syntax.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func base(n *sitter.Node) syntax.Base {
	return syntax.Base{Range: spanOf(n)}
}

type tsMapper struct {
	src []byte
}

// collectComments appends every comment below n in source order.
func (m *tsMapper) collectComments(n *sitter.Node, dst []*syntax.Comment) []*syntax.Comment {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "comment", "html_comment":
			dst = append(dst, m.comment(c))
		default:
			dst = m.collectComments(c, dst)
		}
	}
	return dst
}

// namedChildren maps the named children of n, skipping comments.
func (m *tsMapper) namedChildren(n *sitter.Node) []syntax.Node {
	var out []syntax.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := m.node(n.NamedChild(i)); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// field maps the child stored under name, returning a nil interface when
// it is absent.
func (m *tsMapper) field(n *sitter.Node, name string) syntax.Node {
	c := n.ChildByFieldName(name)
	if c == nil {
		return nil
	}
	return m.node(c)
}

func (m *tsMapper) node(n *sitter.Node) syntax.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "comment", "html_comment":
		return nil
	case "identifier":
		return &syntax.Identifier{Base: base(n), Name: n.Content(m.src)}
	case "import_statement":
		return m.importStatement(n)
	case "namespace_import":
		spec := &syntax.ImportNamespaceSpecifier{Base: base(n)}
		for _, c := range m.namedChildren(n) {
			if id, ok := c.(*syntax.Identifier); ok {
				spec.Local = id
			}
		}
		return spec
	case "catch_clause":
		return &syntax.CatchClause{
			Base:  base(n),
			Param: m.field(n, "parameter"),
			Body:  m.field(n, "body"),
		}
	case "binary_expression":
		return m.binary(n)
	case "call_expression":
		args := n.ChildByFieldName("arguments")
		if args == nil || args.Type() != "arguments" {
			// tagged template
			return m.other(n)
		}
		return &syntax.CallExpression{
			Base:      base(n),
			Callee:    m.field(n, "function"),
			Arguments: m.namedChildren(args),
		}
	case "spread_element":
		el := &syntax.SpreadElement{Base: base(n)}
		if kids := m.namedChildren(n); len(kids) > 0 {
			el.Argument = kids[0]
		}
		return el
	case "jsx_element":
		el := &syntax.JSXElement{Base: base(n)}
		open, closing := n.ChildByFieldName("open_tag"), n.ChildByFieldName("close_tag")
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch {
			case sameNode(c, open):
				el.Opening = m.node(c)
			case sameNode(c, closing):
				el.Closing = m.node(c)
			default:
				if mapped := m.node(c); mapped != nil {
					el.Children = append(el.Children, mapped)
				}
			}
		}
		return el
	case "jsx_self_closing_element":
		return &syntax.JSXElement{Base: base(n), Opening: m.other(n)}
	case "jsx_expression":
		c := &syntax.JSXExpressionContainer{Base: base(n)}
		if kids := m.namedChildren(n); len(kids) > 0 {
			c.Expression = kids[0]
		}
		return c
	default:
		return m.other(n)
	}
}

func (m *tsMapper) other(n *sitter.Node) syntax.Node {
	return &syntax.Other{Base: base(n), Type: n.Type(), Nodes: m.namedChildren(n)}
}

func (m *tsMapper) comment(n *sitter.Node) *syntax.Comment {
	text := n.Content(m.src)
	c := &syntax.Comment{Base: base(n)}
	switch {
	case strings.HasPrefix(text, "/*"):
		c.Block = true
		c.Text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	case strings.HasPrefix(text, "//"):
		c.Text = strings.TrimPrefix(text, "//")
	case strings.HasPrefix(text, "<!--"):
		c.Text = strings.TrimPrefix(text, "<!--")
	default:
		c.Text = text
	}
	return c
}

func (m *tsMapper) importStatement(n *sitter.Node) syntax.Node {
	decl := &syntax.ImportDeclaration{Base: base(n)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "import_clause":
			decl.Specifiers = append(decl.Specifiers, m.namedChildren(c)...)
		case "string":
			decl.Source = m.node(c)
		}
	}
	return decl
}

func (m *tsMapper) binary(n *sitter.Node) syntax.Node {
	op := ""
	if o := n.ChildByFieldName("operator"); o != nil {
		op = o.Type()
	}
	left, right := m.field(n, "left"), m.field(n, "right")
	switch op {
	case "&&", "||", "??":
		return &syntax.LogicalExpression{Base: base(n), Operator: op, Left: left, Right: right}
	default:
		return &syntax.BinaryExpression{Base: base(n), Operator: op, Left: left, Right: right}
	}
}
