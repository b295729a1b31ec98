package policy

import (
	"strings"

	"github.com/santosr2/esguard/pkg/syntax"
)

// Document is the input a policy sees for one file.
type Document struct {
	File     string        `json:"file"`
	Lines    int           `json:"lines"`
	Nodes    []NodeData    `json:"nodes"`
	Comments []CommentData `json:"comments"`
}

// NodeData is the flattened view of one syntax node. Nodes are listed in
// pre-order and Parent indexes into Document.Nodes (-1 for the program).
type NodeData struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	Kind      string `json:"kind"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
	Parent    int    `json:"parent"`

	Name      string `json:"name,omitempty"`
	Operator  string `json:"operator,omitempty"`
	Callee    string `json:"callee,omitempty"`
	Arguments *int   `json:"arguments,omitempty"`
	Source    string `json:"source,omitempty"`
	Exact     *bool  `json:"exact,omitempty"`
	Inexact   *bool  `json:"inexact,omitempty"`
}

// CommentData is the view of one comment.
type CommentData struct {
	Text   string `json:"text"`
	Block  bool   `json:"block"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// BuildDocument flattens prog into the policy input for file.
func BuildDocument(file string, src []byte, prog *syntax.Program) *Document {
	lines := syntax.NewLineIndex(src)
	doc := &Document{
		File:     file,
		Lines:    lines.LineCount(),
		Nodes:    []NodeData{},
		Comments: []CommentData{},
	}

	ids := make(map[syntax.Node]int)
	syntax.Inspect(prog, func(n syntax.Node) bool {
		rng := lines.Range(file, n.Span())
		data := NodeData{
			ID:        len(doc.Nodes),
			Type:      typeName(n),
			Kind:      n.Kind().String(),
			Start:     n.Span().Start,
			End:       n.Span().End,
			Line:      rng.Start.Line,
			Column:    rng.Start.Column,
			EndLine:   rng.End.Line,
			EndColumn: rng.End.Column,
			Parent:    -1,
		}
		if p, ok := ids[n.Parent()]; ok && n.Parent() != nil {
			data.Parent = p
		}
		describe(&data, n, src)
		ids[n] = data.ID
		doc.Nodes = append(doc.Nodes, data)
		return true
	})

	for _, c := range prog.Comments {
		pos := lines.Pos(c.Span().Start)
		doc.Comments = append(doc.Comments, CommentData{
			Text:   c.Text,
			Block:  c.Block,
			Start:  c.Span().Start,
			End:    c.Span().End,
			Line:   pos.Line,
			Column: pos.Column,
		})
	}
	return doc
}

func typeName(n syntax.Node) string {
	if o, ok := n.(*syntax.Other); ok {
		return o.Type
	}
	return n.Kind().String()
}

func text(src []byte, n syntax.Node) string {
	if n == nil || !n.Span().Valid(len(src)) {
		return ""
	}
	s := n.Span()
	return string(src[s.Start:s.End])
}

// describe fills the kind-specific fields.
func describe(d *NodeData, n syntax.Node, src []byte) {
	switch n := n.(type) {
	case *syntax.Identifier:
		d.Name = n.Name
	case *syntax.BinaryExpression:
		d.Operator = n.Operator
	case *syntax.LogicalExpression:
		d.Operator = n.Operator
	case *syntax.CallExpression:
		d.Callee = text(src, n.Callee)
		count := len(n.Arguments)
		d.Arguments = &count
	case *syntax.ImportDeclaration:
		d.Source = strings.Trim(text(src, n.Source), `"'`)
	case *syntax.ObjectType:
		exact, inexact := n.Exact, n.Inexact
		d.Exact, d.Inexact = &exact, &inexact
	case *syntax.GenericType:
		d.Name = n.Name()
	case *syntax.InterfaceDeclaration:
		d.Name = text(src, n.ID)
	}
}
