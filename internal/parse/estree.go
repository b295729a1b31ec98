package parse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"unicode/utf8"

	"github.com/valyala/fastjson"

	"github.com/santosr2/esguard/pkg/syntax"
)

// ESTree reads the JSON AST stored at path+Suffix.
//
// Both Babel output (a File node wrapping the Program) and plain ESTree
// Programs are accepted. Node positions come from start/end or range. Unless
// ByteOffsets is set they are taken as UTF-16 code unit indices, which is
// what JavaScript tools emit, and converted to byte offsets.
type ESTree struct {
	Suffix      string
	ByteOffsets bool
}

func (e *ESTree) Name() string {
	return "estree"
}

// CanReparse is false: the stored AST describes the original source only.
func (e *ESTree) CanReparse(string) bool {
	return false
}

func (e *ESTree) Parse(ctx context.Context, path string, src []byte) (*syntax.Program, error) {
	suffix := e.Suffix
	if suffix == "" {
		suffix = DefaultASTSuffix
	}
	data, err := os.ReadFile(path + suffix)
	if err != nil {
		return nil, fmt.Errorf("reading AST for %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prog, err := e.Decode(data, src)
	if err != nil {
		return nil, fmt.Errorf("%s%s: %w", path, suffix, err)
	}
	return prog, nil
}

// Decode builds a tree from a JSON AST of src.
func (e *ESTree) Decode(data, src []byte) (*syntax.Program, error) {
	var p fastjson.Parser
	root, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("decoding AST: %w", err)
	}

	d := &decoder{src: src}
	if !e.ByteOffsets {
		d.offsets = utf16Offsets(src)
	}

	program := root
	comments := root.GetArray("comments")
	switch typeOf(root) {
	case "File":
		program = root.Get("program")
		if comments == nil {
			comments = program.GetArray("comments")
		}
	case "Program":
	default:
		return nil, fmt.Errorf("expected a File or Program node, got %q", typeOf(root))
	}
	if typeOf(program) != "Program" {
		return nil, errors.New("missing Program node")
	}

	prog := &syntax.Program{Base: syntax.Base{Range: syntax.Span{Start: 0, End: len(src)}}}
	prog.Body = d.list(program.GetArray("body"))
	for _, c := range comments {
		if cm := d.comment(c); cm != nil {
			prog.Comments = append(prog.Comments, cm)
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	syntax.Link(prog)
	return prog, nil
}

// utf16Offsets maps UTF-16 code unit indices of src to byte offsets. The
// result has one entry per code unit plus one for the end of the text.
func utf16Offsets(src []byte) []int {
	offsets := make([]int, 0, len(src)+1)
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRune(src[i:])
		offsets = append(offsets, i)
		if r >= 0x10000 {
			// second half of a surrogate pair points at the same rune
			offsets = append(offsets, i)
		}
		i += size
	}
	return append(offsets, len(src))
}

func typeOf(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	return string(v.GetStringBytes("type"))
}

type decoder struct {
	src     []byte
	offsets []int
	err     error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf(format, args...)
	}
}

func (d *decoder) offset(i int) int {
	if d.offsets == nil {
		return i
	}
	if i < 0 || i >= len(d.offsets) {
		return -1
	}
	return d.offsets[i]
}

func (d *decoder) span(v *fastjson.Value) syntax.Span {
	var start, end int
	if r := v.GetArray("range"); len(r) == 2 {
		start, end = r[0].GetInt(), r[1].GetInt()
	} else {
		start, end = v.GetInt("start"), v.GetInt("end")
	}
	s := syntax.Span{Start: d.offset(start), End: d.offset(end)}
	if !s.Valid(len(d.src)) {
		d.fail("%s node has position [%d,%d) outside the source; is the AST stale?", typeOf(v), start, end)
		return syntax.Span{}
	}
	return s
}

func (d *decoder) base(v *fastjson.Value) syntax.Base {
	return syntax.Base{Range: d.span(v)}
}

func (d *decoder) comment(v *fastjson.Value) *syntax.Comment {
	c := &syntax.Comment{Base: d.base(v), Text: string(v.GetStringBytes("value"))}
	switch typeOf(v) {
	case "CommentBlock", "Block":
		c.Block = true
	case "CommentLine", "Line":
	default:
		return nil
	}
	return c
}

func (d *decoder) list(vs []*fastjson.Value) []syntax.Node {
	var out []syntax.Node
	for _, v := range vs {
		if n := d.node(v); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// node maps one AST object. Nulls and non-nodes map to a nil interface.
func (d *decoder) node(v *fastjson.Value) syntax.Node {
	if v == nil || v.Type() != fastjson.TypeObject || typeOf(v) == "" {
		return nil
	}
	switch t := typeOf(v); t {
	case "Identifier":
		return &syntax.Identifier{Base: d.base(v), Name: string(v.GetStringBytes("name"))}
	case "ImportDeclaration":
		return &syntax.ImportDeclaration{
			Base:       d.base(v),
			Specifiers: d.list(v.GetArray("specifiers")),
			Source:     d.node(v.Get("source")),
		}
	case "ImportNamespaceSpecifier":
		spec := &syntax.ImportNamespaceSpecifier{Base: d.base(v)}
		if id, ok := d.node(v.Get("local")).(*syntax.Identifier); ok {
			spec.Local = id
		}
		return spec
	case "CatchClause":
		return &syntax.CatchClause{Base: d.base(v), Param: d.node(v.Get("param")), Body: d.node(v.Get("body"))}
	case "BinaryExpression":
		return &syntax.BinaryExpression{
			Base:     d.base(v),
			Operator: string(v.GetStringBytes("operator")),
			Left:     d.node(v.Get("left")),
			Right:    d.node(v.Get("right")),
		}
	case "LogicalExpression":
		return &syntax.LogicalExpression{
			Base:     d.base(v),
			Operator: string(v.GetStringBytes("operator")),
			Left:     d.node(v.Get("left")),
			Right:    d.node(v.Get("right")),
		}
	case "CallExpression", "OptionalCallExpression":
		return &syntax.CallExpression{
			Base:      d.base(v),
			Callee:    d.node(v.Get("callee")),
			Arguments: d.list(v.GetArray("arguments")),
		}
	case "SpreadElement":
		return &syntax.SpreadElement{Base: d.base(v), Argument: d.node(v.Get("argument"))}
	case "JSXElement":
		return &syntax.JSXElement{
			Base:     d.base(v),
			Opening:  d.node(v.Get("openingElement")),
			Children: d.list(v.GetArray("children")),
			Closing:  d.node(v.Get("closingElement")),
		}
	case "JSXExpressionContainer":
		return &syntax.JSXExpressionContainer{Base: d.base(v), Expression: d.node(v.Get("expression"))}
	case "ObjectTypeAnnotation":
		return &syntax.ObjectType{
			Base:           d.base(v),
			Exact:          v.GetBool("exact"),
			Inexact:        v.GetBool("inexact"),
			Properties:     d.list(v.GetArray("properties")),
			Indexers:       d.list(v.GetArray("indexers")),
			CallProperties: d.list(v.GetArray("callProperties")),
			InternalSlots:  d.list(v.GetArray("internalSlots")),
		}
	case "InterfaceDeclaration", "DeclareInterface":
		decl := &syntax.InterfaceDeclaration{
			Base:           d.base(v),
			ID:             d.node(v.Get("id")),
			TypeParameters: d.node(v.Get("typeParameters")),
			Extends:        d.list(v.GetArray("extends")),
		}
		decl.Body, _ = d.node(v.Get("body")).(*syntax.ObjectType)
		return decl
	case "InterfaceTypeAnnotation":
		it := &syntax.InterfaceType{Base: d.base(v), Extends: d.list(v.GetArray("extends"))}
		it.Body, _ = d.node(v.Get("body")).(*syntax.ObjectType)
		return it
	case "GenericTypeAnnotation":
		g := &syntax.GenericType{Base: d.base(v), ID: d.node(v.Get("id"))}
		g.TypeArguments, _ = d.node(v.Get("typeParameters")).(*syntax.TypeParameterInstantiation)
		return g
	case "TypeParameterInstantiation":
		return &syntax.TypeParameterInstantiation{Base: d.base(v), Params: d.list(v.GetArray("params"))}
	default:
		return &syntax.Other{Base: d.base(v), Type: t, Nodes: d.fields(v)}
	}
}

// skipKeys are object keys that never hold child nodes of the tree.
var skipKeys = map[string]bool{
	"type": true, "loc": true, "range": true, "start": true, "end": true,
	"comments": true, "leadingComments": true, "trailingComments": true,
	"innerComments": true, "extra": true, "tokens": true,
}

// fields maps every node-valued field of an unknown node, in source order.
func (d *decoder) fields(v *fastjson.Value) []syntax.Node {
	var out []syntax.Node
	v.GetObject().Visit(func(key []byte, fv *fastjson.Value) {
		if skipKeys[string(key)] {
			return
		}
		switch fv.Type() {
		case fastjson.TypeObject:
			if n := d.node(fv); n != nil {
				out = append(out, n)
			}
		case fastjson.TypeArray:
			arr, _ := fv.Array()
			out = append(out, d.list(arr)...)
		}
	})
	slices.SortStableFunc(out, func(a, b syntax.Node) int {
		return a.Span().Start - b.Span().Start
	})
	return out
}
