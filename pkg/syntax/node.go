package syntax

import "slices"

// Node is a node of the syntax tree.
//
// The set of implementations is closed to this package. Parent returns nil
// for the Program root and for nodes that have not been linked into a tree.
type Node interface {
	Kind() Kind
	Span() Span
	Parent() Node

	children() []Node
	setParent(Node)
}

// Base carries the fields shared by every node.
type Base struct {
	Range  Span
	parent Node
}

func (b *Base) Span() Span       { return b.Range }
func (b *Base) Parent() Node     { return b.parent }
func (b *Base) setParent(p Node) { b.parent = p }

// Program is the root of a tree.
type Program struct {
	Base
	Body     []Node
	Comments []*Comment
}

// Comment is a line or block comment. Comments are not part of the regular
// child walk; see Program.Comments.
type Comment struct {
	Base
	Text  string // without the comment delimiters
	Block bool
}

type Identifier struct {
	Base
	Name string
}

type ImportDeclaration struct {
	Base
	Specifiers []Node
	Source     Node
}

// ImportNamespaceSpecifier is the `* as ns` part of an import.
type ImportNamespaceSpecifier struct {
	Base
	Local *Identifier
}

// CatchClause is the `catch (param) { ... }` part of a try statement. Param
// is nil when the clause has no binding.
type CatchClause struct {
	Base
	Param Node
	Body  Node
}

type BinaryExpression struct {
	Base
	Operator string
	Left     Node
	Right    Node
}

// LogicalExpression is a binary expression using &&, || or ??.
type LogicalExpression struct {
	Base
	Operator string
	Left     Node
	Right    Node
}

type CallExpression struct {
	Base
	Callee    Node
	Arguments []Node
}

type SpreadElement struct {
	Base
	Argument Node
}

type JSXElement struct {
	Base
	Opening  Node
	Children []Node
	Closing  Node
}

type JSXExpressionContainer struct {
	Base
	Expression Node
}

// ObjectType is a Flow object type annotation.
//
// Exact marks the `{| |}` form and Inexact an explicit trailing `...`.
type ObjectType struct {
	Base
	Exact          bool
	Inexact        bool
	Properties     []Node
	Indexers       []Node
	CallProperties []Node
	InternalSlots  []Node
}

type InterfaceDeclaration struct {
	Base
	ID             Node
	TypeParameters Node
	Extends        []Node
	Body           *ObjectType
}

// InterfaceType is an inline `interface { ... }` type annotation.
type InterfaceType struct {
	Base
	Extends []Node
	Body    *ObjectType
}

// GenericType is a reference to a named type, optionally with type
// arguments, such as `$Exact<T>`.
type GenericType struct {
	Base
	ID            Node
	TypeArguments *TypeParameterInstantiation
}

// Name returns the referenced type name, or "" for qualified names.
func (g *GenericType) Name() string {
	if id, ok := g.ID.(*Identifier); ok {
		return id.Name
	}
	return ""
}

type TypeParameterInstantiation struct {
	Base
	Params []Node
}

// Other is any node no rule needs to inspect. Type keeps the frontend's
// name for it.
type Other struct {
	Base
	Type  string
	Nodes []Node
}

func (*Program) Kind() Kind                    { return KindProgram }
func (*Comment) Kind() Kind                    { return KindComment }
func (*Identifier) Kind() Kind                 { return KindIdentifier }
func (*ImportDeclaration) Kind() Kind          { return KindImportDeclaration }
func (*ImportNamespaceSpecifier) Kind() Kind   { return KindImportNamespaceSpecifier }
func (*CatchClause) Kind() Kind                { return KindCatchClause }
func (*BinaryExpression) Kind() Kind           { return KindBinaryExpression }
func (*LogicalExpression) Kind() Kind          { return KindLogicalExpression }
func (*CallExpression) Kind() Kind             { return KindCallExpression }
func (*SpreadElement) Kind() Kind              { return KindSpreadElement }
func (*JSXElement) Kind() Kind                 { return KindJSXElement }
func (*JSXExpressionContainer) Kind() Kind     { return KindJSXExpressionContainer }
func (*ObjectType) Kind() Kind                 { return KindObjectType }
func (*InterfaceDeclaration) Kind() Kind       { return KindInterfaceDeclaration }
func (*InterfaceType) Kind() Kind              { return KindInterfaceType }
func (*GenericType) Kind() Kind                { return KindGenericType }
func (*TypeParameterInstantiation) Kind() Kind { return KindTypeParameterInstantiation }
func (*Other) Kind() Kind                      { return KindOther }

func (n *Program) children() []Node    { return collect(nil, n.Body...) }
func (n *Comment) children() []Node    { return nil }
func (n *Identifier) children() []Node { return nil }

func (n *ImportDeclaration) children() []Node {
	return collect(collect(nil, n.Specifiers...), n.Source)
}

func (n *ImportNamespaceSpecifier) children() []Node {
	if n.Local == nil {
		return nil
	}
	return []Node{n.Local}
}

func (n *CatchClause) children() []Node       { return collect(nil, n.Param, n.Body) }
func (n *BinaryExpression) children() []Node  { return collect(nil, n.Left, n.Right) }
func (n *LogicalExpression) children() []Node { return collect(nil, n.Left, n.Right) }

func (n *CallExpression) children() []Node {
	return collect(collect(nil, n.Callee), n.Arguments...)
}

func (n *SpreadElement) children() []Node { return collect(nil, n.Argument) }

func (n *JSXElement) children() []Node {
	out := collect(nil, n.Opening)
	out = collect(out, n.Children...)
	return collect(out, n.Closing)
}

func (n *JSXExpressionContainer) children() []Node { return collect(nil, n.Expression) }

func (n *ObjectType) children() []Node {
	out := collect(nil, n.Properties...)
	out = collect(out, n.Indexers...)
	out = collect(out, n.CallProperties...)
	out = collect(out, n.InternalSlots...)
	return bySpan(out)
}

func (n *InterfaceDeclaration) children() []Node {
	out := collect(nil, n.ID, n.TypeParameters)
	out = collect(out, n.Extends...)
	if n.Body != nil {
		out = append(out, n.Body)
	}
	return out
}

func (n *InterfaceType) children() []Node {
	out := collect(nil, n.Extends...)
	if n.Body != nil {
		out = append(out, n.Body)
	}
	return out
}

func (n *GenericType) children() []Node {
	out := collect(nil, n.ID)
	if n.TypeArguments != nil {
		out = append(out, n.TypeArguments)
	}
	return out
}

func (n *TypeParameterInstantiation) children() []Node { return collect(nil, n.Params...) }
func (n *Other) children() []Node                      { return collect(nil, n.Nodes...) }

// collect appends the non-nil nodes to dst. Callers holding typed pointer
// fields must check them before passing them in.
func collect(dst []Node, nodes ...Node) []Node {
	for _, n := range nodes {
		if n != nil {
			dst = append(dst, n)
		}
	}
	return dst
}

func bySpan(nodes []Node) []Node {
	slices.SortStableFunc(nodes, func(a, b Node) int {
		return a.Span().Start - b.Span().Start
	})
	return nodes
}

// Children returns the direct children of n in source order. Comments are
// never included.
func Children(n Node) []Node {
	if n == nil {
		return nil
	}
	return n.children()
}

// Link sets the parent of every node reachable from root, including the
// program's comments. The root's own parent is left unchanged.
func Link(root Node) {
	for _, c := range root.children() {
		c.setParent(root)
		Link(c)
	}
	if p, ok := root.(*Program); ok {
		for _, c := range p.Comments {
			c.setParent(p)
		}
	}
}

// Inspect traverses the tree rooted at n in depth-first order. It calls
// f(node) for each node; if f returns true, Inspect descends into the node's
// children. Comments are not visited.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range n.children() {
		Inspect(c, f)
	}
}
