package syntax

//go:generate go tool stringer -type=Kind -trimprefix=Kind

// Kind identifies the variant of a syntax tree node.
//
// The set is closed: node shapes that no rule needs to inspect are
// represented as KindOther and keep the frontend's original type name.
type Kind uint8

const (
	KindOther Kind = iota
	KindProgram
	KindComment
	KindIdentifier
	KindImportDeclaration
	KindImportNamespaceSpecifier
	KindCatchClause
	KindBinaryExpression
	KindLogicalExpression
	KindCallExpression
	KindSpreadElement
	KindJSXElement
	KindJSXExpressionContainer
	KindObjectType
	KindInterfaceDeclaration
	KindInterfaceType
	KindGenericType
	KindTypeParameterInstantiation
)

const numKinds = int(KindTypeParameterInstantiation) + 1

// Kinds returns every kind except KindOther, in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds-1)
	for k := KindProgram; int(k) < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind returns the kind with the given name, as printed by Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k := KindOther; int(k) < numKinds; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return KindOther, false
}
