package syntax

// Is reports whether n is non-nil and of one of the given kinds.
func Is(n Node, kinds ...Kind) bool {
	if n == nil {
		return false
	}
	k := n.Kind()
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// ParentIs reports whether the parent of n is of one of the given kinds.
func ParentIs(n Node, kinds ...Kind) bool {
	if n == nil {
		return false
	}
	return Is(n.Parent(), kinds...)
}

// IsIdentifier reports whether n is an identifier with the given name.
func IsIdentifier(n Node, name string) bool {
	id, ok := n.(*Identifier)
	return ok && id.Name == name
}

// Enclosing returns the nearest strict ancestor of n with the given kind,
// or nil.
func Enclosing(n Node, kind Kind) Node {
	if n == nil {
		return nil
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == kind {
			return p
		}
	}
	return nil
}

// IsTypeArgumentOf reports whether n is one of the type arguments of a
// generic type reference named name, as in `$Exact<{ a: T }>`.
func IsTypeArgumentOf(n Node, name string) bool {
	if !ParentIs(n, KindTypeParameterInstantiation) {
		return false
	}
	g, ok := n.Parent().Parent().(*GenericType)
	return ok && g.Name() == name
}
