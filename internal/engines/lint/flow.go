package lint

import (
	"strings"

	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

// FlowNoAmbiguousObjectExactnessRule reports object types that are neither
// explicitly exact nor explicitly inexact.
type FlowNoAmbiguousObjectExactnessRule struct{}

// Name returns the rule identifier.
func (r *FlowNoAmbiguousObjectExactnessRule) Name() string {
	return "flow-no-ambiguous-object-exactness"
}

// Description returns a human-readable description of the rule.
func (r *FlowNoAmbiguousObjectExactnessRule) Description() string {
	return "Requires Flow object types to spell out their exactness"
}

// Meta returns the rule defaults and option schema.
func (r *FlowNoAmbiguousObjectExactnessRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityError,
		DefaultEnabled:  true,
		Fixable:         true,
		Schema: sdk.Schema{{
			Name:        "exactByDefault",
			Type:        sdk.OptionBool,
			Description: "value of exact_by_default in .flowconfig; the fix depends on it and is only offered when set",
		}},
		Tags: []string{"flow"},
	}
}

const (
	ambiguousExactByDefault = "Object's exactness is ambiguous, use {| a: T |} or { a: T, ... } instead"
	ambiguousInexactDefault = "Object's exactness is ambiguous, use { a: T, ... } instead"
	ambiguousUnknownDefault = "Object's exactness is ambiguous, use $Exact<{ a: T }> or {| a: T |} or { a: T, ... } instead"
)

// Create registers the ObjectType handler.
func (r *FlowNoAmbiguousObjectExactnessRule) Create(ctx *sdk.Context) sdk.Handlers {
	exactByDefault, set := ctx.Options.Bool("exactByDefault")

	message := ambiguousUnknownDefault
	if set && exactByDefault {
		message = ambiguousExactByDefault
	} else if set {
		message = ambiguousInexactDefault
	}

	return sdk.Handlers{
		syntax.KindObjectType: func(n syntax.Node) {
			obj, ok := n.(*syntax.ObjectType)
			if !ok || !isAmbiguousObject(obj) {
				return
			}

			d := sdk.Descriptor{Node: obj, Message: message}
			if set {
				d.Fix = func(f *sdk.Fixer) []sdk.Edit {
					if exactByDefault {
						return exactObjectEdits(f, obj)
					}
					return inexactObjectEdits(f, obj)
				}
			}
			ctx.Report(d)
		},
	}
}

func isAmbiguousObject(obj *syntax.ObjectType) bool {
	switch {
	case syntax.ParentIs(obj, syntax.KindInterfaceDeclaration, syntax.KindInterfaceType):
		return false
	case obj.Exact, obj.Inexact:
		return false
	case len(obj.Indexers) > 0:
		return false
	case syntax.IsTypeArgumentOf(obj, "$Exact"):
		return false
	}
	return true
}

// exactObjectEdits rewrites `{ a: T }` to `{| a: T |}`.
func exactObjectEdits(f *sdk.Fixer, obj *syntax.ObjectType) []sdk.Edit {
	s := obj.Span()
	if s.Len() < 2 || f.Text(syntax.Span{Start: s.Start, End: s.Start + 1}) != "{" ||
		f.Text(syntax.Span{Start: s.End - 1, End: s.End}) != "}" {
		return nil
	}
	return []sdk.Edit{
		f.ReplaceTextRange(syntax.Span{Start: s.Start, End: s.Start + 1}, "{|"),
		f.ReplaceTextRange(syntax.Span{Start: s.End - 1, End: s.End}, "|}"),
	}
}

// inexactObjectEdits rewrites `{ a: T }` to `{ a: T, ... }`.
func inexactObjectEdits(f *sdk.Fixer, obj *syntax.ObjectType) []sdk.Edit {
	s := obj.Span()
	closing := syntax.Span{Start: s.End - 1, End: s.End}
	if s.Len() < 2 || f.Text(closing) != "}" {
		return nil
	}
	before := strings.TrimRight(f.Text(syntax.Span{Start: s.Start, End: closing.Start}), " \t\r\n")
	if strings.HasSuffix(before, ",") {
		// keep the existing trailing comma
		return []sdk.Edit{f.ReplaceTextRange(syntax.Span{Start: s.Start + len(before), End: s.End}, " ... }")}
	}
	members := len(obj.Properties) + len(obj.CallProperties) + len(obj.InternalSlots)
	if members == 0 {
		return []sdk.Edit{f.ReplaceTextRange(closing, " ... }")}
	}
	return []sdk.Edit{f.ReplaceTextRange(closing, ", ... }")}
}

// FlowNoShorthandExactObjectRule reports `{| |}` object types and rewrites
// them to $Exact<{ }>.
type FlowNoShorthandExactObjectRule struct{}

// Name returns the rule identifier.
func (r *FlowNoShorthandExactObjectRule) Name() string {
	return "flow-no-shorthand-exact-object"
}

// Description returns a human-readable description of the rule.
func (r *FlowNoShorthandExactObjectRule) Description() string {
	return "Disallows the {| |} exact object shorthand in favor of $Exact<{ }>"
}

// Meta returns the rule defaults. The rule contradicts the exactByDefault
// fix of flow-no-ambiguous-object-exactness and is off unless enabled.
func (r *FlowNoShorthandExactObjectRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityWarning,
		DefaultEnabled:  false,
		Fixable:         true,
		Tags:            []string{"flow"},
	}
}

// Create registers the ObjectType handler.
func (r *FlowNoShorthandExactObjectRule) Create(ctx *sdk.Context) sdk.Handlers {
	return sdk.Handlers{
		syntax.KindObjectType: func(n syntax.Node) {
			obj, ok := n.(*syntax.ObjectType)
			if !ok || !obj.Exact {
				return
			}
			ctx.Report(sdk.Descriptor{
				Node:    obj,
				Message: "Please use $Exact<{ foo: Bar }> instead of {| foo: Bar |}",
				Fix: func(f *sdk.Fixer) []sdk.Edit {
					s := obj.Span()
					open := syntax.Span{Start: s.Start, End: s.Start + 2}
					closing := syntax.Span{Start: s.End - 2, End: s.End}
					if s.Len() < 4 || f.Text(open) != "{|" || f.Text(closing) != "|}" {
						return nil
					}
					return []sdk.Edit{
						f.ReplaceTextRange(open, "$Exact<{"),
						f.ReplaceTextRange(closing, "}>"),
					}
				},
			})
		},
	}
}
