package lint

import (
	"strings"

	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

// NoJSXAndAndRule reports `{cond && <A />}` children, which render `false`,
// `0` or `""` when cond is falsy, and rewrites them to a ternary.
type NoJSXAndAndRule struct{}

// Name returns the rule identifier.
func (r *NoJSXAndAndRule) Name() string {
	return "no-jsx-andand"
}

// Description returns a human-readable description of the rule.
func (r *NoJSXAndAndRule) Description() string {
	return "Disallows condition && <Component> as a JSX child"
}

// Meta returns the rule defaults.
func (r *NoJSXAndAndRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityWarning,
		DefaultEnabled:  true,
		Fixable:         true,
		Tags:            []string{"jsx"},
	}
}

// Create registers the JSXExpressionContainer handler.
func (r *NoJSXAndAndRule) Create(ctx *sdk.Context) sdk.Handlers {
	return sdk.Handlers{
		syntax.KindJSXExpressionContainer: func(n syntax.Node) {
			container, ok := n.(*syntax.JSXExpressionContainer)
			if !ok {
				return
			}
			logical, ok := container.Expression.(*syntax.LogicalExpression)
			// attribute values such as foo={x && y} are left alone
			if !ok || logical.Operator != "&&" || !syntax.ParentIs(container, syntax.KindJSXElement) {
				return
			}
			if logical.Left == nil || logical.Right == nil {
				return
			}

			ctx.Report(sdk.Descriptor{
				Node:    container,
				Message: "Do not use `condition && <Component>` in JSX",
				Fix: func(f *sdk.Fixer) []sdk.Edit {
					operator := syntax.Span{Start: logical.Left.Span().End, End: logical.Right.Span().Start}
					tail := syntax.Span{Start: logical.Right.Span().End, End: container.Span().End - 1}
					if operator.Start > operator.End || tail.Start > tail.End {
						return nil
					}
					// parentheses or comments outside the operand spans would be lost
					if strings.TrimSpace(f.Text(operator)) != "&&" || strings.TrimSpace(f.Text(tail)) != "" {
						return nil
					}
					return []sdk.Edit{
						f.ReplaceTextRange(operator, " ? "),
						f.ReplaceTextRange(tail, " : null"),
					}
				},
			})
		},
	}
}
