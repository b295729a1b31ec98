package lint

import (
	"fmt"

	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

// NoCatchWithoutParamRule reports `catch {}` clauses without a binding.
type NoCatchWithoutParamRule struct{}

// Name returns the rule identifier.
func (r *NoCatchWithoutParamRule) Name() string {
	return "no-catch-without-param"
}

// Description returns a human-readable description of the rule.
func (r *NoCatchWithoutParamRule) Description() string {
	return "Requires catch clauses to bind the error"
}

// Meta returns the rule defaults.
func (r *NoCatchWithoutParamRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityError,
		DefaultEnabled:  true,
		Fixable:         true,
	}
}

// Create registers the CatchClause handler.
func (r *NoCatchWithoutParamRule) Create(ctx *sdk.Context) sdk.Handlers {
	return sdk.Handlers{
		syntax.KindCatchClause: func(n syntax.Node) {
			clause, ok := n.(*syntax.CatchClause)
			if !ok || clause.Param != nil {
				return
			}
			d := sdk.Descriptor{Node: clause, Message: "Add parameter to catch clause, e.g. `(_error)`"}
			if clause.Body != nil {
				d.Fix = func(f *sdk.Fixer) []sdk.Edit {
					return []sdk.Edit{f.InsertTextBefore(clause.Body, "(_error) ")}
				}
			}
			ctx.Report(d)
		},
	}
}

// NoArgSpreadRule reports spread elements in call arguments.
type NoArgSpreadRule struct{}

// Name returns the rule identifier.
func (r *NoArgSpreadRule) Name() string {
	return "no-arg-spread"
}

// Description returns a human-readable description of the rule.
func (r *NoArgSpreadRule) Description() string {
	return "Disallows spreading arguments into function calls"
}

// Meta returns the rule defaults.
func (r *NoArgSpreadRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityWarning,
		DefaultEnabled:  true,
	}
}

// Create registers the CallExpression handler. Each spread argument gets its
// own finding.
func (r *NoArgSpreadRule) Create(ctx *sdk.Context) sdk.Handlers {
	return sdk.Handlers{
		syntax.KindCallExpression: func(n syntax.Node) {
			call, ok := n.(*syntax.CallExpression)
			if !ok {
				return
			}
			for _, arg := range call.Arguments {
				if arg.Kind() != syntax.KindSpreadElement {
					continue
				}
				ctx.Report(sdk.Descriptor{
					Node:    arg,
					Message: "Spreading arguments is not allowed here. Pass an array as a single argument instead.",
				})
			}
		},
	}
}

// NoInExpressionRule reports the `in` operator.
type NoInExpressionRule struct{}

// Name returns the rule identifier.
func (r *NoInExpressionRule) Name() string {
	return "no-in-expression"
}

// Description returns a human-readable description of the rule.
func (r *NoInExpressionRule) Description() string {
	return "Disallows the 'in' operator, which also matches inherited properties"
}

// Meta returns the rule defaults.
func (r *NoInExpressionRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityWarning,
		DefaultEnabled:  true,
	}
}

// Create registers the BinaryExpression handler.
func (r *NoInExpressionRule) Create(ctx *sdk.Context) sdk.Handlers {
	return sdk.Handlers{
		syntax.KindBinaryExpression: func(n syntax.Node) {
			bin, ok := n.(*syntax.BinaryExpression)
			if !ok || bin.Operator != "in" {
				return
			}
			ctx.Report(sdk.Descriptor{
				Node: bin,
				Message: "'in' operator is usually unsafe on user-provided data, add a " +
					"`Object.prototype.hasOwnProperty.call(obj, prop)` check and/or silence this rule if you're sure it's safe",
			})
		},
	}
}

// DefaultMaxLines is the default line limit of max-lines.
const DefaultMaxLines = 500

// MaxLinesRule reports files longer than a line limit.
type MaxLinesRule struct{}

// Name returns the rule identifier.
func (r *MaxLinesRule) Name() string {
	return "max-lines"
}

// Description returns a human-readable description of the rule.
func (r *MaxLinesRule) Description() string {
	return "Limits the number of lines in a file"
}

// Meta returns the rule defaults and option schema.
func (r *MaxLinesRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityWarning,
		DefaultEnabled:  true,
		Schema: sdk.Schema{{
			Name:        "max",
			Type:        sdk.OptionInt,
			Default:     DefaultMaxLines,
			Description: "maximum number of lines",
		}},
	}
}

// Create registers the Program handler.
func (r *MaxLinesRule) Create(ctx *sdk.Context) sdk.Handlers {
	limit := ctx.Options.Int("max", DefaultMaxLines)
	return sdk.Handlers{
		syntax.KindProgram: func(n syntax.Node) {
			prog, ok := n.(*syntax.Program)
			if !ok || ctx.Lines == nil {
				return
			}
			count := ctx.Lines.LineCount()
			if count <= limit {
				return
			}
			var anchor syntax.Node = prog
			if len(prog.Body) > 0 {
				anchor = prog.Body[0]
			}
			ctx.Report(sdk.Descriptor{
				Node:    anchor,
				Message: fmt.Sprintf("This file is long (%d lines). Try to keep files below %d lines", count, limit),
			})
		},
	}
}

// NoInvariantWithoutMessageRule reports invariant(cond) calls without a
// message argument.
type NoInvariantWithoutMessageRule struct{}

// Name returns the rule identifier.
func (r *NoInvariantWithoutMessageRule) Name() string {
	return "no-invariant-without-message"
}

// Description returns a human-readable description of the rule.
func (r *NoInvariantWithoutMessageRule) Description() string {
	return "Requires invariant() calls to pass an error message"
}

// Meta returns the rule defaults.
func (r *NoInvariantWithoutMessageRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityError,
		DefaultEnabled:  true,
	}
}

// Create registers the CallExpression handler.
func (r *NoInvariantWithoutMessageRule) Create(ctx *sdk.Context) sdk.Handlers {
	return sdk.Handlers{
		syntax.KindCallExpression: func(n syntax.Node) {
			call, ok := n.(*syntax.CallExpression)
			if !ok || !syntax.IsIdentifier(call.Callee, "invariant") || len(call.Arguments) != 1 {
				return
			}
			ctx.Report(sdk.Descriptor{Node: call, Message: "invariant() must have an error message"})
		},
	}
}
