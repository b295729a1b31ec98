package lint

import (
	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

// NoImportsRule reports every import declaration, for files that must stay
// on require().
type NoImportsRule struct{}

// Name returns the rule identifier.
func (r *NoImportsRule) Name() string {
	return "no-imports"
}

// Description returns a human-readable description of the rule.
func (r *NoImportsRule) Description() string {
	return "Disallows import declarations in favor of require()"
}

// Meta returns the rule defaults. The rule is meant for selected files only
// and is off unless enabled.
func (r *NoImportsRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityError,
		DefaultEnabled:  false,
		Tags:            []string{"imports"},
	}
}

// Create registers the ImportDeclaration handler.
func (r *NoImportsRule) Create(ctx *sdk.Context) sdk.Handlers {
	return sdk.Handlers{
		syntax.KindImportDeclaration: func(n syntax.Node) {
			ctx.Report(sdk.Descriptor{
				Node:    n,
				Message: "Do not use `import` in this file. Use `require()` instead.",
			})
		},
	}
}

// NoNamespacedImportsRule reports `import * as ns` declarations.
type NoNamespacedImportsRule struct{}

// Name returns the rule identifier.
func (r *NoNamespacedImportsRule) Name() string {
	return "no-namespaced-imports"
}

// Description returns a human-readable description of the rule.
func (r *NoNamespacedImportsRule) Description() string {
	return "Disallows namespace imports (import * as ns)"
}

// Meta returns the rule defaults.
func (r *NoNamespacedImportsRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityWarning,
		DefaultEnabled:  false,
		Tags:            []string{"imports"},
	}
}

// Create registers the ImportNamespaceSpecifier handler. The finding is
// anchored at the whole import declaration.
func (r *NoNamespacedImportsRule) Create(ctx *sdk.Context) sdk.Handlers {
	return sdk.Handlers{
		syntax.KindImportNamespaceSpecifier: func(n syntax.Node) {
			decl := syntax.Enclosing(n, syntax.KindImportDeclaration)
			if decl == nil {
				return
			}
			ctx.Report(sdk.Descriptor{
				Node:    decl,
				Message: "Do not use namespaced imports in this file. Import only items actually required.",
			})
		},
	}
}
