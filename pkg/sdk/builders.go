package sdk

import (
	"regexp"

	"github.com/santosr2/esguard/pkg/syntax"
)

// SimpleRule creates a rule from a meta block and a Create function. This is
// the most basic builder and is what plugins usually use.
func SimpleRule(name, description string, meta Meta, create func(ctx *Context) Handlers) Rule {
	return &simpleRule{name: name, description: description, meta: meta, create: create}
}

type simpleRule struct {
	name        string
	description string
	meta        Meta
	create      func(ctx *Context) Handlers
}

func (r *simpleRule) Name() string                 { return r.name }
func (r *simpleRule) Description() string          { return r.description }
func (r *simpleRule) Meta() Meta                   { return r.meta }
func (r *simpleRule) Create(ctx *Context) Handlers { return r.create(ctx) }

// KindRule creates a rule with a single handler for one node kind.
func KindRule(name, description string, meta Meta, kind syntax.Kind, check func(ctx *Context, n syntax.Node)) Rule {
	return SimpleRule(name, description, meta, func(ctx *Context) Handlers {
		return Handlers{kind: func(n syntax.Node) { check(ctx, n) }}
	})
}

// CommentPatternRule creates a rule reporting every comment that matches
// pattern. It panics if pattern does not compile.
func CommentPatternRule(name, description, pattern, message string, severity Severity) Rule {
	re := regexp.MustCompile(pattern)
	meta := Meta{DefaultSeverity: severity, DefaultEnabled: true}
	return KindRule(name, description, meta, syntax.KindComment, func(ctx *Context, n syntax.Node) {
		if c, ok := n.(*syntax.Comment); ok && re.MatchString(c.Text) {
			ctx.Report(Descriptor{Node: c, Message: message})
		}
	})
}
