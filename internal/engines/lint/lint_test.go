package lint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

var fixedNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func testConfig(rules map[string]RuleConfig) *Config {
	return &Config{
		Rules:  rules,
		Parser: "treesitter",
		Clock:  func() time.Time { return fixedNow },
	}
}

func check(t *testing.T, engine *Engine, name, content string) []sdk.Finding {
	t.Helper()
	findings, err := engine.CheckSource(context.Background(), name, []byte(content))
	require.NoError(t, err)
	return findings
}

func byRule(findings []sdk.Finding, rule string) []sdk.Finding {
	var out []sdk.Finding
	for _, f := range findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestEngine_Run(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		config      *Config
		wantErr     bool
		wantFinding bool
	}{
		{
			name: "clean file",
			content: `const React = require("react");

function render(items) {
  try {
    return items.map((item) => invariant(item, "missing item"));
  } catch (error) {
    return <div>{ready ? <Spinner /> : null}</div>;
  }
}
`,
			wantFinding: false,
		},
		{
			name: "unsafe in expression",
			content: `if ("key" in obj) {
  run();
}
`,
			wantFinding: true,
		},
		{
			name:        "invalid parser name",
			content:     "x;\n",
			config:      &Config{Parser: "acorn"},
			wantErr:     true,
			wantFinding: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			tmpFile := filepath.Join(tmpDir, "main.js")

			err := os.WriteFile(tmpFile, []byte(tt.content), 0644)
			require.NoError(t, err)

			config := tt.config
			if config == nil {
				config = testConfig(nil)
			}
			engine := New(config)
			findings, err := engine.Run(context.Background(), []string{tmpFile})

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)

			if tt.wantFinding {
				assert.NotEmpty(t, findings, "expected to find issues")
			} else {
				assert.Empty(t, findings, "expected no issues")
			}
		})
	}
}

func TestEngine_RunParallel(t *testing.T) {
	tmpDir := t.TempDir()
	var files []string
	for i := 0; i < 8; i++ {
		file := filepath.Join(tmpDir, "f"+string(rune('a'+i))+".js")
		require.NoError(t, os.WriteFile(file, []byte("f(...args);\n"), 0644))
		files = append(files, file)
	}

	config := testConfig(nil)
	config.Parallel = true
	config.Jobs = 3
	findings, err := New(config).Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, findings, 8)
	for i, f := range findings {
		assert.Equal(t, files[i], f.File, "results keep input order")
		assert.Equal(t, "no-arg-spread", f.Rule)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(config).Run(ctx, files)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = New(config).Run(context.Background(), []string{filepath.Join(tmpDir, "missing.js")})
	assert.Error(t, err)
}

func TestEngine_ParseError(t *testing.T) {
	findings := check(t, New(testConfig(nil)), "bad.js", "function (\n")
	require.Len(t, findings, 1)
	assert.Equal(t, ParseErrorRule, findings[0].Rule)
	assert.Equal(t, sdk.SeverityError, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "Failed to parse file")
}

func TestEngine_DefaultRules(t *testing.T) {
	engine := New(nil)

	var names []string
	enabled := map[string]bool{}
	for _, r := range engine.Rules() {
		names = append(names, r.Name())
		enabled[r.Name()] = engine.getRuleConfig(r).Enabled
	}

	assert.Equal(t, []string{
		"flow-no-ambiguous-object-exactness",
		"flow-no-shorthand-exact-object",
		"max-lines",
		"no-arg-spread",
		"no-catch-without-param",
		"no-imports",
		"no-in-expression",
		"no-invariant-without-message",
		"no-jsx-andand",
		"no-namespaced-imports",
		"no-overdue-todo",
	}, names)
	assert.False(t, enabled["no-imports"])
	assert.False(t, enabled["no-namespaced-imports"])
	assert.False(t, enabled["flow-no-shorthand-exact-object"])
	assert.True(t, enabled["no-jsx-andand"])

	assert.Error(t, engine.Register(&NoImportsRule{}), "duplicate names are rejected")
}

func TestEngine_RuleConfig(t *testing.T) {
	t.Run("disabled rule", func(t *testing.T) {
		engine := New(testConfig(map[string]RuleConfig{"no-in-expression": {Enabled: false}}))
		assert.Empty(t, byRule(check(t, engine, "a.js", "a in b;\n"), "no-in-expression"))
	})

	t.Run("severity override", func(t *testing.T) {
		engine := New(testConfig(map[string]RuleConfig{"no-in-expression": {Enabled: true, Severity: "info"}}))
		findings := byRule(check(t, engine, "a.js", "a in b;\n"), "no-in-expression")
		require.Len(t, findings, 1)
		assert.Equal(t, sdk.SeverityInfo, findings[0].Severity)
	})

	t.Run("default severity", func(t *testing.T) {
		engine := New(testConfig(map[string]RuleConfig{"no-invariant-without-message": {Enabled: true}}))
		findings := check(t, engine, "a.js", "invariant(x);\n")
		require.Len(t, findings, 1)
		assert.Equal(t, sdk.SeverityError, findings[0].Severity)
	})

	t.Run("unknown option", func(t *testing.T) {
		engine := New(testConfig(map[string]RuleConfig{
			"max-lines": {Enabled: true, Options: map[string]interface{}{"maximum": 3}},
		}))
		_, err := engine.CheckSource(context.Background(), "a.js", []byte("x;\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rule max-lines")
	})
}

func TestNoInExpressionRule(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"in operator", "if ('a' in b) {}\n", 1},
		{"two in operators", "x = 'a' in b && 'c' in d;\n", 2},
		{"instanceof", "x = a instanceof B;\n", 0},
		{"for in loop", "for (const k in o) {}\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := byRule(check(t, New(testConfig(nil)), "a.js", tt.content), "no-in-expression")
			assert.Len(t, findings, tt.want)
			for _, f := range findings {
				assert.Nil(t, f.Fix)
				assert.Contains(t, f.Message, "hasOwnProperty")
			}
		})
	}
}

func TestNoCatchWithoutParamRule(t *testing.T) {
	engine := New(testConfig(nil))

	assert.Empty(t, byRule(check(t, engine, "a.js", "try { f(); } catch (e) { g(); }\n"), "no-catch-without-param"))

	src := "try { f(); } catch { g(); }\n"
	findings := byRule(check(t, engine, "a.js", src), "no-catch-without-param")
	require.Len(t, findings, 1)
	assert.Equal(t, "Add parameter to catch clause, e.g. `(_error)`", findings[0].Message)
	require.NotNil(t, findings[0].Fix)
	require.Len(t, findings[0].Fix.Edits, 1)
	assert.True(t, findings[0].Fix.Edits[0].Range.IsEmpty(), "the fix is a pure insertion")

	out, err := sdk.ApplyEdits([]byte(src), findings[0].Fix.Edits)
	require.NoError(t, err)
	assert.Equal(t, "try { f(); } catch (_error) { g(); }\n", string(out))
}

func TestNoArgSpreadRule(t *testing.T) {
	src := "f(...a, b, ...c);\nnew F(...d);\nconst arr = [...e];\n"
	findings := byRule(check(t, New(testConfig(nil)), "a.js", src), "no-arg-spread")

	require.Len(t, findings, 2)
	assert.Equal(t, "...a", src[findings[0].Span.Start:findings[0].Span.End])
	assert.Equal(t, "...c", src[findings[1].Span.Start:findings[1].Span.End])
	assert.Nil(t, findings[0].Fix)
}

func TestMaxLinesRule(t *testing.T) {
	src := "a();\nb();\nc();\n"
	tests := []struct {
		name    string
		options map[string]interface{}
		want    string
	}{
		{"default limit", nil, ""},
		{"below limit", map[string]interface{}{"max": 4}, ""},
		{"above limit", map[string]interface{}{"max": 3}, "This file is long (4 lines). Try to keep files below 3 lines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := New(testConfig(map[string]RuleConfig{"max-lines": {Enabled: true, Options: tt.options}}))
			findings := byRule(check(t, engine, "a.js", src), "max-lines")
			if tt.want == "" {
				assert.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			assert.Equal(t, tt.want, findings[0].Message)
			assert.Equal(t, "a();", src[findings[0].Span.Start:findings[0].Span.End])
		})
	}
}

func TestNoInvariantWithoutMessageRule(t *testing.T) {
	src := "invariant(x);\ninvariant(x, 'msg');\nfoo.invariant(x);\ninvariant();\n"
	findings := byRule(check(t, New(testConfig(nil)), "a.js", src), "no-invariant-without-message")
	require.Len(t, findings, 1)
	assert.Equal(t, "invariant(x)", src[findings[0].Span.Start:findings[0].Span.End])
	assert.Equal(t, "invariant() must have an error message", findings[0].Message)
}

func TestNoJSXAndAndRule(t *testing.T) {
	engine := New(testConfig(nil))

	t.Run("child expression is fixed", func(t *testing.T) {
		src := "const el = <div>{ready && <Spinner />}</div>;\n"
		findings := byRule(check(t, engine, "a.jsx", src), "no-jsx-andand")
		require.Len(t, findings, 1)
		assert.Equal(t, "Do not use `condition && <Component>` in JSX", findings[0].Message)
		require.NotNil(t, findings[0].Fix)

		out, err := sdk.ApplyEdits([]byte(src), findings[0].Fix.Edits)
		require.NoError(t, err)
		assert.Equal(t, "const el = <div>{ready ? <Spinner /> : null}</div>;\n", string(out))
	})

	t.Run("attribute value is ignored", func(t *testing.T) {
		src := "const el = <Foo bar={x && y} />;\n"
		assert.Empty(t, byRule(check(t, engine, "a.jsx", src), "no-jsx-andand"))
	})

	t.Run("other operators are ignored", func(t *testing.T) {
		src := "const el = <div>{a || <B />}{c ? <D /> : null}</div>;\n"
		assert.Empty(t, byRule(check(t, engine, "a.jsx", src), "no-jsx-andand"))
	})
}

func TestImportRules(t *testing.T) {
	src := "import * as React from 'react';\nimport { a } from 'b';\nconst c = require('c');\n"
	engine := New(testConfig(map[string]RuleConfig{
		"no-imports":            {Enabled: true},
		"no-namespaced-imports": {Enabled: true},
	}))
	findings := check(t, engine, "a.js", src)

	imports := byRule(findings, "no-imports")
	assert.Len(t, imports, 2)

	namespaced := byRule(findings, "no-namespaced-imports")
	require.Len(t, namespaced, 1)
	assert.Equal(t, "import * as React from 'react';", src[namespaced[0].Span.Start:namespaced[0].Span.End])
	assert.Equal(t, imports[0].Span, namespaced[0].Span, "anchored at the enclosing declaration")
}

func TestNoOverdueTodoRule(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"no date", "// TODO(alice): clean up\nx();\n", 0},
		{"past date", "// TODO(alice, 2000-01-01): clean up\nx();\n", 1},
		{"fixme past date", "x(); /* FIXME(bob, 2023-12): remove */\n", 1},
		{"future date", "// TODO(2099-12-31): later\n", 0},
		{"same day later time", "// TODO(2024-03-15): today\n", 1},
		{"tomorrow", "// TODO(2024-03-16): tomorrow\n", 0},
		{"missing colon", "// TODO(2000-01-01) no colon\n", 0},
		{"one finding per comment", "// TODO(2000): a TODO(2001): b\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := byRule(check(t, New(testConfig(nil)), "a.js", tt.content), "no-overdue-todo")
			assert.Len(t, findings, tt.want)
			for _, f := range findings {
				assert.Nil(t, f.Fix)
				assert.True(t, strings.HasPrefix(tt.content[f.Span.Start:], "/"), "anchored at the comment")
			}
		})
	}
}

func TestDeadlineParser(t *testing.T) {
	parser := NewDeadlineParser(DefaultTodoMarkers)
	tests := []struct {
		text   string
		marker string
		want   string
	}{
		{" TODO(2020): x", "TODO", "2020-01-01"},
		{" TODO(alice, 2020-06): x", "TODO", "2020-06-01"},
		{" FIXME(2020-6-9): x", "FIXME", "2020-06-09"},
		{" TODO(2020-00-00): zero month and day become 1", "TODO", "2020-01-01"},
		{" TODO(a): x FIXME(2021-02-03): y", "FIXME", "2021-02-03"},
		{" TODO(alice): x", "", ""},
		{" TODO(2020-01-01) x", "", ""},
		{" TODO: 2020-01-01", "", ""},
		{" NOTE(2020-01-01): x", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d, ok := parser.Parse(tt.text, time.UTC)
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.marker, d.Marker)
			assert.Equal(t, tt.want, d.Date.Format(time.DateOnly))
		})
	}

	custom := NewDeadlineParser([]string{"HACK"})
	_, ok := custom.Parse(" TODO(2020): x", time.UTC)
	assert.False(t, ok)
	_, ok = custom.Parse(" HACK(2020): x", time.UTC)
	assert.True(t, ok)
}

func TestEngine_BadFixIsAnError(t *testing.T) {
	engine := New(testConfig(nil))
	require.NoError(t, engine.Register(sdk.KindRule("bad-fix", "overlapping edits",
		sdk.Meta{DefaultEnabled: true, DefaultSeverity: sdk.SeverityInfo},
		syntax.KindCallExpression, func(ctx *sdk.Context, n syntax.Node) {
			ctx.Report(sdk.Descriptor{Node: n, Message: "bad", Fix: func(f *sdk.Fixer) []sdk.Edit {
				return []sdk.Edit{f.ReplaceText(n, "a"), f.ReplaceText(n, "b")}
			}})
		})))

	_, err := engine.CheckSource(context.Background(), "a.js", []byte("f();\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, sdk.ErrOverlappingEdits)
	assert.Contains(t, err.Error(), "rule bad-fix")
}

func TestEngine_FindingsSorted(t *testing.T) {
	src := "// TODO(2000): late\nf(...a);\nx = 'k' in o;\n"
	findings := check(t, New(testConfig(nil)), "a.js", src)
	require.Len(t, findings, 3)
	for i := 1; i < len(findings); i++ {
		assert.LessOrEqual(t, findings[i-1].Span.Start, findings[i].Span.Start)
	}
	assert.Equal(t, "no-overdue-todo", findings[0].Rule)
	assert.Equal(t, 1, findings[0].Location.Start.Line)
	assert.Equal(t, 3, findings[2].Location.Start.Line)
}
