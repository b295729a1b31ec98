package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func byRule(findings []sdk.Finding) map[string]sdk.Finding {
	out := make(map[string]sdk.Finding, len(findings))
	for _, f := range findings {
		out[f.Rule] = f
	}
	return out
}

func TestEngine_New(t *testing.T) {
	// Test with nil config
	engine := New(nil)
	assert.NotNil(t, engine)
	assert.NotNil(t, engine.config)
	assert.NotNil(t, engine.frontend)
	assert.NoError(t, engine.initErr)

	// Test with config
	engine = New(&Config{PolicyDirs: []string{"./policies"}})
	assert.Equal(t, []string{"./policies"}, engine.config.PolicyDirs)

	engine = New(&Config{Parser: "swc"})
	_, err := engine.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestEngine_Name(t *testing.T) {
	assert.Equal(t, "policy", New(nil).Name())
}

func TestEngine_Run_BuiltinPolicies(t *testing.T) {
	file := writeFile(t, t.TempDir(), "main.js", "debugger;\nconsole.log(x);\neval(code);\nfoo();\n")

	findings, err := New(&Config{Parser: "treesitter"}).Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.Len(t, findings, 3)

	rules := byRule(findings)
	require.Contains(t, rules, "policy.no-debugger")
	assert.Equal(t, sdk.SeverityError, rules["policy.no-debugger"].Severity)
	assert.Equal(t, 1, rules["policy.no-debugger"].Location.Start.Line)

	require.Contains(t, rules, "policy.no-console")
	assert.Equal(t, sdk.SeverityWarning, rules["policy.no-console"].Severity)
	assert.Equal(t, "Unexpected console.log call", rules["policy.no-console"].Message)
	assert.Equal(t, 2, rules["policy.no-console"].Location.Start.Line)

	require.Contains(t, rules, "policy.no-eval")
	assert.Equal(t, "eval() can run arbitrary code", rules["policy.no-eval"].Message)
	assert.Equal(t, 3, rules["policy.no-eval"].Location.Start.Line)
	assert.Equal(t, file, rules["policy.no-eval"].File)
}

func TestEngine_Run_CustomPolicies(t *testing.T) {
	dir := t.TempDir()
	policyDir := filepath.Join(dir, "policies")
	writeFile(t, policyDir, "comments.rego", `package esguard

import rego.v1

deny contains msg if {
    some c in input.comments
    contains(c.text, "HACK")
    msg := {"msg": "HACK comments are not allowed", "rule": "no-hack", "line": c.line, "column": c.column}
}

warn contains sprintf("%d lines", [input.lines]) if {
    input.lines > 2
}
`)
	// Test files next to the policies are ignored.
	writeFile(t, policyDir, "comments_test.rego", "this is not rego")

	file := writeFile(t, dir, "a.js", "const a = 1;\n  // HACK: remove\n")

	findings, err := New(&Config{Parser: "treesitter", PolicyDirs: []string{policyDir}}).
		Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.Len(t, findings, 2)

	rules := byRule(findings)
	hack := rules["policy.no-hack"]
	assert.Equal(t, "HACK comments are not allowed", hack.Message)
	assert.Equal(t, sdk.SeverityError, hack.Severity)
	assert.Equal(t, 2, hack.Location.Start.Line)
	assert.Equal(t, 3, hack.Location.Start.Column)
	assert.Equal(t, 15, hack.Span.Start)

	lines := rules["policy.violation"]
	assert.Equal(t, "3 lines", lines.Message)
	assert.Equal(t, sdk.SeverityWarning, lines.Severity)
}

func TestEngine_Run_RuleConfig(t *testing.T) {
	file := writeFile(t, t.TempDir(), "main.js", "debugger;\nconsole.log(x);\n")

	engine := New(&Config{
		Parser: "treesitter",
		Rules: map[string]RuleConfig{
			"policy.no-debugger": {Enabled: false},
			"policy.no-console":  {Enabled: true, Severity: "error"},
		},
	})
	findings, err := engine.Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "policy.no-console", findings[0].Rule)
	assert.Equal(t, sdk.SeverityError, findings[0].Severity)
}

func TestEngine_Run_DataFiles(t *testing.T) {
	dir := t.TempDir()
	policy := writeFile(t, dir, "banned.rego", `package esguard

import rego.v1

deny contains msg if {
    some node in input.nodes
    node.kind == "CallExpression"
    node.callee in data.banned_callees
    msg := {"msg": sprintf("%s is banned", [node.callee]), "rule": "banned", "severity": "info", "start": node.start, "end": node.end}
}
`)
	data := writeFile(t, dir, "data.json", `{"banned_callees": ["legacyFetch"]}`)
	file := writeFile(t, dir, "a.js", "legacyFetch(url);\nfetch(url);\n")

	findings, err := New(&Config{Parser: "treesitter", PolicyFiles: []string{policy}, DataFiles: []string{data}}).
		Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "legacyFetch is banned", findings[0].Message)
	assert.Equal(t, sdk.SeverityInfo, findings[0].Severity)
	assert.Equal(t, syntax.Span{Start: 0, End: 16}, findings[0].Span)
}

func TestEngine_Run_InvalidPolicy(t *testing.T) {
	dir := t.TempDir()
	policy := writeFile(t, dir, "bad.rego", "package esguard\n\ndeny contains msg if {\n")
	file := writeFile(t, dir, "a.js", "x;\n")

	_, err := New(&Config{Parser: "treesitter", PolicyFiles: []string{policy}}).Run(context.Background(), []string{file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiling policies")
}

func TestEngine_Run_MissingPolicyFile(t *testing.T) {
	file := writeFile(t, t.TempDir(), "a.js", "debugger;\n")

	// A missing policy file is skipped and the built-ins apply.
	findings, err := New(&Config{Parser: "treesitter", PolicyFiles: []string{"/nonexistent.rego"}}).
		Run(context.Background(), []string{file})
	require.NoError(t, err)
	assert.Len(t, findings, 1)
}

func TestEngine_Run_SyntaxError(t *testing.T) {
	file := writeFile(t, t.TempDir(), "a.js", "debugger;\nconst = ;\n")

	findings, err := New(&Config{Parser: "treesitter"}).Run(context.Background(), []string{file})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestEngine_Run_ContextCancellation(t *testing.T) {
	file := writeFile(t, t.TempDir(), "a.js", "debugger;\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := New(&Config{Parser: "treesitter"}).Run(ctx, []string{file})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_CheckSource(t *testing.T) {
	findings, err := New(&Config{Parser: "treesitter"}).CheckSource(context.Background(), "mem.js", []byte("debugger;\n"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "mem.js", findings[0].File)
}

func TestEngine_GetInput(t *testing.T) {
	file := writeFile(t, t.TempDir(), "a.js", "f(a, b);\n")

	data, err := New(&Config{Parser: "treesitter"}).GetInput(context.Background(), file)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, file, doc.File)
	assert.Equal(t, 2, doc.Lines)

	var call *NodeData
	for i := range doc.Nodes {
		if doc.Nodes[i].Kind == "CallExpression" {
			call = &doc.Nodes[i]
		}
	}
	require.NotNil(t, call)
	assert.Equal(t, "f", call.Callee)
	require.NotNil(t, call.Arguments)
	assert.Equal(t, 2, *call.Arguments)
}

func TestBuildDocument(t *testing.T) {
	src := "a && b; // note\n"
	left := &syntax.Identifier{Base: syntax.Base{Range: syntax.Span{Start: 0, End: 1}}, Name: "a"}
	right := &syntax.Identifier{Base: syntax.Base{Range: syntax.Span{Start: 5, End: 6}}, Name: "b"}
	logical := &syntax.LogicalExpression{Base: syntax.Base{Range: syntax.Span{Start: 0, End: 6}}, Operator: "&&", Left: left, Right: right}
	stmt := &syntax.Other{Base: syntax.Base{Range: syntax.Span{Start: 0, End: 7}}, Type: "expression_statement", Nodes: []syntax.Node{logical}}
	comment := &syntax.Comment{Base: syntax.Base{Range: syntax.Span{Start: 8, End: 15}}, Text: " note"}
	prog := &syntax.Program{Base: syntax.Base{Range: syntax.Span{Start: 0, End: len(src)}}, Body: []syntax.Node{stmt}, Comments: []*syntax.Comment{comment}}
	syntax.Link(prog)

	doc := BuildDocument("a.js", []byte(src), prog)
	require.Len(t, doc.Nodes, 5)

	tests := []struct {
		typ      string
		kind     string
		parent   int
		name     string
		operator string
	}{
		{typ: "Program", kind: "Program", parent: -1},
		{typ: "expression_statement", kind: "Other", parent: 0},
		{typ: "LogicalExpression", kind: "LogicalExpression", parent: 1, operator: "&&"},
		{typ: "Identifier", kind: "Identifier", parent: 2, name: "a"},
		{typ: "Identifier", kind: "Identifier", parent: 2, name: "b"},
	}
	for i, tt := range tests {
		n := doc.Nodes[i]
		assert.Equal(t, i, n.ID)
		assert.Equal(t, tt.typ, n.Type)
		assert.Equal(t, tt.kind, n.Kind)
		assert.Equal(t, tt.parent, n.Parent)
		assert.Equal(t, tt.name, n.Name)
		assert.Equal(t, tt.operator, n.Operator)
	}
	assert.Equal(t, 6, doc.Nodes[4].Column)

	require.Len(t, doc.Comments, 1)
	assert.Equal(t, CommentData{Text: " note", Start: 8, End: 15, Line: 1, Column: 9}, doc.Comments[0])
}

func TestViolationToFinding(t *testing.T) {
	src := []byte("one\ntwo\n")
	lines := syntax.NewLineIndex(src)
	engine := New(nil)

	tests := []struct {
		name      string
		violation any
		want      sdk.Finding
	}{
		{
			name:      "string",
			violation: "plain",
			want: sdk.Finding{Rule: "policy.violation", Message: "plain", File: "a.js", Severity: sdk.SeverityWarning,
				Location: lines.Range("a.js", syntax.Span{})},
		},
		{
			name:      "line only",
			violation: map[string]any{"msg": "m", "rule": "r", "line": json.Number("2")},
			want: sdk.Finding{Rule: "policy.r", Message: "m", File: "a.js", Severity: sdk.SeverityWarning,
				Span: syntax.Span{Start: 4, End: 4}, Location: lines.Range("a.js", syntax.Span{Start: 4, End: 4})},
		},
		{
			name:      "offsets and unknown severity",
			violation: map[string]any{"msg": "m", "severity": "fatal", "start": json.Number("4"), "end": json.Number("7")},
			want: sdk.Finding{Rule: "policy.violation", Message: "m", File: "a.js", Severity: sdk.SeverityWarning,
				Span: syntax.Span{Start: 4, End: 7}, Location: lines.Range("a.js", syntax.Span{Start: 4, End: 7})},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.violationToFinding(tt.violation, "a.js", lines, sdk.SeverityWarning))
		})
	}
}
