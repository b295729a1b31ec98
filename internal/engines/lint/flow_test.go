package lint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

// objectType builds an object type node covering the first occurrence of
// text in src.
func objectType(src, text string, props int) *syntax.ObjectType {
	start := strings.Index(src, text)
	obj := &syntax.ObjectType{Base: syntax.Base{Range: syntax.Span{Start: start, End: start + len(text)}}}
	for i := 0; i < props; i++ {
		at := start + 1 + i
		obj.Properties = append(obj.Properties, &syntax.Other{
			Base: syntax.Base{Range: syntax.Span{Start: at, End: at + 1}},
			Type: "ObjectTypeProperty",
		})
	}
	return obj
}

func typeAlias(src string, right syntax.Node) *syntax.Program {
	alias := &syntax.Other{
		Base:  syntax.Base{Range: syntax.Span{Start: 0, End: len(strings.TrimRight(src, "\n"))}},
		Type:  "TypeAlias",
		Nodes: []syntax.Node{right},
	}
	prog := &syntax.Program{Base: syntax.Base{Range: syntax.Span{Start: 0, End: len(src)}}, Body: []syntax.Node{alias}}
	syntax.Link(prog)
	return prog
}

func checkProgram(t *testing.T, engine *Engine, src string, prog *syntax.Program) []sdk.Finding {
	t.Helper()
	findings, err := engine.CheckProgram("a.js", []byte(src), prog)
	require.NoError(t, err)
	return findings
}

func exactnessEngine(options map[string]interface{}) *Engine {
	return New(testConfig(map[string]RuleConfig{
		"flow-no-ambiguous-object-exactness": {Enabled: true, Options: options},
	}))
}

func TestFlowNoAmbiguousObjectExactnessRule_Fix(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		object      string
		props       int
		options     map[string]interface{}
		wantMessage string
		wantFixed   string
	}{
		{
			name:        "exact by default",
			src:         "type A = { a: T };\n",
			object:      "{ a: T }",
			props:       1,
			options:     map[string]interface{}{"exactByDefault": true},
			wantMessage: "Object's exactness is ambiguous, use {| a: T |} or { a: T, ... } instead",
			wantFixed:   "type A = {| a: T |};\n",
		},
		{
			name:        "inexact by default",
			src:         "type A = { a: T };\n",
			object:      "{ a: T }",
			props:       1,
			options:     map[string]interface{}{"exactByDefault": false},
			wantMessage: "Object's exactness is ambiguous, use { a: T, ... } instead",
			wantFixed:   "type A = { a: T, ... };\n",
		},
		{
			name:        "inexact by default without properties",
			src:         "type A = {};\n",
			object:      "{}",
			options:     map[string]interface{}{"exactByDefault": false},
			wantMessage: "Object's exactness is ambiguous, use { a: T, ... } instead",
			wantFixed:   "type A = { ... };\n",
		},
		{
			name:        "inexact by default with trailing comma",
			src:         "type A = { a: T, };\n",
			object:      "{ a: T, }",
			props:       1,
			options:     map[string]interface{}{"exactByDefault": false},
			wantMessage: "Object's exactness is ambiguous, use { a: T, ... } instead",
			wantFixed:   "type A = { a: T, ... };\n",
		},
		{
			name:        "exactness unknown",
			src:         "type A = { a: T };\n",
			object:      "{ a: T }",
			props:       1,
			wantMessage: "Object's exactness is ambiguous, use $Exact<{ a: T }> or {| a: T |} or { a: T, ... } instead",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := objectType(tt.src, tt.object, tt.props)
			findings := checkProgram(t, exactnessEngine(tt.options), tt.src, typeAlias(tt.src, obj))

			require.Len(t, findings, 1)
			f := findings[0]
			assert.Equal(t, "flow-no-ambiguous-object-exactness", f.Rule)
			assert.Equal(t, tt.wantMessage, f.Message)
			assert.Equal(t, obj.Span(), f.Span)

			if tt.wantFixed == "" {
				assert.Nil(t, f.Fix)
				assert.False(t, f.Fixable)
				return
			}
			require.NotNil(t, f.Fix)
			out, err := sdk.ApplyEdits([]byte(tt.src), f.Fix.Edits)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFixed, string(out))
		})
	}
}

func TestFlowNoAmbiguousObjectExactnessRule_Exemptions(t *testing.T) {
	engine := exactnessEngine(map[string]interface{}{"exactByDefault": true})

	t.Run("exact", func(t *testing.T) {
		src := "type A = {| a: T |};\n"
		obj := objectType(src, "{| a: T |}", 1)
		obj.Exact = true
		assert.Empty(t, checkProgram(t, engine, src, typeAlias(src, obj)))
	})

	t.Run("explicitly inexact", func(t *testing.T) {
		src := "type A = { a: T, ... };\n"
		obj := objectType(src, "{ a: T, ... }", 1)
		obj.Inexact = true
		assert.Empty(t, checkProgram(t, engine, src, typeAlias(src, obj)))
	})

	t.Run("indexer", func(t *testing.T) {
		src := "type A = { [k: string]: T };\n"
		obj := objectType(src, "{ [k: string]: T }", 0)
		obj.Indexers = []syntax.Node{&syntax.Other{Base: syntax.Base{Range: syntax.Span{Start: 11, End: 25}}, Type: "ObjectTypeIndexer"}}
		assert.Empty(t, checkProgram(t, engine, src, typeAlias(src, obj)))
	})

	t.Run("interface declaration body", func(t *testing.T) {
		src := "interface I { a: T }\n"
		obj := objectType(src, "{ a: T }", 1)
		decl := &syntax.InterfaceDeclaration{Base: syntax.Base{Range: syntax.Span{Start: 0, End: 20}}, Body: obj}
		prog := &syntax.Program{Base: syntax.Base{Range: syntax.Span{Start: 0, End: len(src)}}, Body: []syntax.Node{decl}}
		syntax.Link(prog)
		assert.Empty(t, checkProgram(t, engine, src, prog))
	})

	t.Run("inline interface type", func(t *testing.T) {
		src := "type A = interface { a: T };\n"
		obj := objectType(src, "{ a: T }", 1)
		it := &syntax.InterfaceType{Base: syntax.Base{Range: syntax.Span{Start: 9, End: 27}}, Body: obj}
		assert.Empty(t, checkProgram(t, engine, src, typeAlias(src, it)))
	})

	exactGeneric := func(src, name string) (*syntax.GenericType, *syntax.ObjectType) {
		obj := objectType(src, "{ a: T }", 1)
		open := strings.Index(src, "<")
		g := &syntax.GenericType{
			Base: syntax.Base{Range: syntax.Span{Start: 9, End: strings.Index(src, ">") + 1}},
			ID:   &syntax.Identifier{Base: syntax.Base{Range: syntax.Span{Start: 9, End: open}}, Name: name},
			TypeArguments: &syntax.TypeParameterInstantiation{
				Base:   syntax.Base{Range: syntax.Span{Start: open, End: strings.Index(src, ">") + 1}},
				Params: []syntax.Node{obj},
			},
		}
		return g, obj
	}

	t.Run("argument of $Exact", func(t *testing.T) {
		src := "type A = $Exact<{ a: T }>;\n"
		g, _ := exactGeneric(src, "$Exact")
		assert.Empty(t, checkProgram(t, engine, src, typeAlias(src, g)))
	})

	t.Run("argument of another generic", func(t *testing.T) {
		src := "type A = $ReadOnly<{ a: T }>;\n"
		g, obj := exactGeneric(src, "$ReadOnly")
		findings := checkProgram(t, engine, src, typeAlias(src, g))
		require.Len(t, findings, 1)
		assert.Equal(t, obj.Span(), findings[0].Span)
	})
}

func TestFlowNoAmbiguousObjectExactnessRule_BadOption(t *testing.T) {
	engine := exactnessEngine(map[string]interface{}{"exactByDefault": "yes"})
	src := "type A = { a: T };\n"
	_, err := engine.CheckProgram("a.js", []byte(src), typeAlias(src, objectType(src, "{ a: T }", 1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactByDefault")
}

func TestFlowNoShorthandExactObjectRule(t *testing.T) {
	engine := New(testConfig(map[string]RuleConfig{"flow-no-shorthand-exact-object": {Enabled: true}}))

	src := "type A = {| a: T |};\n"
	obj := objectType(src, "{| a: T |}", 1)
	obj.Exact = true
	findings := checkProgram(t, engine, src, typeAlias(src, obj))
	findings = byRule(findings, "flow-no-shorthand-exact-object")

	require.Len(t, findings, 1)
	assert.Equal(t, "Please use $Exact<{ foo: Bar }> instead of {| foo: Bar |}", findings[0].Message)
	require.NotNil(t, findings[0].Fix)
	require.Len(t, findings[0].Fix.Edits, 2)

	out, err := sdk.ApplyEdits([]byte(src), findings[0].Fix.Edits)
	require.NoError(t, err)
	assert.Equal(t, "type A = $Exact<{ a: T }>;\n", string(out))

	src = "type B = { b: T };\n"
	assert.Empty(t, byRule(checkProgram(t, engine, src, typeAlias(src, objectType(src, "{ b: T }", 1))), "flow-no-shorthand-exact-object"))
}

func TestFixEdits_AreDisjointAndInBounds(t *testing.T) {
	src := "type A = {||};\n"
	obj := objectType(src, "{||}", 0)
	obj.Exact = true
	engine := New(testConfig(map[string]RuleConfig{"flow-no-shorthand-exact-object": {Enabled: true}}))

	for _, f := range checkProgram(t, engine, src, typeAlias(src, obj)) {
		if f.Fix == nil {
			continue
		}
		for i, e := range f.Fix.Edits {
			assert.True(t, e.Range.Valid(len(src)))
			if i > 0 {
				assert.False(t, f.Fix.Edits[i-1].Range.Overlaps(e.Range))
			}
		}
	}
}
