package lint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santosr2/esguard/internal/parse"
	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

func TestEngine_FixSource(t *testing.T) {
	src := "try { a(); } catch { b(); }\nconst el = <div>{x && <A />}</div>;\nif ('k' in o) {}\n"
	res, err := New(testConfig(nil)).FixSource(context.Background(), "a.jsx", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "try { a(); } catch (_error) { b(); }\nconst el = <div>{x ? <A /> : null}</div>;\nif ('k' in o) {}\n", string(res.Output))
	assert.True(t, res.Changed())
	assert.Equal(t, 1, res.Passes)
	assert.Len(t, res.Applied, 2)
	require.Len(t, res.Remaining, 1, "unfixable findings remain")
	assert.Equal(t, "no-in-expression", res.Remaining[0].Rule)
}

func renameCallee(name, from, to string) sdk.Rule {
	return sdk.KindRule(name, "rename "+from, sdk.Meta{DefaultEnabled: true, DefaultSeverity: sdk.SeverityInfo, Fixable: true},
		syntax.KindCallExpression, func(ctx *sdk.Context, n syntax.Node) {
			call := n.(*syntax.CallExpression)
			if !syntax.IsIdentifier(call.Callee, from) {
				return
			}
			ctx.Report(sdk.Descriptor{Node: call, Message: "rename", Fix: func(f *sdk.Fixer) []sdk.Edit {
				return []sdk.Edit{f.ReplaceText(call.Callee, to)}
			}})
		})
}

func TestEngine_FixSource_MultiplePasses(t *testing.T) {
	engine := New(testConfig(nil))
	require.NoError(t, engine.Register(renameCallee("f-to-g", "f", "g")))
	require.NoError(t, engine.Register(renameCallee("g-to-h", "g", "h")))

	res, err := engine.FixSource(context.Background(), "a.js", []byte("f(x);\n"))
	require.NoError(t, err)
	assert.Equal(t, "h(x);\n", string(res.Output))
	assert.Equal(t, 2, res.Passes)
	assert.Empty(t, res.Remaining)
}

func TestEngine_FixSource_Bounded(t *testing.T) {
	engine := New(testConfig(nil))
	require.NoError(t, engine.Register(sdk.KindRule("always", "never converges",
		sdk.Meta{DefaultEnabled: true, DefaultSeverity: sdk.SeverityInfo},
		syntax.KindProgram, func(ctx *sdk.Context, n syntax.Node) {
			ctx.Report(sdk.Descriptor{Node: n, Message: "again", Fix: func(f *sdk.Fixer) []sdk.Edit {
				return []sdk.Edit{f.InsertTextBeforeRange(syntax.Span{}, ";")}
			}})
		})))

	res, err := engine.FixSource(context.Background(), "a.js", []byte("x;\n"))
	require.NoError(t, err)
	assert.Equal(t, MaxFixPasses, res.Passes)
	assert.Len(t, res.Remaining, 1)
}

// babelAmbiguous is Babel output for "type A = { a: T };\n".
const babelAmbiguous = `{
  "type": "File", "start": 0, "end": 19,
  "program": {
    "type": "Program", "start": 0, "end": 19,
    "body": [{
      "type": "TypeAlias", "start": 0, "end": 18,
      "id": {"type": "Identifier", "start": 5, "end": 6, "name": "A"},
      "right": {
        "type": "ObjectTypeAnnotation", "start": 9, "end": 17,
        "exact": false, "inexact": false,
        "properties": [{
          "type": "ObjectTypeProperty", "start": 11, "end": 15,
          "key": {"type": "Identifier", "start": 11, "end": 12, "name": "a"},
          "value": {"type": "GenericTypeAnnotation", "start": 14, "end": 15,
            "id": {"type": "Identifier", "start": 14, "end": 15, "name": "T"}}
        }],
        "indexers": [], "callProperties": [], "internalSlots": []
      }
    }]
  },
  "comments": []
}`

func TestEngine_Fix_ESTreeSinglePass(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "types.js")
	require.NoError(t, os.WriteFile(file, []byte("type A = { a: T };\n"), 0644))
	require.NoError(t, os.WriteFile(file+parse.DefaultASTSuffix, []byte(babelAmbiguous), 0644))

	config := testConfig(map[string]RuleConfig{
		"flow-no-ambiguous-object-exactness": {Enabled: true, Options: map[string]interface{}{"exactByDefault": true}},
	})
	config.Parser = "auto"
	engine := New(config)

	findings, err := engine.Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "flow-no-ambiguous-object-exactness", findings[0].Rule)

	results, err := engine.Fix(context.Background(), []string{file}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Passes)
	assert.Empty(t, results[0].Remaining)

	written, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "type A = {| a: T |};\n", string(written))
}

func TestEngine_Fix_DryRun(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.js")
	src := "try { a(); } catch { b(); }\n"
	require.NoError(t, os.WriteFile(file, []byte(src), 0644))

	results, err := New(testConfig(nil)).Fix(context.Background(), []string{file}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Changed())

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, src, string(content), "dry run must not write")
}
