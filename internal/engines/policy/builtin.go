package policy

import "fmt"

// BuiltinPolicies returns the policies used when none are configured.
func BuiltinPolicies() []Policy {
	out := make([]Policy, len(builtinPolicies))
	for i, src := range builtinPolicies {
		out[i] = Policy{Name: fmt.Sprintf("builtin/%d.rego", i), Source: src}
	}
	return out
}

// builtinPolicies contains default policies (OPA v1 Rego syntax). Node
// types differ between frontends, so both spellings are matched.
var builtinPolicies = []string{
	// Debugger statements
	`package esguard

import rego.v1

debugger_types := {"debugger_statement", "DebuggerStatement"}

deny contains msg if {
    some node in input.nodes
    debugger_types[node.type]
    msg := {
        "msg": "Unexpected debugger statement",
        "rule": "no-debugger",
        "start": node.start,
        "end": node.end
    }
}
`,
	// eval and friends
	`package esguard

import rego.v1

deny contains msg if {
    some node in input.nodes
    node.kind == "CallExpression"
    node.callee in {"eval", "window.eval", "globalThis.eval"}
    msg := {
        "msg": sprintf("%s() can run arbitrary code", [node.callee]),
        "rule": "no-eval",
        "start": node.start,
        "end": node.end
    }
}
`,
	// Console output
	`package esguard

import rego.v1

warn contains msg if {
    some node in input.nodes
    node.kind == "CallExpression"
    startswith(node.callee, "console.")
    msg := {
        "msg": sprintf("Unexpected %s call", [node.callee]),
        "rule": "no-console",
        "start": node.start,
        "end": node.end
    }
}
`,
}
