// Package policy provides custom lint rules written in OPA/Rego.
// Each file is parsed and flattened into a JSON document that policies
// query through data.esguard.deny and data.esguard.warn.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/santosr2/esguard/internal/parse"
	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

const (
	denyQuery = "data.esguard.deny"
	warnQuery = "data.esguard.warn"
)

// Engine represents the policy engine with OPA/Rego support
type Engine struct {
	config   *Config
	frontend parse.Frontend
	initErr  error
}

// Config holds the policy engine configuration
type Config struct {
	PolicyDirs  []string              // Directories containing Rego policy files
	PolicyFiles []string              // Individual policy files
	DataFiles   []string              // JSON or YAML documents loaded under data
	Parser      string                // Frontend name, see parse.New
	ASTSuffix   string                // Suffix of ESTree JSON sidecars
	Rules       map[string]RuleConfig // Keyed by finding rule name, e.g. "policy.no-console"
}

// RuleConfig holds configuration for a single policy rule
type RuleConfig struct {
	Enabled  bool
	Severity string
}

// Policy is one Rego module.
type Policy struct {
	Name   string
	Source string
}

// New creates a new policy engine
func New(config *Config) *Engine {
	if config == nil {
		config = &Config{}
	}
	if config.Rules == nil {
		config.Rules = make(map[string]RuleConfig)
	}

	frontend, err := parse.New(config.Parser, config.ASTSuffix)
	return &Engine{
		config:   config,
		frontend: frontend,
		initErr:  err,
	}
}

// Name returns the engine name
func (e *Engine) Name() string {
	return "policy"
}

type queries struct {
	deny rego.PreparedEvalQuery
	warn rego.PreparedEvalQuery
}

// Run executes policy checks on the given files
func (e *Engine) Run(ctx context.Context, files []string) ([]sdk.Finding, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	policies, err := e.LoadPolicies()
	if err != nil {
		return nil, fmt.Errorf("loading policies: %w", err)
	}

	q, err := e.prepare(ctx, policies)
	if err != nil {
		return nil, err
	}

	allFindings := []sdk.Finding{}
	for _, file := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		findings, err := e.check(ctx, q, file, content)
		if err != nil {
			return nil, err
		}
		allFindings = append(allFindings, findings...)
	}

	return allFindings, nil
}

// CheckSource evaluates the policies against in-memory content.
func (e *Engine) CheckSource(ctx context.Context, path string, content []byte) ([]sdk.Finding, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}
	policies, err := e.LoadPolicies()
	if err != nil {
		return nil, fmt.Errorf("loading policies: %w", err)
	}
	q, err := e.prepare(ctx, policies)
	if err != nil {
		return nil, err
	}
	return e.check(ctx, q, path, content)
}

// check parses one file and evaluates both queries. Files that do not
// parse produce no findings; the lint engine reports them.
func (e *Engine) check(ctx context.Context, q *queries, file string, content []byte) ([]sdk.Finding, error) {
	prog, err := e.frontend.Parse(ctx, file, content)
	var synErr *parse.SyntaxError
	if errors.As(err, &synErr) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}

	lines := syntax.NewLineIndex(content)
	input, err := toInput(BuildDocument(file, content, prog))
	if err != nil {
		return nil, err
	}

	var findings []sdk.Finding
	for _, run := range []struct {
		query    rego.PreparedEvalQuery
		severity sdk.Severity
	}{
		{q.deny, sdk.SeverityError},
		{q.warn, sdk.SeverityWarning},
	} {
		rs, err := run.query.Eval(ctx, rego.EvalInput(input))
		if err != nil {
			return nil, fmt.Errorf("evaluating policies for %s: %w", file, err)
		}
		for _, result := range rs {
			for _, expr := range result.Expressions {
				violations, ok := expr.Value.([]any)
				if !ok {
					continue
				}
				for _, v := range violations {
					finding := e.violationToFinding(v, file, lines, run.severity)
					if e.apply(&finding) {
						findings = append(findings, finding)
					}
				}
			}
		}
	}
	return findings, nil
}

// toInput converts the document to the plain JSON values OPA expects.
func toInput(doc *Document) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding input: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("encoding input: %w", err)
	}
	return input, nil
}

// apply honors per-rule configuration and reports whether the finding is kept.
func (e *Engine) apply(f *sdk.Finding) bool {
	rc, ok := e.config.Rules[f.Rule]
	if !ok {
		return true
	}
	if !rc.Enabled {
		return false
	}
	if rc.Severity != "" {
		f.Severity = parseSeverity(rc.Severity, f.Severity)
	}
	return true
}

func (e *Engine) prepare(ctx context.Context, policies []Policy) (*queries, error) {
	var opts []func(*rego.Rego)
	for _, p := range policies {
		opts = append(opts, rego.Module(p.Name, p.Source))
	}
	if len(e.config.DataFiles) > 0 {
		opts = append(opts, rego.Load(e.config.DataFiles, nil))
	}

	deny, err := rego.New(append(opts, rego.Query(denyQuery))...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compiling policies: %w", err)
	}
	warn, err := rego.New(append(opts, rego.Query(warnQuery))...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compiling policies: %w", err)
	}
	return &queries{deny: deny, warn: warn}, nil
}

// LoadPolicies loads all Rego policy files, falling back to the built-in
// policies when none are configured.
func (e *Engine) LoadPolicies() ([]Policy, error) {
	var policies []Policy

	// Load from policy directories
	for _, dir := range e.config.PolicyDirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(path, ".rego") && !strings.HasSuffix(path, "_test.rego") {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				policies = append(policies, Policy{Name: path, Source: string(content)})
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("walking %s: %w", dir, err)
		}
	}

	// Load individual policy files
	for _, file := range e.config.PolicyFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		policies = append(policies, Policy{Name: file, Source: string(content)})
	}

	// Add built-in policies if no custom policies provided
	if len(policies) == 0 {
		policies = append(policies, BuiltinPolicies()...)
	}

	return policies, nil
}

// violationToFinding converts a policy violation to a Finding. Objects may
// carry msg, rule, severity and either line/column or start/end offsets.
func (e *Engine) violationToFinding(violation any, file string, lines *syntax.LineIndex, severity sdk.Severity) sdk.Finding {
	finding := sdk.Finding{
		Rule:     "policy.violation",
		File:     file,
		Severity: severity,
		Location: lines.Range(file, syntax.Span{}),
	}

	switch v := violation.(type) {
	case string:
		finding.Message = v

	case map[string]any:
		if msg, ok := v["msg"].(string); ok {
			finding.Message = msg
		}
		if rule, ok := v["rule"].(string); ok && rule != "" {
			finding.Rule = "policy." + rule
		}
		if sev, ok := v["severity"].(string); ok {
			finding.Severity = parseSeverity(sev, severity)
		}
		start, hasStart := number(v["start"])
		end, hasEnd := number(v["end"])
		line, hasLine := number(v["line"])
		switch {
		case hasStart:
			if !hasEnd || end < start {
				end = start
			}
			finding.Span = syntax.Span{Start: start, End: end}
			finding.Location = lines.Range(file, finding.Span)
		case hasLine:
			column, ok := number(v["column"])
			if !ok {
				column = 1
			}
			offset := lines.Offset(line, column)
			finding.Span = syntax.Span{Start: offset, End: offset}
			finding.Location = lines.Range(file, finding.Span)
		}
	default:
		finding.Message = fmt.Sprint(v)
	}

	return finding
}

// number accepts the json.Number values rego results carry.
func number(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// parseSeverity converts string severity to sdk.Severity
func parseSeverity(severity string, def sdk.Severity) sdk.Severity {
	if s, err := sdk.ParseSeverity(severity); err == nil {
		return s
	}
	return def
}

// GetInput returns the policy input for a file as indented JSON, for
// policy authors.
func (e *Engine) GetInput(ctx context.Context, file string) ([]byte, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	prog, err := e.frontend.Parse(ctx, file, content)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(BuildDocument(file, content, prog), "", "  ")
}
