// Package lint provides the rule engine for JavaScript, JSX and Flow sources.
// It parses each file once, runs every enabled rule in a single merged
// traversal of the syntax tree, and can apply the fixes rules attach to
// their findings.
package lint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/santosr2/esguard/internal/parse"
	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

// ParseErrorRule is the rule name of findings for files that do not parse.
const ParseErrorRule = "parse-error"

// Engine represents the linting engine
type Engine struct {
	config   *Config
	registry *Registry
	frontend parse.Frontend
	initErr  error
}

// Config holds the linting engine configuration
type Config struct {
	Rules     map[string]RuleConfig // Rule-specific configuration
	Parser    string                // auto, treesitter or estree
	ASTSuffix string                // Suffix of JSON AST files next to sources
	Parallel  bool                  // Check files concurrently
	Jobs      int                   // Concurrency limit, 0 means GOMAXPROCS
	Logger    *log.Logger           // Optional debug logger
	Clock     func() time.Time      // Evaluation time, defaults to time.Now
}

// RuleConfig holds configuration for a single rule
type RuleConfig struct {
	Enabled  bool
	Severity string
	Options  map[string]interface{}
}

// New creates a new linting engine with the built-in rules registered.
func New(config *Config) *Engine {
	if config == nil {
		config = &Config{}
	}
	if config.Rules == nil {
		config.Rules = make(map[string]RuleConfig)
	}

	engine := &Engine{
		config:   config,
		registry: NewRegistry(),
	}
	engine.frontend, engine.initErr = parse.New(config.Parser, config.ASTSuffix)

	// Register built-in rules
	engine.registerRules()

	return engine
}

// Name returns the engine name
func (e *Engine) Name() string {
	return "lint"
}

// Register adds an extra rule, such as one loaded from a plugin.
func (e *Engine) Register(rule sdk.Rule) error {
	return e.registry.Register(rule)
}

// Rules returns all registered rules sorted by name.
func (e *Engine) Rules() []sdk.Rule {
	return e.registry.All()
}

// Frontend returns the parser frontend the engine uses.
func (e *Engine) Frontend() parse.Frontend {
	return e.frontend
}

// Run executes the linting engine on the given files
func (e *Engine) Run(ctx context.Context, files []string) ([]sdk.Finding, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}

	results := make([][]sdk.Finding, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs())

	for i, file := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			findings, err := e.CheckSource(gctx, file, content)
			if err != nil {
				return fmt.Errorf("linting %s: %w", file, err)
			}
			results[i] = findings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var allFindings []sdk.Finding
	for _, r := range results {
		allFindings = append(allFindings, r...)
	}
	return allFindings, nil
}

func (e *Engine) jobs() int {
	if !e.config.Parallel {
		return 1
	}
	if e.config.Jobs > 0 {
		return e.config.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// CheckSource lints in-memory content of path.
func (e *Engine) CheckSource(ctx context.Context, path string, content []byte) ([]sdk.Finding, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}

	prog, err := e.frontend.Parse(ctx, path, content)
	var synErr *parse.SyntaxError
	if errors.As(err, &synErr) {
		lines := syntax.NewLineIndex(content)
		return []sdk.Finding{{
			Rule:     ParseErrorRule,
			Message:  fmt.Sprintf("Failed to parse file: %s", synErr.Message),
			File:     path,
			Location: lines.Range(path, synErr.Span),
			Span:     synErr.Span,
			Severity: sdk.SeverityError,
		}}, nil
	}
	if err != nil {
		return nil, err
	}

	return e.CheckProgram(path, content, prog)
}

// CheckProgram runs the enabled rules over an already parsed tree.
func (e *Engine) CheckProgram(path string, content []byte, prog *syntax.Program) ([]sdk.Finding, error) {
	lines := syntax.NewLineIndex(content)
	dispatch := make(map[syntax.Kind][]func(syntax.Node))
	var contexts []*sdk.Context

	for _, rule := range e.registry.All() {
		ruleConfig := e.getRuleConfig(rule)
		if !ruleConfig.Enabled {
			continue
		}

		options, err := rule.Meta().Schema.Resolve(ruleConfig.Options)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}

		ruleCtx := &sdk.Context{
			Rule:     rule.Name(),
			File:     path,
			Source:   content,
			Lines:    lines,
			Program:  prog,
			Options:  options,
			Severity: parseSeverity(ruleConfig.Severity, rule.Meta().DefaultSeverity),
			Logger:   e.config.Logger,
			Clock:    e.config.Clock,
		}
		contexts = append(contexts, ruleCtx)

		for kind, handler := range rule.Create(ruleCtx) {
			if handler != nil {
				dispatch[kind] = append(dispatch[kind], handler)
			}
		}
	}

	if len(dispatch) > 0 {
		syntax.Inspect(prog, func(n syntax.Node) bool {
			for _, handler := range dispatch[n.Kind()] {
				handler(n)
			}
			return true
		})
		for _, c := range prog.Comments {
			for _, handler := range dispatch[syntax.KindComment] {
				handler(c)
			}
		}
	}

	var findings []sdk.Finding
	for _, ruleCtx := range contexts {
		if err := ruleCtx.Err(); err != nil {
			return nil, fmt.Errorf("rule %s: %w", ruleCtx.Rule, err)
		}
		findings = append(findings, ruleCtx.Findings()...)
	}
	sortFindings(findings)
	return findings, nil
}

// getRuleConfig returns the configuration for a rule, falling back to the
// rule's defaults for anything not configured.
func (e *Engine) getRuleConfig(rule sdk.Rule) RuleConfig {
	meta := rule.Meta()
	if cfg, ok := e.config.Rules[rule.Name()]; ok {
		if cfg.Severity == "" {
			cfg.Severity = string(meta.DefaultSeverity)
		}
		return cfg
	}

	return RuleConfig{
		Enabled:  meta.DefaultEnabled,
		Severity: string(meta.DefaultSeverity),
		Options:  make(map[string]interface{}),
	}
}

// registerRules registers all built-in lint rules
func (e *Engine) registerRules() {
	for _, rule := range []sdk.Rule{
		&FlowNoAmbiguousObjectExactnessRule{},
		&FlowNoShorthandExactObjectRule{},
		&NoImportsRule{},
		&NoNamespacedImportsRule{},
		&NoJSXAndAndRule{},
		&NoCatchWithoutParamRule{},
		&NoArgSpreadRule{},
		&NoInExpressionRule{},
		&MaxLinesRule{},
		&NoInvariantWithoutMessageRule{},
		&NoOverdueTodoRule{},
	} {
		// built-in names are unique
		_ = e.registry.Register(rule)
	}
}

func sortFindings(findings []sdk.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End < b.Span.End
		}
		return a.Rule < b.Rule
	})
}

// parseSeverity converts string severity to sdk.Severity
func parseSeverity(severity string, def sdk.Severity) sdk.Severity {
	switch strings.ToLower(severity) {
	case "error":
		return sdk.SeverityError
	case "warning":
		return sdk.SeverityWarning
	case "info":
		return sdk.SeverityInfo
	default:
		if def == "" {
			return sdk.SeverityWarning
		}
		return def
	}
}
