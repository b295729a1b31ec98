// Package runner builds the engines described by a configuration and runs
// them over a set of files. The CLI and the language server share it.
package runner

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/santosr2/esguard/internal/config"
	"github.com/santosr2/esguard/internal/engines/lint"
	"github.com/santosr2/esguard/internal/engines/policy"
	"github.com/santosr2/esguard/internal/plugins"
	"github.com/santosr2/esguard/pkg/sdk"
)

// Options tune a Runner beyond what the configuration file holds.
type Options struct {
	Logger *log.Logger
	Clock  func() time.Time
}

// Runner owns the engines for one configuration.
type Runner struct {
	cfg     *config.Config
	lint    *lint.Engine
	policy  *policy.Engine
	plugins *plugins.Manager
}

// New builds the lint engine, the policy engine when enabled, and loads
// plugins when enabled. Configured rule names and options are validated
// against the registered rules.
func New(cfg *config.Config, opts Options) (*Runner, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	r := &Runner{cfg: cfg, plugins: plugins.NewManager(cfg.Plugins.Directories)}
	if cfg.Plugins.Enabled {
		if err := r.plugins.LoadAll(); err != nil {
			return nil, err
		}
	}

	lintConfig := &lint.Config{
		Rules:     make(map[string]lint.RuleConfig),
		Parser:    cfg.Parser,
		ASTSuffix: cfg.ASTSuffix,
		Parallel:  cfg.Parallel,
		Jobs:      cfg.Jobs,
		Logger:    opts.Logger,
		Clock:     opts.Clock,
	}
	r.lint = lint.New(lintConfig)
	for _, rule := range r.plugins.Rules() {
		if err := r.lint.Register(rule); err != nil {
			return nil, fmt.Errorf("registering plugin rule: %w", err)
		}
	}

	if err := cfg.ValidateRules(r.lint.Rules()); err != nil {
		return nil, err
	}

	settings := cfg.RuleSettings()
	for _, rule := range r.lint.Rules() {
		rc, ok := settings[rule.Name()]
		if !ok {
			continue
		}
		lintConfig.Rules[rule.Name()] = lint.RuleConfig{
			Enabled:  rc.IsEnabled(rule.Meta().DefaultEnabled),
			Severity: rc.Severity,
			Options:  rc.Options,
		}
	}

	if cfg.Engines.Policy.Enabled {
		policyRules := make(map[string]policy.RuleConfig)
		for name, rc := range settings {
			if strings.HasPrefix(name, config.PolicyRulePrefix) {
				policyRules[name] = policy.RuleConfig{Enabled: rc.IsEnabled(true), Severity: rc.Severity}
			}
		}
		r.policy = policy.New(&policy.Config{
			PolicyDirs:  cfg.Policy.Dirs,
			PolicyFiles: cfg.Policy.Files,
			DataFiles:   cfg.Policy.DataFiles,
			Parser:      cfg.Parser,
			ASTSuffix:   cfg.ASTSuffix,
			Rules:       policyRules,
		})
	}

	return r, nil
}

// Config returns the configuration the runner was built from.
func (r *Runner) Config() *config.Config { return r.cfg }

// Lint returns the lint engine.
func (r *Runner) Lint() *lint.Engine { return r.lint }

// Policy returns the policy engine, or nil when it is disabled.
func (r *Runner) Policy() *policy.Engine { return r.policy }

// Plugins returns the plugin manager.
func (r *Runner) Plugins() *plugins.Manager { return r.plugins }

// Rules returns every lint rule, built-in and plugin.
func (r *Runner) Rules() []sdk.Rule { return r.lint.Rules() }

// Run runs every enabled engine over files. With fail_fast set, engines
// after the first one reporting an error are skipped.
func (r *Runner) Run(ctx context.Context, files []string) ([]sdk.Finding, error) {
	type engine interface {
		Name() string
		Run(ctx context.Context, files []string) ([]sdk.Finding, error)
	}

	var engines []engine
	if r.cfg.Engines.Lint.Enabled {
		engines = append(engines, r.lint)
	}
	if r.policy != nil {
		engines = append(engines, r.policy)
	}
	for _, e := range r.plugins.Engines() {
		engines = append(engines, e)
	}

	var all []sdk.Finding
	for _, e := range engines {
		findings, err := e.Run(ctx, files)
		if err != nil {
			return nil, fmt.Errorf("%s engine: %w", e.Name(), err)
		}
		all = append(all, findings...)
		if r.cfg.FailFast && hasErrors(findings) {
			break
		}
	}

	SortFindings(all)
	return all, nil
}

// CheckSource runs the lint engine, and the policy engine when enabled, on
// in-memory content.
func (r *Runner) CheckSource(ctx context.Context, path string, content []byte) ([]sdk.Finding, error) {
	var all []sdk.Finding
	if r.cfg.Engines.Lint.Enabled {
		findings, err := r.lint.CheckSource(ctx, path, content)
		if err != nil {
			return nil, err
		}
		all = append(all, findings...)
	}
	if r.policy != nil {
		findings, err := r.policy.CheckSource(ctx, path, content)
		if err != nil {
			return nil, err
		}
		all = append(all, findings...)
	}
	SortFindings(all)
	return all, nil
}

func hasErrors(findings []sdk.Finding) bool {
	return slices.ContainsFunc(findings, func(f sdk.Finding) bool {
		return f.Severity == sdk.SeverityError
	})
}

// SortFindings orders findings by file, then position, then rule name.
func SortFindings(findings []sdk.Finding) {
	slices.SortStableFunc(findings, func(a, b sdk.Finding) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Location.Start.Line, b.Location.Start.Line),
			cmp.Compare(a.Location.Start.Column, b.Location.Start.Column),
			cmp.Compare(a.Rule, b.Rule),
		)
	})
}

// FilterBySeverity keeps the findings at or above threshold. An empty
// threshold keeps everything.
func FilterBySeverity(findings []sdk.Finding, threshold string) ([]sdk.Finding, error) {
	if threshold == "" {
		return findings, nil
	}
	floor, err := sdk.ParseSeverity(threshold)
	if err != nil {
		return nil, err
	}
	var kept []sdk.Finding
	for _, f := range findings {
		if f.Severity.Rank() >= floor.Rank() {
			kept = append(kept, f)
		}
	}
	return kept, nil
}
