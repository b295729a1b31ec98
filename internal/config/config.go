package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} or ${VAR:-default} patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// DefaultFiles are the config file names Find looks for, in order.
var DefaultFiles = []string{".esguard.yaml", ".esguard.yml", ".esguard.toml"}

// ErrUnknownRule is returned for configuration that names a rule no engine
// provides.
var ErrUnknownRule = errors.New("unknown rule")

// Config represents the complete esguard configuration
type Config struct {
	Version  int                `yaml:"version" toml:"version"`
	Imports  []string           `yaml:"imports,omitempty" toml:"imports,omitempty"`
	Engines  Engines            `yaml:"engines" toml:"engines"`
	Profiles map[string]Profile `yaml:"profiles,omitempty" toml:"profiles,omitempty"`

	// Rule settings keyed by rule name
	Rules map[string]RuleConfig `yaml:"rules,omitempty" toml:"rules,omitempty"`

	// Global settings
	SeverityThreshold string `yaml:"severity_threshold,omitempty" toml:"severity_threshold,omitempty"`
	FailFast          bool   `yaml:"fail_fast,omitempty" toml:"fail_fast,omitempty"`
	Parallel          bool   `yaml:"parallel" toml:"parallel"`
	Jobs              int    `yaml:"jobs,omitempty" toml:"jobs,omitempty"`

	// Parser settings
	Parser    string `yaml:"parser,omitempty" toml:"parser,omitempty"`
	ASTSuffix string `yaml:"ast_suffix,omitempty" toml:"ast_suffix,omitempty"`

	// Overrides
	Overrides OverridesConfig `yaml:"overrides,omitempty" toml:"overrides,omitempty"`

	// Policy sources
	Policy PolicyConfig `yaml:"policy,omitempty" toml:"policy,omitempty"`

	// Plugin settings
	Plugins PluginsConfig `yaml:"plugins,omitempty" toml:"plugins,omitempty"`
}

// Engines configuration for each engine
type Engines struct {
	Lint   EngineConfig `yaml:"lint" toml:"lint"`
	Policy EngineConfig `yaml:"policy" toml:"policy"`
}

// EngineConfig represents configuration for a single engine
type EngineConfig struct {
	Enabled bool                   `yaml:"enabled" toml:"enabled"`
	Config  map[string]interface{} `yaml:"config,omitempty" toml:"config,omitempty"`
}

// Profile represents a configuration profile
type Profile struct {
	Name            string          `yaml:"profile" toml:"profile"`
	Description     string          `yaml:"description" toml:"description"`
	Inherits        string          `yaml:"inherits,omitempty" toml:"inherits,omitempty"`
	Engines         Engines         `yaml:"engines" toml:"engines"`
	DisabledEngines []string        `yaml:"disabled_engines,omitempty" toml:"disabled_engines,omitempty"` // Explicitly disable inherited engines
	Overrides       OverridesConfig `yaml:"overrides,omitempty" toml:"overrides,omitempty"`
}

// OverridesConfig allows overriding specific settings
type OverridesConfig struct {
	Rules map[string]RuleConfig `yaml:"rules,omitempty" toml:"rules,omitempty"`
}

// RuleConfig represents configuration for a single rule. A nil Enabled
// keeps the rule's default.
type RuleConfig struct {
	Enabled  *bool                  `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Severity string                 `yaml:"severity,omitempty" toml:"severity,omitempty"`
	Options  map[string]interface{} `yaml:"options,omitempty" toml:"options,omitempty"`
}

// PolicyConfig lists the Rego sources for the policy engine
type PolicyConfig struct {
	Dirs      []string `yaml:"dirs,omitempty" toml:"dirs,omitempty"`
	Files     []string `yaml:"files,omitempty" toml:"files,omitempty"`
	DataFiles []string `yaml:"data,omitempty" toml:"data,omitempty"`
}

// PluginsConfig represents plugin settings
type PluginsConfig struct {
	Enabled     bool     `yaml:"enabled" toml:"enabled"`
	Directories []string `yaml:"directories,omitempty" toml:"directories,omitempty"`
}

// Find returns the first default config file present in dir, or "".
func Find(dir string) string {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load loads the configuration from the specified path. An empty path
// looks for a default config file in the working directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Find(".")
	}
	if path == "" {
		return DefaultConfig(), nil
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	cfg := DefaultConfig()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}

	// Load imports if specified
	if len(cfg.Imports) > 0 {
		if err := cfg.loadImports(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("loading imports: %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// decodeFile reads path, expands environment variables and decodes it into
// cfg as TOML or YAML depending on the extension.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	// Expand environment variables in the config
	expanded, err := expandEnvVars(string(data))
	if err != nil {
		return fmt.Errorf("expanding %s: %w", path, err)
	}

	if isTOML(path) {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// expandEnvVars expands environment variables in the config content.
// Supports ${VAR}, ${VAR:-default} and ${VAR:?error message} syntax.
func expandEnvVars(content string) (string, error) {
	var errs []error
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		// Extract the variable expression (without ${ and })
		expr := match[2 : len(match)-1]

		// Check for default value syntax: VAR:-default
		if idx := strings.Index(expr, ":-"); idx != -1 {
			if val := os.Getenv(expr[:idx]); val != "" {
				return val
			}
			return expr[idx+2:]
		}

		// Check for required syntax: VAR:?error message
		if idx := strings.Index(expr, ":?"); idx != -1 {
			varName := expr[:idx]
			if val := os.Getenv(varName); val != "" {
				return val
			}
			msg := expr[idx+2:]
			if msg == "" {
				msg = "required but not set"
			}
			errs = append(errs, fmt.Errorf("%s: %s", varName, msg))
			return ""
		}

		// Simple variable: ${VAR}
		return os.Getenv(expr)
	})
	return out, errors.Join(errs...)
}

// loadImports loads and merges imported configurations
func (c *Config) loadImports(baseDir string) error {
	for _, pattern := range c.Imports {
		// Convert relative pattern to absolute
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(baseDir, pattern)
		}

		// Expand glob pattern
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid import pattern %s: %w", pattern, err)
		}

		// Load each matched file
		for _, match := range matches {
			partial, err := loadPartialConfig(match)
			if err != nil {
				return fmt.Errorf("loading %s: %w", match, err)
			}

			// Merge partial config into main config
			c.merge(partial)
		}
	}

	return nil
}

// loadPartialConfig loads a partial configuration file
func loadPartialConfig(path string) (*Config, error) {
	var cfg Config
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge merges another config into this one
func (c *Config) merge(other *Config) {
	// Merge rules
	if c.Rules == nil {
		c.Rules = make(map[string]RuleConfig)
	}
	for k, v := range other.Rules {
		c.Rules[k] = v
	}

	// Merge override rules
	if c.Overrides.Rules == nil {
		c.Overrides.Rules = make(map[string]RuleConfig)
	}
	for k, v := range other.Overrides.Rules {
		c.Overrides.Rules[k] = v
	}

	// Merge profiles
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	for k, v := range other.Profiles {
		c.Profiles[k] = v
	}

	// Policy sources accumulate
	c.Policy.Dirs = append(c.Policy.Dirs, other.Policy.Dirs...)
	c.Policy.Files = append(c.Policy.Files, other.Policy.Files...)
	c.Policy.DataFiles = append(c.Policy.DataFiles, other.Policy.DataFiles...)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Version == 0 {
		c.Version = 1
	}

	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", c.Version)
	}

	// Validate severity threshold
	if c.SeverityThreshold != "" && !validSeverities[c.SeverityThreshold] {
		return fmt.Errorf("invalid severity_threshold: %s (must be error, warning, or info)", c.SeverityThreshold)
	}

	switch c.Parser {
	case "", "auto", "treesitter", "tree-sitter", "estree":
	default:
		return fmt.Errorf("invalid parser: %s (must be auto, treesitter, or estree)", c.Parser)
	}

	if c.Jobs < 0 {
		return fmt.Errorf("invalid jobs: %d (must not be negative)", c.Jobs)
	}

	// Validate profiles
	if err := c.validateProfiles(); err != nil {
		return fmt.Errorf("profile validation: %w", err)
	}

	// Validate rule settings
	if err := c.validateRuleSettings(); err != nil {
		return fmt.Errorf("rules validation: %w", err)
	}

	// Validate plugin configuration
	if err := c.validatePlugins(); err != nil {
		return fmt.Errorf("plugins validation: %w", err)
	}

	return nil
}

var validSeverities = map[string]bool{
	"error":   true,
	"warning": true,
	"info":    true,
}

// validateProfiles validates profile configurations
func (c *Config) validateProfiles() error {
	// Check for circular inheritance
	for name, profile := range c.Profiles {
		if profile.Inherits != "" {
			if err := c.checkCircularInheritance(name, make(map[string]bool)); err != nil {
				return err
			}

			// Check that inherited profile exists
			if _, exists := c.Profiles[profile.Inherits]; !exists {
				return fmt.Errorf("profile %q inherits from non-existent profile %q", name, profile.Inherits)
			}
		}
	}

	return nil
}

// checkCircularInheritance checks for circular profile inheritance
func (c *Config) checkCircularInheritance(name string, visited map[string]bool) error {
	if visited[name] {
		return fmt.Errorf("circular inheritance detected involving profile %q", name)
	}

	visited[name] = true

	profile, exists := c.Profiles[name]
	if !exists {
		return nil
	}

	if profile.Inherits != "" {
		return c.checkCircularInheritance(profile.Inherits, visited)
	}

	return nil
}

// validateRuleSettings checks rule names and severities. Rule options are
// checked against the rule schemas by ValidateRules.
func (c *Config) validateRuleSettings() error {
	check := func(kind string, rules map[string]RuleConfig) error {
		for name, rule := range rules {
			if name == "" {
				return fmt.Errorf("%s name cannot be empty", kind)
			}
			if rule.Severity != "" && !validSeverities[rule.Severity] {
				return fmt.Errorf("%s %q has invalid severity: %s", kind, name, rule.Severity)
			}
		}
		return nil
	}

	if err := check("rule", c.Rules); err != nil {
		return err
	}
	// Also validate override rules
	return check("override rule", c.Overrides.Rules)
}

// validatePlugins validates plugin configuration
func (c *Config) validatePlugins() error {
	if !c.Plugins.Enabled {
		return nil
	}

	for _, dir := range c.Plugins.Directories {
		if dir == "" {
			return fmt.Errorf("plugin directory cannot be empty")
		}
	}

	return nil
}

// GetProfile returns a profile with all inherited settings resolved
func (c *Config) GetProfile(name string) (*Profile, error) {
	profile, exists := c.Profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile %q not found", name)
	}

	// If no inheritance, return as-is
	if profile.Inherits == "" {
		return &profile, nil
	}

	// Resolve inheritance chain
	return c.resolveProfileInheritance(name, make(map[string]bool))
}

// resolveProfileInheritance resolves a profile with all inherited settings
func (c *Config) resolveProfileInheritance(name string, visited map[string]bool) (*Profile, error) {
	if visited[name] {
		return nil, fmt.Errorf("circular inheritance detected involving profile %q", name)
	}
	visited[name] = true

	profile, exists := c.Profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile %q not found", name)
	}

	// If no inheritance, return a copy
	if profile.Inherits == "" {
		result := profile // Copy
		return &result, nil
	}

	// Get parent profile first
	parent, err := c.resolveProfileInheritance(profile.Inherits, visited)
	if err != nil {
		return nil, err
	}

	// Merge: child settings override parent
	return c.mergeProfiles(parent, &profile), nil
}

// mergeProfiles merges a child profile into a parent, with child taking precedence
// Note: child profiles can only add/configure engines. To disable an
// engine, use disabled_engines in the profile.
func (c *Config) mergeProfiles(parent, child *Profile) *Profile {
	result := &Profile{
		Name:        child.Name,
		Description: child.Description,
		Inherits:    child.Inherits,
	}

	// If child has a description, use it; otherwise inherit
	if result.Description == "" && parent != nil {
		result.Description = parent.Description
	}

	// Merge engines - start with parent engines
	if parent != nil {
		result.Engines = parent.Engines
	}

	// Only override parent if child has something explicit (Enabled=true or Config present)
	if child.Engines.Lint.Enabled || len(child.Engines.Lint.Config) > 0 {
		result.Engines.Lint = child.Engines.Lint
	}
	if child.Engines.Policy.Enabled || len(child.Engines.Policy.Config) > 0 {
		result.Engines.Policy = child.Engines.Policy
	}

	// Apply disabled_engines from child (explicit disables)
	for _, engineName := range child.DisabledEngines {
		switch engineName {
		case "lint":
			result.Engines.Lint.Enabled = false
		case "policy":
			result.Engines.Policy.Enabled = false
		}
	}

	// Merge overrides - child overrides win
	result.Overrides.Rules = make(map[string]RuleConfig)
	if parent != nil {
		for k, v := range parent.Overrides.Rules {
			result.Overrides.Rules[k] = v
		}
	}
	for k, v := range child.Overrides.Rules {
		result.Overrides.Rules[k] = v
	}

	return result
}

// ApplyProfile applies a profile's settings to the config
func (c *Config) ApplyProfile(name string) error {
	profile, err := c.GetProfile(name)
	if err != nil {
		return err
	}

	// Apply engine settings from profile
	c.Engines = profile.Engines

	// Merge overrides
	if c.Overrides.Rules == nil {
		c.Overrides.Rules = make(map[string]RuleConfig)
	}
	for k, v := range profile.Overrides.Rules {
		c.Overrides.Rules[k] = v
	}

	return nil
}

// Write encodes the configuration as "yaml" or "toml".
func (c *Config) Write(w io.Writer, format string) error {
	switch format {
	case "", "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(c); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown config format %q (must be yaml or toml)", format)
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Engines: Engines{
			Lint:   EngineConfig{Enabled: true},
			Policy: EngineConfig{Enabled: false}, // Opt-in
		},
		SeverityThreshold: "warning",
		FailFast:          false,
		Parallel:          true,
		Parser:            "auto",
	}
}
