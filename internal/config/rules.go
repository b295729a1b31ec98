package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/santosr2/esguard/pkg/sdk"
)

// PolicyRulePrefix marks rule names produced by Rego policies. They are
// only known once the policies run, so ValidateRules does not check them.
const PolicyRulePrefix = "policy."

// IsEnabled resolves Enabled against the rule default.
func (r RuleConfig) IsEnabled(def bool) bool {
	if r.Enabled == nil {
		return def
	}
	return *r.Enabled
}

// RuleSettings returns the rule settings with overrides applied. An
// override replaces only the fields it sets.
func (c *Config) RuleSettings() map[string]RuleConfig {
	out := make(map[string]RuleConfig, len(c.Rules)+len(c.Overrides.Rules))
	maps.Copy(out, c.Rules)
	for name, o := range c.Overrides.Rules {
		r := out[name]
		if o.Enabled != nil {
			r.Enabled = o.Enabled
		}
		if o.Severity != "" {
			r.Severity = o.Severity
		}
		if len(o.Options) > 0 {
			merged := make(map[string]interface{}, len(r.Options)+len(o.Options))
			maps.Copy(merged, r.Options)
			maps.Copy(merged, o.Options)
			r.Options = merged
		}
		out[name] = r
	}
	return out
}

// ValidateRules checks that every configured rule exists and that its
// options match the rule's schema.
func (c *Config) ValidateRules(rules []sdk.Rule) error {
	known := make(map[string]sdk.Rule, len(rules))
	for _, r := range rules {
		known[r.Name()] = r
	}

	settings := c.RuleSettings()
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(settings)) {
		if strings.HasPrefix(name, PolicyRulePrefix) {
			continue
		}
		rule, ok := known[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w %q", ErrUnknownRule, name))
			continue
		}
		if _, err := rule.Meta().Schema.Resolve(settings[name].Options); err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
