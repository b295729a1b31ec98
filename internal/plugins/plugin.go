// Package plugins loads esguard extensions built as Go plugins.
//
// A plugin is a .so file exporting two symbols:
//   - PluginMetadata: a *PluginMetadata describing the plugin
//   - New: a constructor returning a RulePlugin, EnginePlugin or
//     FormatterPlugin, according to the metadata type
//
// Rule plugins add rules to the lint engine, engine plugins run after the
// built-in engines, and formatter plugins add output formats.
package plugins

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"plugin"
	"slices"
	"strings"
	"sync"

	"github.com/santosr2/esguard/pkg/sdk"
)

// PluginType represents the type of plugin
type PluginType string

const (
	// PluginTypeRule represents a custom rule plugin
	PluginTypeRule PluginType = "rule"
	// PluginTypeEngine represents a custom engine plugin
	PluginTypeEngine PluginType = "engine"
	// PluginTypeFormatter represents a custom output formatter plugin
	PluginTypeFormatter PluginType = "formatter"
)

// PluginMetadata contains information about a plugin
type PluginMetadata struct {
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Description string     `json:"description"`
	Author      string     `json:"author"`
	Type        PluginType `json:"type"`
	Path        string     `json:"path"`
}

// Plugin represents a loaded plugin
type Plugin struct {
	Metadata PluginMetadata
	Instance interface{}
}

// RulePlugin provides extra lint rules.
type RulePlugin interface {
	GetRules() []sdk.Rule
}

// EnginePlugin is an extra analysis engine run over the same files.
type EnginePlugin interface {
	Name() string
	Run(ctx context.Context, files []string) ([]sdk.Finding, error)
}

// FormatterPlugin is an extra output format, selected by name.
type FormatterPlugin interface {
	Name() string
	Format(findings []sdk.Finding, w io.Writer) error
}

// Manager manages plugin loading and registration
type Manager struct {
	plugins     map[string]*Plugin
	rules       map[string]sdk.Rule
	engines     map[string]EnginePlugin
	formatters  map[string]FormatterPlugin
	mu          sync.RWMutex
	directories []string
}

// NewManager creates a new plugin manager
func NewManager(directories []string) *Manager {
	return &Manager{
		plugins:     make(map[string]*Plugin),
		rules:       make(map[string]sdk.Rule),
		engines:     make(map[string]EnginePlugin),
		formatters:  make(map[string]FormatterPlugin),
		directories: directories,
	}
}

// LoadAll loads all plugins from the configured directories
func (m *Manager) LoadAll() error {
	for _, dir := range m.directories {
		if err := m.loadFromDirectory(dir); err != nil {
			return fmt.Errorf("loading plugins from %s: %w", dir, err)
		}
	}
	return nil
}

func expandHome(dir string) (string, error) {
	if !strings.HasPrefix(dir, "~") {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dir[1:]), nil
}

// loadFromDirectory loads every .so file in dir. A missing directory is
// not an error.
func (m *Manager) loadFromDirectory(dir string) error {
	dir, err := expandHome(dir)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".so") {
			continue
		}
		if err := m.loadGoPlugin(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("loading Go plugin %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// loadGoPlugin loads a Go plugin from a .so file
func (m *Manager) loadGoPlugin(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("opening plugin: %w", err)
	}

	metaSym, err := p.Lookup("PluginMetadata")
	if err != nil {
		return fmt.Errorf("plugin missing PluginMetadata symbol: %w", err)
	}
	metadata, ok := metaSym.(*PluginMetadata)
	if !ok {
		return fmt.Errorf("PluginMetadata has wrong type")
	}
	metadata.Path = path

	newSym, err := p.Lookup("New")
	if err != nil {
		return fmt.Errorf("plugin missing New function: %w", err)
	}

	var instance interface{}
	switch metadata.Type {
	case PluginTypeRule:
		instance, err = construct[RulePlugin](newSym)
	case PluginTypeEngine:
		instance, err = construct[EnginePlugin](newSym)
	case PluginTypeFormatter:
		instance, err = construct[FormatterPlugin](newSym)
	default:
		return fmt.Errorf("unknown plugin type: %s", metadata.Type)
	}
	if err != nil {
		return err
	}

	return m.Add(*metadata, instance)
}

func construct[T any](sym plugin.Symbol) (T, error) {
	newFunc, ok := sym.(func() T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("new function has wrong signature: %T", sym)
	}
	return newFunc(), nil
}

// Add registers a constructed plugin instance under its metadata.
func (m *Manager) Add(metadata PluginMetadata, instance interface{}) error {
	switch p := instance.(type) {
	case RulePlugin:
		for _, rule := range p.GetRules() {
			m.RegisterRule(rule)
		}
	case EnginePlugin:
		m.RegisterEngine(p)
	case FormatterPlugin:
		m.RegisterFormatter(p)
	default:
		return fmt.Errorf("plugin %s: unsupported instance %T", metadata.Name, instance)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins[metadata.Name] = &Plugin{Metadata: metadata, Instance: instance}
	return nil
}

// Rules returns the plugin rules sorted by name.
func (m *Manager) Rules() []sdk.Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]sdk.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		rules = append(rules, r)
	}
	slices.SortFunc(rules, func(a, b sdk.Rule) int { return cmp.Compare(a.Name(), b.Name()) })
	return rules
}

// GetRule returns a specific rule by name
func (m *Manager) GetRule(name string) (sdk.Rule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, ok := m.rules[name]
	return rule, ok
}

// Engines returns the plugin engines sorted by name.
func (m *Manager) Engines() []EnginePlugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	engines := make([]EnginePlugin, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	slices.SortFunc(engines, func(a, b EnginePlugin) int { return cmp.Compare(a.Name(), b.Name()) })
	return engines
}

// GetFormatter returns a specific formatter by name
func (m *Manager) GetFormatter(name string) (FormatterPlugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	formatter, ok := m.formatters[name]
	return formatter, ok
}

// ListPlugins returns all loaded plugins sorted by name
func (m *Manager) ListPlugins() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b *Plugin) int { return cmp.Compare(a.Metadata.Name, b.Metadata.Name) })
	return result
}

// RegisterRule registers a rule programmatically
func (m *Manager) RegisterRule(rule sdk.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.Name()] = rule
}

// RegisterEngine registers an engine programmatically
func (m *Manager) RegisterEngine(engine EnginePlugin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engines[engine.Name()] = engine
}

// RegisterFormatter registers a formatter programmatically
func (m *Manager) RegisterFormatter(formatter FormatterPlugin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formatters[formatter.Name()] = formatter
}
