// Package sdk defines the contract between esguard and its rules: findings,
// rules, the per-file rule context and the fix protocol.
package sdk

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hashicorp/hcl/v2"

	"github.com/santosr2/esguard/pkg/syntax"
)

// Severity represents the severity level of a finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank orders severities from least (info) to most (error) severe. Unknown
// severities rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// ParseSeverity validates a severity name.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(s); sev {
	case SeverityError, SeverityWarning, SeverityInfo:
		return sev, nil
	default:
		return "", fmt.Errorf("invalid severity %q (must be error, warning, or info)", s)
	}
}

// Finding represents a rule violation or issue found in a file
type Finding struct {
	Rule     string      `json:"rule"`
	Message  string      `json:"message"`
	File     string      `json:"file"`
	Location hcl.Range   `json:"location"`
	Span     syntax.Span `json:"span"`
	Severity Severity    `json:"severity"`
	Fixable  bool        `json:"fixable"`
	Fix      *Fix        `json:"fix,omitempty"`
}

// Meta describes a rule's defaults and capabilities.
type Meta struct {
	DefaultSeverity Severity
	DefaultEnabled  bool
	Fixable         bool
	Schema          Schema
	Tags            []string
}

// Handlers maps node kinds to the callbacks a rule wants invoked for them.
// A handler for syntax.KindComment receives each comment of the file.
type Handlers map[syntax.Kind]func(syntax.Node)

// Rule defines the interface that all rules must implement.
//
// Create is called once per file with a fresh Context; rules keep no state
// between files.
type Rule interface {
	Name() string
	Description() string
	Meta() Meta
	Create(ctx *Context) Handlers
}

// Context provides context for rule execution on one file.
type Context struct {
	Rule     string
	File     string
	Source   []byte
	Lines    *syntax.LineIndex
	Program  *syntax.Program
	Options  Options
	Severity Severity
	Logger   *log.Logger
	Clock    func() time.Time

	findings []Finding
	err      error
}

// Now returns the evaluation time of the current pass.
func (c *Context) Now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// Logf logs through the context logger when one is set.
func (c *Context) Logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(c.Rule+": "+format, args...)
	}
}

// Descriptor is the argument of Context.Report.
//
// The anchor is Node, or Span when Node is nil. Fix, when set, is called
// immediately with a Fixer and returns the edits of the fix; returning no
// edits reports the problem without a fix.
type Descriptor struct {
	Node    syntax.Node
	Span    syntax.Span
	Message string
	Fix     func(f *Fixer) []Edit
}

// Report records one finding for the current rule and file.
func (c *Context) Report(d Descriptor) {
	anchor := d.Span
	if d.Node != nil {
		anchor = d.Node.Span()
	}
	finding := Finding{
		Rule:     c.Rule,
		Message:  d.Message,
		File:     c.File,
		Span:     anchor,
		Severity: c.Severity,
	}
	if c.Lines != nil {
		finding.Location = c.Lines.Range(c.File, anchor)
	}
	if d.Fix != nil {
		if edits := d.Fix(&Fixer{src: c.Source}); len(edits) > 0 {
			fix, err := NewFix(edits, len(c.Source))
			if err != nil {
				c.err = errors.Join(c.err, fmt.Errorf("fix for %q at %s: %w", d.Message, anchor, err))
			} else {
				finding.Fix = fix
				finding.Fixable = true
			}
		}
	}
	c.findings = append(c.findings, finding)
}

// Findings returns the findings reported so far.
func (c *Context) Findings() []Finding {
	return c.findings
}

// Err returns the malformed-fix errors recorded by Report, if any.
func (c *Context) Err() error {
	return c.err
}
