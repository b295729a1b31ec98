package lint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

// DefaultTodoMarkers are the comment markers that may carry a deadline.
var DefaultTodoMarkers = []string{"TODO", "FIXME"}

var deadlinePattern = regexp.MustCompile(`(\d{4})(?:-(\d{1,2}))?(?:-(\d{1,2}))?`)

// Deadline is a date found in a marker comment such as
// `TODO(alice, 2024-06): drop the shim`.
type Deadline struct {
	Marker string
	Date   time.Time
}

// DeadlineParser extracts deadlines from comment text.
type DeadlineParser struct {
	marker *regexp.Regexp
}

// NewDeadlineParser returns a parser for `MARKER(payload):` annotations.
func NewDeadlineParser(markers []string) *DeadlineParser {
	quoted := make([]string, len(markers))
	for i, m := range markers {
		quoted[i] = regexp.QuoteMeta(m)
	}
	return &DeadlineParser{
		marker: regexp.MustCompile(`(` + strings.Join(quoted, "|") + `)\(([^)]*)\):`),
	}
}

// Parse returns the first deadline in text. Missing month and day default to
// 1, and so do numbers that fail to parse or are zero. Dates are built in
// loc, where out of range months and days roll over as time.Date does.
func (p *DeadlineParser) Parse(text string, loc *time.Location) (Deadline, bool) {
	for _, m := range p.marker.FindAllStringSubmatch(text, -1) {
		date := deadlinePattern.FindStringSubmatch(m[2])
		if date == nil {
			continue
		}
		year, _ := strconv.Atoi(date[1])
		return Deadline{
			Marker: m[1],
			Date:   time.Date(year, time.Month(lenientInt(date[2])), lenientInt(date[3]), 0, 0, 0, 0, loc),
		}, true
	}
	return Deadline{}, false
}

func lenientInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return 1
	}
	return n
}

// NoOverdueTodoRule reports TODO and FIXME comments whose deadline has
// passed.
type NoOverdueTodoRule struct{}

// Name returns the rule identifier.
func (r *NoOverdueTodoRule) Name() string {
	return "no-overdue-todo"
}

// Description returns a human-readable description of the rule.
func (r *NoOverdueTodoRule) Description() string {
	return "Reports TODO(owner, YYYY-MM-DD): comments past their deadline"
}

// Meta returns the rule defaults and option schema.
func (r *NoOverdueTodoRule) Meta() sdk.Meta {
	return sdk.Meta{
		DefaultSeverity: sdk.SeverityWarning,
		DefaultEnabled:  true,
		Schema: sdk.Schema{{
			Name:        "markers",
			Type:        sdk.OptionStringList,
			Default:     DefaultTodoMarkers,
			Description: "comment markers that carry deadlines",
		}},
		Tags: []string{"comments"},
	}
}

// Create registers the Comment handler.
func (r *NoOverdueTodoRule) Create(ctx *sdk.Context) sdk.Handlers {
	markers := ctx.Options.Strings("markers")
	if len(markers) == 0 {
		markers = DefaultTodoMarkers
	}
	parser := NewDeadlineParser(markers)
	now := ctx.Now()

	return sdk.Handlers{
		syntax.KindComment: func(n syntax.Node) {
			c, ok := n.(*syntax.Comment)
			if !ok {
				return
			}
			deadline, found := parser.Parse(c.Text, now.Location())
			if !found || !deadline.Date.Before(now) {
				return
			}
			ctx.Report(sdk.Descriptor{
				Node:    c,
				Message: fmt.Sprintf("%s is overdue (due %s)", deadline.Marker, deadline.Date.Format(time.DateOnly)),
			})
		},
	}
}
