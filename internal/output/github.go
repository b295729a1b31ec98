package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/santosr2/esguard/pkg/sdk"
)

// GitHubFormatter prints GitHub Actions workflow commands, which show up as
// annotations on the pull request diff.
type GitHubFormatter struct{}

var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

// Format implements the Formatter interface for workflow commands
func (f *GitHubFormatter) Format(findings []sdk.Finding, w io.Writer) error {
	for _, finding := range findings {
		command := "warning"
		switch finding.Severity {
		case sdk.SeverityError:
			command = "error"
		case sdk.SeverityInfo:
			command = "notice"
		}

		props := []string{"file=" + propertyEscaper.Replace(finding.File)}
		if start := finding.Location.Start; start.Line > 0 {
			props = append(props, fmt.Sprintf("line=%d", start.Line), fmt.Sprintf("col=%d", start.Column))
			if end := finding.Location.End; end.Line > 0 {
				props = append(props, fmt.Sprintf("endLine=%d", end.Line), fmt.Sprintf("endColumn=%d", end.Column))
			}
		}
		props = append(props, "title="+propertyEscaper.Replace(finding.Rule))

		if _, err := fmt.Fprintf(w, "::%s %s::%s\n", command, strings.Join(props, ","), dataEscaper.Replace(finding.Message)); err != nil {
			return err
		}
	}
	return nil
}
