package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/santosr2/esguard/pkg/sdk"
)

// SARIFFormatter outputs findings in SARIF format for GitHub Code Scanning
type SARIFFormatter struct {
	Version string     // esguard version
	Rules   []sdk.Rule // used for rule descriptions and tags
}

// SARIF represents the root SARIF document
type SARIF struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SARIFRun `json:"runs"`
}

// SARIFRun represents a single run of the tool
type SARIFRun struct {
	Tool    SARIFTool     `json:"tool"`
	Results []SARIFResult `json:"results"`
}

// SARIFTool represents the tool information
type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

// SARIFDriver represents the tool driver
type SARIFDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []SARIFRule `json:"rules,omitempty"`
}

// SARIFRule represents a rule definition
type SARIFRule struct {
	ID               string              `json:"id"`
	ShortDescription SARIFMessage        `json:"shortDescription"`
	FullDescription  *SARIFMessage       `json:"fullDescription,omitempty"`
	HelpURI          string              `json:"helpUri,omitempty"`
	Properties       SARIFRuleProperties `json:"properties,omitempty"`
}

// SARIFRuleProperties represents rule properties
type SARIFRuleProperties struct {
	Tags []string `json:"tags,omitempty"`
}

// SARIFMessage represents a message
type SARIFMessage struct {
	Text string `json:"text"`
}

// SARIFResult represents a single result/finding
type SARIFResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   SARIFMessage    `json:"message"`
	Locations []SARIFLocation `json:"locations"`
	Fixes     []SARIFFix      `json:"fixes,omitempty"`
}

// SARIFLocation represents a location in the source
type SARIFLocation struct {
	PhysicalLocation SARIFPhysicalLocation `json:"physicalLocation"`
}

// SARIFPhysicalLocation represents a physical location
type SARIFPhysicalLocation struct {
	ArtifactLocation SARIFArtifactLocation `json:"artifactLocation"`
	Region           SARIFRegion           `json:"region"`
}

// SARIFArtifactLocation represents an artifact location
type SARIFArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// SARIFRegion represents a region in the source, by line and column or by
// byte offset.
type SARIFRegion struct {
	StartLine   int  `json:"startLine,omitempty"`
	StartColumn int  `json:"startColumn,omitempty"`
	EndLine     int  `json:"endLine,omitempty"`
	EndColumn   int  `json:"endColumn,omitempty"`
	ByteOffset  *int `json:"byteOffset,omitempty"`
	ByteLength  *int `json:"byteLength,omitempty"`
}

// SARIFFix represents a fix for a result
type SARIFFix struct {
	Description     SARIFMessage          `json:"description"`
	ArtifactChanges []SARIFArtifactChange `json:"artifactChanges"`
}

// SARIFArtifactChange represents a change to an artifact
type SARIFArtifactChange struct {
	ArtifactLocation SARIFArtifactLocation `json:"artifactLocation"`
	Replacements     []SARIFReplacement    `json:"replacements"`
}

// SARIFReplacement represents a replacement
type SARIFReplacement struct {
	DeletedRegion   SARIFRegion   `json:"deletedRegion"`
	InsertedContent *SARIFMessage `json:"insertedContent,omitempty"`
}

// Format implements the Formatter interface for SARIF output
func (f *SARIFFormatter) Format(findings []sdk.Finding, w io.Writer) error {
	rules := f.buildSARIFRules(findings)
	results := buildSARIFResults(findings)
	sarif := f.buildSARIFDocument(rules, results)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(sarif)
}

func (f *SARIFFormatter) buildSARIFRules(findings []sdk.Finding) []SARIFRule {
	known := make(map[string]sdk.Rule, len(f.Rules))
	for _, r := range f.Rules {
		known[r.Name()] = r
	}

	var ids []string
	for _, finding := range findings {
		if !slices.Contains(ids, finding.Rule) {
			ids = append(ids, finding.Rule)
		}
	}
	slices.Sort(ids)

	rules := make([]SARIFRule, 0, len(ids))
	for _, ruleID := range ids {
		rule := SARIFRule{
			ID:               ruleID,
			ShortDescription: SARIFMessage{Text: ruleID},
			Properties:       SARIFRuleProperties{Tags: []string{"javascript", "quality"}},
		}
		if r, ok := known[ruleID]; ok {
			rule.FullDescription = &SARIFMessage{Text: r.Description()}
			rule.Properties.Tags = append(rule.Properties.Tags, r.Meta().Tags...)
		}
		rules = append(rules, rule)
	}
	return rules
}

func buildSARIFResults(findings []sdk.Finding) []SARIFResult {
	results := make([]SARIFResult, 0, len(findings))
	for _, finding := range findings {
		results = append(results, buildSARIFResult(finding))
	}
	return results
}

func artifact(file string) SARIFArtifactLocation {
	return SARIFArtifactLocation{
		URI:       filepath.ToSlash(file),
		URIBaseID: "%SRCROOT%",
	}
}

func buildSARIFResult(finding sdk.Finding) SARIFResult {
	result := SARIFResult{
		RuleID: finding.Rule,
		Level:  sarifLevel(finding.Severity),
		Message: SARIFMessage{
			Text: finding.Message,
		},
		Locations: []SARIFLocation{
			{
				PhysicalLocation: SARIFPhysicalLocation{
					ArtifactLocation: artifact(finding.File),
					Region: SARIFRegion{
						StartLine:   max(finding.Location.Start.Line, 1),
						StartColumn: finding.Location.Start.Column,
						EndLine:     finding.Location.End.Line,
						EndColumn:   finding.Location.End.Column,
					},
				},
			},
		},
	}

	if finding.Fix != nil && len(finding.Fix.Edits) > 0 {
		result.Fixes = buildSARIFFixes(finding)
	}
	return result
}

// buildSARIFFixes turns the fix edits into byte-offset replacements.
func buildSARIFFixes(finding sdk.Finding) []SARIFFix {
	replacements := make([]SARIFReplacement, 0, len(finding.Fix.Edits))
	for _, e := range finding.Fix.Edits {
		offset, length := e.Range.Start, e.Range.Len()
		r := SARIFReplacement{
			DeletedRegion: SARIFRegion{ByteOffset: &offset, ByteLength: &length},
		}
		if e.Text != "" {
			r.InsertedContent = &SARIFMessage{Text: e.Text}
		}
		replacements = append(replacements, r)
	}

	return []SARIFFix{
		{
			Description: SARIFMessage{
				Text: fmt.Sprintf("Auto-fix available for %s", finding.Rule),
			},
			ArtifactChanges: []SARIFArtifactChange{
				{
					ArtifactLocation: artifact(finding.File),
					Replacements:     replacements,
				},
			},
		},
	}
}

func (f *SARIFFormatter) buildSARIFDocument(rules []SARIFRule, results []SARIFResult) SARIF {
	return SARIF{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []SARIFRun{
			{
				Tool: SARIFTool{
					Driver: SARIFDriver{
						Name:           "esguard",
						Version:        f.Version,
						InformationURI: "https://github.com/santosr2/esguard",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

// sarifLevel converts SDK severity to SARIF level
func sarifLevel(severity sdk.Severity) string {
	switch severity {
	case sdk.SeverityError:
		return "error"
	case sdk.SeverityWarning:
		return "warning"
	case sdk.SeverityInfo:
		return "note"
	default:
		return "warning"
	}
}
