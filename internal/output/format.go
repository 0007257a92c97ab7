// Package output provides the output format selection for coverage reports.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dbtcov/dbtcov/internal/coverage"
)

// Format represents the report output format type.
type Format string

const (
	// FormatTable is the default fixed-width text table
	FormatTable Format = "table"

	// FormatMarkdown is a Markdown table suitable for PR comments
	FormatMarkdown Format = "markdown"

	// FormatJSON is the persisted JSON document shape
	FormatJSON Format = "json"
)

// ParseFormat parses a format string into a Format value.
// Accepts: "table", "markdown", "json" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "string":
		return FormatTable, nil
	case "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid format: %q (expected table, markdown, or json)", s)
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// Render writes a catalog-level coverage report to w in this format.
func (f Format) Render(w io.Writer, report *coverage.Report) error {
	switch f {
	case FormatTable:
		s, err := report.ToTable()
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, s)
		return err
	case FormatMarkdown:
		s, err := report.ToMarkdownTable()
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, s)
		return err
	case FormatJSON:
		data, err := report.ToJSON()
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	default:
		return fmt.Errorf("invalid format: %q", f)
	}
}
