package coverage

import (
	"fmt"
	"strings"
)

// Fixed layout widths shared with downstream CI log scraping. Do not change
// without a compatibility plan.
const (
	plainSeparatorWidth = 69
	plainNameWidth      = 50
	markdownNameWidth   = 70
)

// ToTable renders a catalog-level report as a fixed-width text table with one
// row per table, sorted by table name, and a trailing Total row.
func (r *Report) ToTable() (string, error) {
	if r.EntityType != EntityCatalog {
		return "", fmt.Errorf("unsupported entity type for table output: %s", r.EntityType)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "Coverage report (%s)\n", r.CovType)
	buf.WriteString(strings.Repeat("=", plainSeparatorWidth) + "\n")
	for _, name := range sortedKeys(r.Subentities) {
		buf.WriteString(r.Subentities[name].plainRow() + "\n")
	}
	buf.WriteString(strings.Repeat("=", plainSeparatorWidth) + "\n")
	fmt.Fprintf(&buf, "%-*s %5d/%-5d %5.1f%%\n",
		plainNameWidth, "Total", len(r.Covered), len(r.Total), r.Coverage*100)
	return buf.String(), nil
}

// plainRow renders one table row of the plain text layout.
func (r *Report) plainRow() string {
	return fmt.Sprintf("%-*s %5d/%-5d %5.1f%%",
		plainNameWidth, r.EntityName, len(r.Covered), len(r.Total), r.Coverage*100)
}

// ToMarkdownTable renders a catalog-level report as a Markdown table under a
// coverage heading, one row per table plus a trailing Total row.
func (r *Report) ToMarkdownTable() (string, error) {
	if r.EntityType != EntityCatalog {
		return "", fmt.Errorf("unsupported entity type for markdown output: %s", r.EntityType)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "# Coverage report (%s)\n", r.CovType)
	buf.WriteString("| Model | Columns Covered | % |\n")
	buf.WriteString("|:------|----------------:|:-:|\n")
	for _, name := range sortedKeys(r.Subentities) {
		buf.WriteString(r.Subentities[name].markdownRow() + "\n")
	}
	fmt.Fprintf(&buf, "| %-*s | %5d/%-5d | %5.1f%% |\n",
		markdownNameWidth, "Total", len(r.Covered), len(r.Total), r.Coverage*100)
	return buf.String(), nil
}

// markdownRow renders one table row of the Markdown layout.
func (r *Report) markdownRow() string {
	return fmt.Sprintf("| %-*s | %5d/%-5d | %5.1f%% |",
		markdownNameWidth, r.EntityName, len(r.Covered), len(r.Total), r.Coverage*100)
}
