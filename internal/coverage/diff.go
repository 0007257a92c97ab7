package coverage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator widths for the diff renderings, part of the output contract.
const (
	summarySeparatorWidth = 45
	missesSeparatorWidth  = 94
	missesTitleWidth      = 50
)

// Diff pairs an optional baseline report with a current report of the same
// shape. NewMisses is derived once at construction and maps child keys to
// nested diffs, restricted to children that regressed: a child whose misses
// all pre-exist in the baseline is omitted even if its miss count is nonzero.
type Diff struct {
	Before    *Report // nil when no baseline is available
	After     *Report
	NewMisses map[string]*Diff
}

// Compare builds the diff between a current report and an optional baseline.
// A nil before means every miss in after is a new miss.
func Compare(after, before *Report) (*Diff, error) {
	if after == nil {
		return nil, errors.New("after report is required")
	}
	if before != nil {
		if err := sameShape(before, after); err != nil {
			return nil, err
		}
	}

	d := &Diff{Before: before, After: after}
	newMisses, err := d.findNewMisses()
	if err != nil {
		return nil, err
	}
	d.NewMisses = newMisses
	return d, nil
}

// findNewMisses recurses depth-first through children whose after misses are
// not also baseline misses. Column-level diffs are leaves.
func (d *Diff) findNewMisses() (map[string]*Diff, error) {
	res := make(map[string]*Diff)
	if d.After.EntityType == EntityColumn {
		return res, nil
	}

	var baseline RefSet
	if d.Before != nil {
		baseline = d.Before.Misses
	}

	for ref := range d.After.Misses.Minus(baseline) {
		key := ref.ColumnName
		if d.After.EntityType == EntityCatalog {
			key = ref.TableName
		}
		if _, done := res[key]; done {
			continue
		}

		afterChild, ok := d.After.Subentities[key]
		if !ok {
			return nil, fmt.Errorf("%w: subentity %q missing from report", ErrIncompatibleReports, key)
		}
		var beforeChild *Report
		if d.Before != nil {
			beforeChild = d.Before.Subentities[key]
		}

		child, err := Compare(afterChild, beforeChild)
		if err != nil {
			return nil, err
		}
		res[key] = child
	}
	return res, nil
}

// Summary renders the catalog-level before/after comparison table. Deltas for
// Tables, Columns, Hits and Misses are two-sided set differences rendered as
// +added/-removed, so a rename shows up on both sides.
func (d *Diff) Summary() (string, error) {
	if d.After.EntityType != EntityCatalog {
		return "", errors.New("summary only supported for catalog level diff")
	}
	if d.Before == nil {
		return "", errors.New("summary requires a baseline report")
	}

	sep := strings.Repeat("=", summarySeparatorWidth) + "\n"
	var buf strings.Builder
	fmt.Fprintf(&buf, "%10s%10s%10s%15s\n", "", "before", "after", "+/-")
	buf.WriteString(sep)
	fmt.Fprintf(&buf, "%-10s%9.2f%%%9.2f%%%+14.2f%%\n", "Coverage",
		d.Before.Coverage*100, d.After.Coverage*100, (d.After.Coverage-d.Before.Coverage)*100)
	buf.WriteString(sep)

	addedTables, removedTables := 0, 0
	for name := range d.After.Subentities {
		if _, ok := d.Before.Subentities[name]; !ok {
			addedTables++
		}
	}
	for name := range d.Before.Subentities {
		if _, ok := d.After.Subentities[name]; !ok {
			removedTables++
		}
	}

	fmt.Fprintf(&buf, "%-10s%10d%10d%15s\n", "Tables",
		len(d.Before.Subentities), len(d.After.Subentities), addDel(addedTables, removedTables))
	fmt.Fprintf(&buf, "%-10s%10d%10d%15s\n", "Columns",
		len(d.Before.Total), len(d.After.Total),
		addDel(len(d.After.Total.Minus(d.Before.Total)), len(d.Before.Total.Minus(d.After.Total))))
	fmt.Fprintf(&buf, "%-10s%10d%10d%15s\n", "Hits",
		len(d.Before.Covered), len(d.After.Covered),
		addDel(len(d.After.Covered.Minus(d.Before.Covered)), len(d.Before.Covered.Minus(d.After.Covered))))
	fmt.Fprintf(&buf, "%-10s%10d%10d%15s\n", "Misses",
		len(d.Before.Misses), len(d.After.Misses),
		addDel(len(d.After.Misses.Minus(d.Before.Misses)), len(d.Before.Misses.Minus(d.After.Misses))))
	buf.WriteString(sep)
	return buf.String(), nil
}

// addDel renders a two-sided delta as +added/-removed.
func addDel(added, removed int) string {
	return fmt.Sprintf("+%d/-%d", added, removed)
}

// NewMissesSummary renders the recursive gap listing: catalog unprefixed and
// bracketed by separator lines, tables prefixed "- ", columns prefixed "-- ".
func (d *Diff) NewMissesSummary() string {
	switch d.After.EntityType {
	case EntityColumn:
		return d.summaryRow()
	case EntityTable:
		var buf strings.Builder
		buf.WriteString(d.summaryRow())
		for _, key := range sortedKeys(d.NewMisses) {
			buf.WriteString(d.NewMisses[key].NewMissesSummary())
		}
		return buf.String()
	default:
		sep := strings.Repeat("=", missesSeparatorWidth) + "\n"
		var buf strings.Builder
		buf.WriteString(sep)
		buf.WriteString(d.summaryRow())
		buf.WriteString(sep)
		for _, key := range sortedKeys(d.NewMisses) {
			buf.WriteString(d.NewMisses[key].NewMissesSummary())
			buf.WriteString(sep)
		}
		return buf.String()
	}
}

// summaryRow renders one "before covered/total (pct) -> after covered/total
// (pct)" line, with "-" placeholders when no baseline entity exists.
func (d *Diff) summaryRow() string {
	var prefix string
	switch d.After.EntityType {
	case EntityTable:
		prefix = "- "
	case EntityColumn:
		prefix = "-- "
	}

	title := d.After.EntityName
	if title == "" {
		title = "Catalog"
	}
	title = prefix + title

	beforeCovered, beforeTotal, beforeCoverage := "-", "-", "(-)"
	if d.Before != nil {
		beforeCovered = strconv.Itoa(len(d.Before.Covered))
		beforeTotal = strconv.Itoa(len(d.Before.Total))
		beforeCoverage = fmt.Sprintf("(%.2f%%)", d.Before.Coverage*100)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "%-*s", missesTitleWidth, title)
	fmt.Fprintf(&buf, "%5s/%-5s%s", beforeCovered, beforeTotal, center(beforeCoverage, 9))
	buf.WriteString(" -> ")
	fmt.Fprintf(&buf, "%5d/%-5d%s\n",
		len(d.After.Covered), len(d.After.Total), center(fmt.Sprintf("(%.2f%%)", d.After.Coverage*100), 9))
	return buf.String()
}

// center pads s to width, splitting padding evenly with the extra space on
// the right.
func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}
