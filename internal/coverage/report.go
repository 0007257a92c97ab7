// Package coverage computes documentation and test coverage reports over a dbt
// project's catalog. A report is a fixed three-level tree (catalog -> tables ->
// columns) holding covered/total column sets at every node, built bottom-up and
// never mutated after construction.
package coverage

import (
	"fmt"

	"github.com/dbtcov/dbtcov/internal/artifacts"
)

// Type identifies which coverage dimension a report measures.
type Type string

const (
	// TypeDoc measures documentation coverage: a column is covered when its
	// description in the manifest is non-empty.
	TypeDoc Type = "doc"

	// TypeTest measures test coverage: a column is covered when at least one
	// dbt test references it.
	TypeTest Type = "test"
)

// ParseType parses a coverage type string.
func ParseType(s string) (Type, error) {
	switch s {
	case "doc":
		return TypeDoc, nil
	case "test":
		return TypeTest, nil
	default:
		return "", fmt.Errorf("%w: %q (expected doc or test)", ErrUnsupportedCoverageType, s)
	}
}

// String returns the string representation of the coverage type.
func (t Type) String() string {
	return string(t)
}

// EntityType identifies the level of a report node in the catalog tree.
type EntityType string

const (
	// EntityCatalog is the root node spanning all tables.
	EntityCatalog EntityType = "catalog"
	// EntityTable is a table node spanning its columns.
	EntityTable EntityType = "table"
	// EntityColumn is a leaf node for a single column.
	EntityColumn EntityType = "column"
)

// ColumnRef identifies a column within coverage bookkeeping. It is a value
// type used as a set element. TableName is empty in column-level reports and
// is filled in as refs are propagated upward into table and catalog sets.
type ColumnRef struct {
	TableName  string
	ColumnName string
}

// RefSet is a set of column refs keyed by value.
type RefSet map[ColumnRef]struct{}

// NewRefSet builds a set from the given refs.
func NewRefSet(refs ...ColumnRef) RefSet {
	s := make(RefSet, len(refs))
	for _, r := range refs {
		s[r] = struct{}{}
	}
	return s
}

// Contains reports whether ref is in the set.
func (s RefSet) Contains(ref ColumnRef) bool {
	_, ok := s[ref]
	return ok
}

// Minus returns the set difference s - other.
func (s RefSet) Minus(other RefSet) RefSet {
	res := make(RefSet)
	for ref := range s {
		if _, ok := other[ref]; !ok {
			res[ref] = struct{}{}
		}
	}
	return res
}

// Report is one node of a coverage tree. Covered and Total at a parent are
// the unions of the corresponding child sets, with TableName filled in when
// ascending from column to table level. Misses and Coverage are derived once
// at construction; a Report is immutable afterwards.
type Report struct {
	EntityType  EntityType
	CovType     Type
	EntityName  string // empty for the catalog root
	Covered     RefSet
	Total       RefSet
	Subentities map[string]*Report

	// Derived at construction: Misses = Total - Covered,
	// Coverage = |Covered| / |Total| (0.0 when Total is empty).
	Misses   RefSet
	Coverage float64
}

// newReport derives misses and coverage so every constructed report is
// consistent from the start.
func newReport(entityType EntityType, covType Type, name string, covered, total RefSet, sub map[string]*Report) *Report {
	r := &Report{
		EntityType:  entityType,
		CovType:     covType,
		EntityName:  name,
		Covered:     covered,
		Total:       total,
		Subentities: sub,
		Misses:      make(RefSet),
	}
	if len(total) > 0 {
		r.Misses = total.Minus(covered)
		r.Coverage = float64(len(covered)) / float64(len(total))
	}
	return r
}

// FromCatalog builds a catalog-level coverage report for the given coverage
// type. Construction is pure and strictly bottom-up: column leaves first, then
// table unions, then the catalog union.
func FromCatalog(catalog *artifacts.Catalog, covType Type) (*Report, error) {
	sub := make(map[string]*Report, len(catalog.Tables))
	for _, table := range catalog.Tables {
		tableReport, err := FromTable(table, covType)
		if err != nil {
			return nil, err
		}
		sub[table.Name] = tableReport
	}

	covered := make(RefSet)
	total := make(RefSet)
	for _, tableReport := range sub {
		// Table names are already embedded in the refs, no rewriting needed.
		for ref := range tableReport.Covered {
			covered[ref] = struct{}{}
		}
		for ref := range tableReport.Total {
			total[ref] = struct{}{}
		}
	}

	return newReport(EntityCatalog, covType, "", covered, total, sub), nil
}

// FromTable builds a table-level report from the table's columns.
func FromTable(table artifacts.Table, covType Type) (*Report, error) {
	sub := make(map[string]*Report, len(table.Columns))
	for _, col := range table.Columns {
		colReport, err := FromColumn(col, covType)
		if err != nil {
			return nil, err
		}
		sub[col.Name] = colReport
	}

	covered := make(RefSet)
	total := make(RefSet)
	for _, colReport := range sub {
		for ref := range colReport.Covered {
			covered[ColumnRef{TableName: table.Name, ColumnName: ref.ColumnName}] = struct{}{}
		}
		for ref := range colReport.Total {
			total[ColumnRef{TableName: table.Name, ColumnName: ref.ColumnName}] = struct{}{}
		}
	}

	return newReport(EntityTable, covType, table.Name, covered, total, sub), nil
}

// FromColumn builds a leaf report by applying the coverage predicate for the
// requested coverage type.
func FromColumn(column artifacts.Column, covType Type) (*Report, error) {
	var isCovered bool
	switch covType {
	case TypeDoc:
		isCovered = column.Documented
	case TypeTest:
		isCovered = column.Tested
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCoverageType, covType)
	}

	ref := ColumnRef{ColumnName: column.Name}
	covered := make(RefSet)
	if isCovered {
		covered[ref] = struct{}{}
	}
	return newReport(EntityColumn, covType, column.Name, covered, NewRefSet(ref), nil), nil
}

// sameShape verifies that two reports can be compared.
func sameShape(before, after *Report) error {
	if before.CovType != after.CovType {
		return fmt.Errorf("%w: coverage types do not match (%s vs %s)",
			ErrIncompatibleReports, before.CovType, after.CovType)
	}
	if before.EntityType != after.EntityType {
		return fmt.Errorf("%w: entity types do not match (%s vs %s)",
			ErrIncompatibleReports, before.EntityType, after.EntityType)
	}
	return nil
}
