package coverage

import (
	"errors"
	"testing"

	"github.com/dbtcov/dbtcov/internal/artifacts"
)

// ordersCatalog is a one-table catalog: public.orders with a fully covered
// id column and an uncovered total column.
func ordersCatalog() *artifacts.Catalog {
	return &artifacts.Catalog{Tables: map[string]artifacts.Table{
		"model.jaffle.orders": {
			UniqueID:         "model.jaffle.orders",
			Name:             "public.orders",
			OriginalFilePath: "models/orders.sql",
			Columns: map[string]artifacts.Column{
				"id":    {Name: "id", Documented: true, Tested: true},
				"total": {Name: "total", Documented: false, Tested: false},
			},
		},
	}}
}

// documentedOrdersCatalog is ordersCatalog with every column documented.
func documentedOrdersCatalog() *artifacts.Catalog {
	return &artifacts.Catalog{Tables: map[string]artifacts.Table{
		"model.jaffle.orders": {
			UniqueID:         "model.jaffle.orders",
			Name:             "public.orders",
			OriginalFilePath: "models/orders.sql",
			Columns: map[string]artifacts.Column{
				"id":    {Name: "id", Documented: true, Tested: true},
				"total": {Name: "total", Documented: true, Tested: false},
			},
		},
	}}
}

// catalogWithTables builds a catalog of single-column documented tables.
func catalogWithTables(names ...string) *artifacts.Catalog {
	tables := make(map[string]artifacts.Table, len(names))
	for _, name := range names {
		tables["model.p."+name] = artifacts.Table{
			UniqueID: "model.p." + name,
			Name:     name,
			Columns: map[string]artifacts.Column{
				"id": {Name: "id", Documented: true, Tested: true},
			},
		}
	}
	return &artifacts.Catalog{Tables: tables}
}

func mustFromCatalog(t *testing.T, catalog *artifacts.Catalog, covType Type) *Report {
	t.Helper()
	report, err := FromCatalog(catalog, covType)
	if err != nil {
		t.Fatalf("FromCatalog: %v", err)
	}
	return report
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input   string
		want    Type
		wantErr bool
	}{
		{"doc", TypeDoc, false},
		{"test", TypeTest, false},
		{"lines", "", true},
		{"", "", true},
		{"DOC", "", true}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedCoverageType) {
					t.Errorf("ParseType(%q) error = %v, want ErrUnsupportedCoverageType", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseType(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFromCatalogDocCoverage(t *testing.T) {
	report := mustFromCatalog(t, ordersCatalog(), TypeDoc)

	if report.EntityType != EntityCatalog {
		t.Errorf("entity type = %s, want catalog", report.EntityType)
	}
	if report.EntityName != "" {
		t.Errorf("catalog entity name = %q, want empty", report.EntityName)
	}
	if report.Coverage != 0.5 {
		t.Errorf("catalog coverage = %f, want 0.5", report.Coverage)
	}

	table, ok := report.Subentities["public.orders"]
	if !ok {
		t.Fatalf("missing table subentity, got %v", report.Subentities)
	}
	if table.EntityType != EntityTable {
		t.Errorf("table entity type = %s, want table", table.EntityType)
	}
	if table.Coverage != 0.5 {
		t.Errorf("table coverage = %f, want 0.5", table.Coverage)
	}

	// Catalog-level refs carry the table name.
	if !report.Covered.Contains(ColumnRef{TableName: "public.orders", ColumnName: "id"}) {
		t.Errorf("covered set missing public.orders id: %v", report.Covered)
	}
	if !report.Misses.Contains(ColumnRef{TableName: "public.orders", ColumnName: "total"}) {
		t.Errorf("misses set missing public.orders total: %v", report.Misses)
	}

	// Column leaves keep an empty table name.
	column, ok := table.Subentities["total"]
	if !ok {
		t.Fatalf("missing column subentity")
	}
	if column.EntityType != EntityColumn {
		t.Errorf("column entity type = %s, want column", column.EntityType)
	}
	if !column.Total.Contains(ColumnRef{ColumnName: "total"}) {
		t.Errorf("column total = %v, want ref without table name", column.Total)
	}
	if len(column.Covered) != 0 {
		t.Errorf("undocumented column covered = %v, want empty", column.Covered)
	}
}

func TestFromCatalogTestCoverage(t *testing.T) {
	report := mustFromCatalog(t, ordersCatalog(), TypeTest)

	if report.CovType != TypeTest {
		t.Errorf("cov type = %s, want test", report.CovType)
	}
	if report.Coverage != 0.5 {
		t.Errorf("test coverage = %f, want 0.5", report.Coverage)
	}
	if !report.Covered.Contains(ColumnRef{TableName: "public.orders", ColumnName: "id"}) {
		t.Errorf("tested id column not covered: %v", report.Covered)
	}
}

func TestAggregationUnions(t *testing.T) {
	catalog := &artifacts.Catalog{Tables: map[string]artifacts.Table{
		"model.p.orders": {
			UniqueID: "model.p.orders",
			Name:     "public.orders",
			Columns: map[string]artifacts.Column{
				"id":     {Name: "id", Documented: true},
				"amount": {Name: "amount"},
			},
		},
		"model.p.customers": {
			UniqueID: "model.p.customers",
			Name:     "public.customers",
			Columns: map[string]artifacts.Column{
				"id":   {Name: "id", Documented: true},
				"name": {Name: "name", Documented: true},
			},
		},
	}}

	report := mustFromCatalog(t, catalog, TypeDoc)

	// Catalog sets equal the union of the table sets.
	total := make(RefSet)
	covered := make(RefSet)
	for _, table := range report.Subentities {
		for ref := range table.Total {
			total[ref] = struct{}{}
		}
		for ref := range table.Covered {
			covered[ref] = struct{}{}
		}
	}
	if len(report.Total) != len(total) || len(report.Total) != 4 {
		t.Errorf("catalog total = %d refs, want union of 4", len(report.Total))
	}
	for ref := range total {
		if !report.Total.Contains(ref) {
			t.Errorf("catalog total missing %v", ref)
		}
	}
	if len(report.Covered) != len(covered) || len(report.Covered) != 3 {
		t.Errorf("catalog covered = %d refs, want union of 3", len(report.Covered))
	}

	// Same-named columns in different tables stay distinct.
	if !report.Total.Contains(ColumnRef{TableName: "public.orders", ColumnName: "id"}) ||
		!report.Total.Contains(ColumnRef{TableName: "public.customers", ColumnName: "id"}) {
		t.Errorf("id columns collapsed across tables: %v", report.Total)
	}

	// Table sets equal the union of their column leaves.
	orders := report.Subentities["public.orders"]
	if len(orders.Total) != len(orders.Subentities) {
		t.Errorf("table total = %d, want %d", len(orders.Total), len(orders.Subentities))
	}
}

func TestEmptyCatalogCoverageIsZero(t *testing.T) {
	report := mustFromCatalog(t, &artifacts.Catalog{Tables: map[string]artifacts.Table{}}, TypeDoc)

	if report.Coverage != 0.0 {
		t.Errorf("empty catalog coverage = %f, want 0.0", report.Coverage)
	}
	if len(report.Total) != 0 || len(report.Misses) != 0 {
		t.Errorf("empty catalog has refs: total=%v misses=%v", report.Total, report.Misses)
	}
}

func TestMissesComplement(t *testing.T) {
	report := mustFromCatalog(t, ordersCatalog(), TypeDoc)

	for _, node := range []*Report{report, report.Subentities["public.orders"]} {
		if len(node.Covered)+len(node.Misses) != len(node.Total) {
			t.Errorf("%s: |covered|+|misses| = %d, want |total| = %d",
				node.EntityType, len(node.Covered)+len(node.Misses), len(node.Total))
		}
		for ref := range node.Misses {
			if node.Covered.Contains(ref) {
				t.Errorf("%s: ref %v in both covered and misses", node.EntityType, ref)
			}
			if !node.Total.Contains(ref) {
				t.Errorf("%s: miss %v not in total", node.EntityType, ref)
			}
		}
		if node.Coverage < 0 || node.Coverage > 1 {
			t.Errorf("%s: coverage %f out of bounds", node.EntityType, node.Coverage)
		}
	}
}

func TestFromColumnUnsupportedType(t *testing.T) {
	_, err := FromColumn(artifacts.Column{Name: "id"}, Type("lines"))
	if !errors.Is(err, ErrUnsupportedCoverageType) {
		t.Errorf("FromColumn error = %v, want ErrUnsupportedCoverageType", err)
	}
}

func TestRefSetMinus(t *testing.T) {
	a := NewRefSet(
		ColumnRef{TableName: "t", ColumnName: "a"},
		ColumnRef{TableName: "t", ColumnName: "b"},
	)
	b := NewRefSet(ColumnRef{TableName: "t", ColumnName: "b"})

	diff := a.Minus(b)
	if len(diff) != 1 || !diff.Contains(ColumnRef{TableName: "t", ColumnName: "a"}) {
		t.Errorf("Minus = %v, want {t.a}", diff)
	}

	// Minus against a nil set keeps everything.
	if got := a.Minus(nil); len(got) != 2 {
		t.Errorf("Minus(nil) = %v, want both refs", got)
	}
}
