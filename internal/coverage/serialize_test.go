package coverage

import (
	"errors"
	"strings"
	"testing"
)

func TestDocumentRoundTripCounts(t *testing.T) {
	original := mustFromCatalog(t, ordersCatalog(), TypeDoc)

	data, err := original.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	restored, err := ReadReport(data)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}

	if restored.CovType != original.CovType {
		t.Errorf("cov type = %s, want %s", restored.CovType, original.CovType)
	}
	if restored.EntityType != EntityCatalog {
		t.Errorf("entity type = %s, want catalog", restored.EntityType)
	}
	if len(restored.Covered) != len(original.Covered) ||
		len(restored.Total) != len(original.Total) ||
		restored.Coverage != original.Coverage {
		t.Errorf("catalog counts = %d/%d %.2f, want %d/%d %.2f",
			len(restored.Covered), len(restored.Total), restored.Coverage,
			len(original.Covered), len(original.Total), original.Coverage)
	}

	for name, origTable := range original.Subentities {
		table, ok := restored.Subentities[name]
		if !ok {
			t.Fatalf("restored report missing table %q", name)
		}
		if len(table.Covered) != len(origTable.Covered) ||
			len(table.Total) != len(origTable.Total) ||
			table.Coverage != origTable.Coverage {
			t.Errorf("table %q counts = %d/%d, want %d/%d", name,
				len(table.Covered), len(table.Total),
				len(origTable.Covered), len(origTable.Total))
		}
		for colName := range origTable.Subentities {
			if _, ok := table.Subentities[colName]; !ok {
				t.Errorf("table %q missing column %q", name, colName)
			}
		}
	}

	// A rehydrated report diffs cleanly against a fresh one of the same shape.
	diff, err := Compare(original, restored)
	if err != nil {
		t.Fatalf("Compare fresh vs restored: %v", err)
	}
	if len(diff.NewMisses) != 0 {
		t.Errorf("fresh vs restored new misses = %v, want empty", diff.NewMisses)
	}
}

func TestToDocumentSortsTables(t *testing.T) {
	report := mustFromCatalog(t, catalogWithTables("public.zebra", "public.alpha", "public.middle"), TypeDoc)

	doc, err := report.ToDocument()
	if err != nil {
		t.Fatalf("ToDocument: %v", err)
	}
	var names []string
	for _, table := range doc.Tables {
		names = append(names, table.Name)
	}
	want := []string{"public.alpha", "public.middle", "public.zebra"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("table order = %v, want %v", names, want)
		}
	}
}

func TestToDocumentRequiresCatalog(t *testing.T) {
	report := mustFromCatalog(t, ordersCatalog(), TypeDoc)
	table := report.Subentities["public.orders"]

	if _, err := table.ToDocument(); err == nil {
		t.Errorf("table-level ToDocument succeeded, want error")
	}
}

func TestReadReportMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing cov_type", `{"tables": []}`},
		{"tables not a list", `{"cov_type": "doc", "tables": {}}`},
		{"table missing name", `{"cov_type": "doc", "tables": [{"columns": []}]}`},
		{"column missing covered", `{"cov_type": "doc", "tables": [
			{"name": "public.orders", "columns": [{"name": "id", "total": 1}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadReport([]byte(tt.data))
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("ReadReport error = %v, want ErrMalformedDocument", err)
			}
		})
	}
}

func TestReadReportUnsupportedType(t *testing.T) {
	_, err := ReadReport([]byte(`{"cov_type": "lines", "tables": []}`))
	if !errors.Is(err, ErrUnsupportedCoverageType) {
		t.Errorf("ReadReport error = %v, want ErrUnsupportedCoverageType", err)
	}
}

func TestToJSONShape(t *testing.T) {
	report := mustFromCatalog(t, ordersCatalog(), TypeDoc)

	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	out := string(data)
	for _, key := range []string{`"cov_type": "doc"`, `"name": "public.orders"`, `"columns"`, `"coverage"`} {
		if !strings.Contains(out, key) {
			t.Errorf("JSON output missing %s:\n%s", key, out)
		}
	}
}
