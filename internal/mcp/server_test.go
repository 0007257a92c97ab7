package mcp

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/dbtcov/dbtcov/internal/coverage"
)

const testManifest = `{
  "metadata": {"dbt_schema_version": "https://schemas.getdbt.com/dbt/manifest/v12.json"},
  "nodes": {
    "model.jaffle.orders": {
      "unique_id": "model.jaffle.orders",
      "resource_type": "model",
      "schema": "public",
      "name": "orders",
      "original_file_path": "models/orders.sql",
      "columns": {
        "id": {"name": "id", "description": "Primary key"},
        "total": {"name": "total", "description": ""}
      }
    }
  },
  "sources": {}
}`

const testCatalog = `{
  "nodes": {
    "model.jaffle.orders": {
      "unique_id": "model.jaffle.orders",
      "columns": {
        "id": {"name": "id"},
        "total": {"name": "total"}
      }
    }
  },
  "sources": {}
}`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	targetDir := filepath.Join(dir, "target")
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		t.Fatalf("mkdir target: %v", err)
	}
	if err := os.WriteFile(filepath.Join(targetDir, "manifest.json"), []byte(testManifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(targetDir, "catalog.json"), []byte(testCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return dir
}

func TestNewRegistersAllTools(t *testing.T) {
	srv, err := New(Config{ProjectDir: writeProject(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	tools := srv.ListTools()
	sort.Strings(tools)
	want := []string{"dbtcov_compare", "dbtcov_compute", "dbtcov_history"}
	if len(tools) != len(want) {
		t.Fatalf("tools = %v, want %v", tools, want)
	}
	for i := range want {
		if tools[i] != want[i] {
			t.Errorf("tools = %v, want %v", tools, want)
		}
	}
}

func TestNewToolSubset(t *testing.T) {
	srv, err := New(Config{
		ProjectDir: writeProject(t),
		Tools:      []string{"dbtcov_compute"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	tools := srv.ListTools()
	if len(tools) != 1 || tools[0] != "dbtcov_compute" {
		t.Errorf("tools = %v, want [dbtcov_compute]", tools)
	}
}

func TestNewUnknownTool(t *testing.T) {
	_, err := New(Config{
		ProjectDir: writeProject(t),
		Tools:      []string{"dbtcov_nope"},
	})
	if err == nil || !strings.Contains(err.Error(), "unknown tool") {
		t.Errorf("New with unknown tool error = %v", err)
	}
}

func TestExecuteCompute(t *testing.T) {
	srv, err := New(Config{ProjectDir: writeProject(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	out, err := srv.executeCompute("doc", nil)
	if err != nil {
		t.Fatalf("executeCompute: %v", err)
	}

	report, err := coverage.ReadReport([]byte(out))
	if err != nil {
		t.Fatalf("executeCompute output does not parse: %v", err)
	}
	if report.Coverage != 0.5 {
		t.Errorf("coverage = %f, want 0.5", report.Coverage)
	}
}

func TestExecuteComputeInvalidType(t *testing.T) {
	srv, err := New(Config{ProjectDir: writeProject(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	if _, err := srv.executeCompute("lines", nil); err == nil {
		t.Errorf("executeCompute with invalid type succeeded")
	}
}

func TestExecuteComputeFilterMismatch(t *testing.T) {
	srv, err := New(Config{ProjectDir: writeProject(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	if _, err := srv.executeCompute("doc", []string{"analyses/"}); err == nil {
		t.Errorf("executeCompute with non-matching filter succeeded")
	}
}

func TestExecuteHistoryWithoutStore(t *testing.T) {
	srv, err := New(Config{ProjectDir: writeProject(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	if _, err := srv.executeHistory("", 10); err == nil || !strings.Contains(err.Error(), "no snapshot history") {
		t.Errorf("executeHistory without store error = %v", err)
	}
}
