// Package artifacts loads dbt's manifest.json and catalog.json run artifacts
// and joins them into the in-memory entity model the coverage engine reads.
// All table and column names are lower-cased during ingestion.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedManifestSchemaVersions lists the dbt manifest schema versions this
// tool is known to handle. Unknown versions produce a warning, not a failure.
var SupportedManifestSchemaVersions = []string{
	"https://schemas.getdbt.com/dbt/manifest/v4.json",
	"https://schemas.getdbt.com/dbt/manifest/v5.json",
	"https://schemas.getdbt.com/dbt/manifest/v6.json",
	"https://schemas.getdbt.com/dbt/manifest/v7.json",
	"https://schemas.getdbt.com/dbt/manifest/v8.json",
	"https://schemas.getdbt.com/dbt/manifest/v9.json",
	"https://schemas.getdbt.com/dbt/manifest/v10.json",
	"https://schemas.getdbt.com/dbt/manifest/v11.json",
	"https://schemas.getdbt.com/dbt/manifest/v12.json",
}

// ManifestColumn is a column as described in the manifest.
type ManifestColumn struct {
	Name        string
	Description string
}

// ManifestTable is a table as described in the manifest, keyed by unique id
// in the Manifest maps.
type ManifestTable struct {
	Name             string // schema.name, lower-cased
	OriginalFilePath string // slash-normalized
	Columns          map[string]ManifestColumn
}

// Manifest holds the parsed manifest split by resource type, plus the test
// index mapping table unique id -> column name -> test node unique ids.
type Manifest struct {
	Sources   map[string]ManifestTable
	Models    map[string]ManifestTable
	Seeds     map[string]ManifestTable
	Snapshots map[string]ManifestTable
	Tests     map[string]map[string][]string
}

// GetTable looks up a table by unique id across all resource categories.
// Returns nil when the id is unknown; a duplicate id across categories is an
// error.
func (m *Manifest) GetTable(tableID string) (*ManifestTable, error) {
	var found []*ManifestTable
	for _, category := range []map[string]ManifestTable{m.Sources, m.Models, m.Seeds, m.Snapshots} {
		if table, ok := category[tableID]; ok {
			t := table
			found = append(found, &t)
		}
	}
	if len(found) > 1 {
		return nil, fmt.Errorf("duplicate unique_id in manifest: %s", tableID)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

// HasTest reports whether at least one test references the given column.
func (m *Manifest) HasTest(tableID, columnName string) bool {
	return len(m.Tests[tableID][columnName]) > 0
}

// manifestFile mirrors the subset of manifest.json that ingestion reads.
type manifestFile struct {
	Metadata struct {
		DBTSchemaVersion string `json:"dbt_schema_version"`
	} `json:"metadata"`
	Nodes   map[string]manifestNode `json:"nodes"`
	Sources map[string]manifestNode `json:"sources"`
}

type manifestNode struct {
	UniqueID         string                    `json:"unique_id"`
	ResourceType     string                    `json:"resource_type"`
	Schema           string                    `json:"schema"`
	Name             string                    `json:"name"`
	OriginalFilePath string                    `json:"original_file_path"`
	Columns          map[string]manifestColumn `json:"columns"`
	ColumnName       string                    `json:"column_name"`
	TestMetadata     *testMetadata             `json:"test_metadata"`
	DependsOn        struct {
		Nodes []string `json:"nodes"`
	} `json:"depends_on"`
}

type manifestColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type testMetadata struct {
	Name   string         `json:"name"`
	Kwargs map[string]any `json:"kwargs"`
}

// LoadManifest reads and parses manifest.json from <projectDir>/target, or
// from artifactsDir when it is non-empty.
func LoadManifest(projectDir, artifactsDir string) (*Manifest, error) {
	dir := filepath.Join(projectDir, "target")
	if artifactsDir != "" {
		dir = artifactsDir
	}
	path := filepath.Join(dir, "manifest.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest.json not found at %s: run a dbt command against your project to generate it", path)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var file manifestFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	checkManifestVersion(file.Metadata.DBTSchemaVersion)

	nodes := make(map[string]manifestNode, len(file.Nodes)+len(file.Sources))
	for id, node := range file.Sources {
		nodes[id] = node
	}
	for id, node := range file.Nodes {
		nodes[id] = node
	}

	return parseManifestNodes(nodes), nil
}

// checkManifestVersion warns about manifest versions outside the supported
// list. Parsing continues either way.
func checkManifestVersion(version string) {
	for _, supported := range SupportedManifestSchemaVersions {
		if version == supported {
			return
		}
	}
	fmt.Fprintf(os.Stderr, "Warning: unsupported manifest.json version %s, unexpected behavior can occur\n", version)
}

// parseManifestNodes splits nodes by resource type and builds the test index.
func parseManifestNodes(nodes map[string]manifestNode) *Manifest {
	m := &Manifest{
		Sources:   make(map[string]ManifestTable),
		Models:    make(map[string]ManifestTable),
		Seeds:     make(map[string]ManifestTable),
		Snapshots: make(map[string]ManifestTable),
		Tests:     make(map[string]map[string][]string),
	}

	for id, node := range nodes {
		switch node.ResourceType {
		case "source":
			m.Sources[id] = newManifestTable(node)
		case "model":
			m.Models[id] = newManifestTable(node)
		case "seed":
			m.Seeds[id] = newManifestTable(node)
		case "snapshot":
			m.Snapshots[id] = newManifestTable(node)
		case "test":
			m.indexTest(node)
		}
	}
	return m
}

func newManifestTable(node manifestNode) ManifestTable {
	columns := make(map[string]ManifestColumn, len(node.Columns))
	for _, col := range node.Columns {
		name := strings.ToLower(col.Name)
		columns[name] = ManifestColumn{Name: name, Description: col.Description}
	}
	return ManifestTable{
		Name:             strings.ToLower(node.Schema + "." + node.Name),
		OriginalFilePath: filepath.ToSlash(node.OriginalFilePath),
		Columns:          columns,
	}
}

// indexTest attributes a test node to the table and column it exercises.
// Relationships tests depend on both sides of the relation; the tested table
// is the last dependency, while every other test kind depends on its table
// first.
func (m *Manifest) indexTest(node manifestNode) {
	if node.TestMetadata == nil || len(node.DependsOn.Nodes) == 0 {
		return
	}

	tableID := node.DependsOn.Nodes[0]
	if node.TestMetadata.Name == "relationships" {
		tableID = node.DependsOn.Nodes[len(node.DependsOn.Nodes)-1]
	}

	columnName := node.ColumnName
	if columnName == "" {
		if v, ok := node.TestMetadata.Kwargs["column_name"].(string); ok {
			columnName = v
		}
	}
	if columnName == "" {
		if v, ok := node.TestMetadata.Kwargs["arg"].(string); ok {
			columnName = v
		}
	}
	if columnName == "" {
		return
	}
	columnName = strings.ToLower(columnName)

	if m.Tests[tableID] == nil {
		m.Tests[tableID] = make(map[string][]string)
	}
	m.Tests[tableID][columnName] = append(m.Tests[tableID][columnName], node.UniqueID)
}
