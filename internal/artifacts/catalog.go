package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Column is a queryable column with its coverage flags resolved. The flags
// are derived during ingestion: Documented when the manifest description is
// non-empty, Tested when at least one test references the column.
type Column struct {
	Name       string
	Documented bool
	Tested     bool
}

// Table is a queryable table from the catalog, enriched with manifest
// metadata.
type Table struct {
	UniqueID         string
	Name             string
	OriginalFilePath string
	Columns          map[string]Column
}

// Catalog is the full set of tables known to the project, keyed by unique id.
type Catalog struct {
	Tables map[string]Table
}

// Filter returns a catalog narrowed to tables whose original file path starts
// with any of the given prefixes. Callers must treat an empty result as an
// error before building reports from it.
func (c *Catalog) Filter(pathPrefixes []string) *Catalog {
	filtered := make(map[string]Table)
	for id, table := range c.Tables {
		for _, prefix := range pathPrefixes {
			if strings.HasPrefix(table.OriginalFilePath, prefix) {
				filtered[id] = table
				break
			}
		}
	}
	return &Catalog{Tables: filtered}
}

// catalogFile mirrors the subset of catalog.json that ingestion reads.
type catalogFile struct {
	Nodes   map[string]catalogNode `json:"nodes"`
	Sources map[string]catalogNode `json:"sources"`
}

type catalogNode struct {
	UniqueID string                   `json:"unique_id"`
	Columns  map[string]catalogColumn `json:"columns"`
}

type catalogColumn struct {
	Name string `json:"name"`
}

// LoadCatalog reads catalog.json from <projectDir>/target (or artifactsDir
// when non-empty) and joins each node against the manifest to resolve table
// names, file paths and per-column coverage flags. Nodes storing test
// failures (test.* unique ids) are skipped.
func LoadCatalog(projectDir, artifactsDir string, manifest *Manifest) (*Catalog, error) {
	dir := filepath.Join(projectDir, "target")
	if artifactsDir != "" {
		dir = artifactsDir
	}
	path := filepath.Join(dir, "catalog.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("catalog.json not found at %s: run 'dbt docs generate' first", path)
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	nodes := make(map[string]catalogNode, len(file.Nodes)+len(file.Sources))
	for id, node := range file.Sources {
		nodes[id] = node
	}
	for id, node := range file.Nodes {
		nodes[id] = node
	}

	tables := make(map[string]Table)
	for id, node := range nodes {
		if strings.HasPrefix(id, "test.") {
			continue
		}
		table, err := buildTable(id, node, manifest)
		if err != nil {
			return nil, err
		}
		tables[id] = table
	}

	return &Catalog{Tables: tables}, nil
}

// buildTable joins one catalog node with its manifest entry.
func buildTable(id string, node catalogNode, manifest *Manifest) (Table, error) {
	manifestTable, err := manifest.GetTable(id)
	if err != nil {
		return Table{}, err
	}
	if manifestTable == nil {
		return Table{}, fmt.Errorf("unique id %s not found in manifest.json", id)
	}
	if manifestTable.OriginalFilePath == "" {
		fmt.Fprintf(os.Stderr, "Warning: original_file_path not found in manifest for %s\n", id)
	}

	columns := make(map[string]Column, len(node.Columns))
	for _, col := range node.Columns {
		name := strings.ToLower(col.Name)
		columns[name] = Column{
			Name:       name,
			Documented: manifestTable.Columns[name].Description != "",
			Tested:     manifest.HasTest(id, name),
		}
	}

	return Table{
		UniqueID:         id,
		Name:             manifestTable.Name,
		OriginalFilePath: manifestTable.OriginalFilePath,
		Columns:          columns,
	}, nil
}
