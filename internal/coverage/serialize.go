package coverage

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Document is the persisted catalog-level report shape. It stores counts and
// child listings only, not the underlying column ref identities: a report
// rehydrated from a document preserves cardinalities and count arithmetic but
// cannot attribute regressions to specific columns beyond the stored names.
type Document struct {
	CovType  string          `json:"cov_type"`
	Covered  int             `json:"covered"`
	Total    int             `json:"total"`
	Coverage float64         `json:"coverage"`
	Tables   []TableDocument `json:"tables"`
}

// TableDocument is the persisted table-level node.
type TableDocument struct {
	Name     string           `json:"name"`
	Covered  int              `json:"covered"`
	Total    int              `json:"total"`
	Coverage float64          `json:"coverage"`
	Columns  []ColumnDocument `json:"columns"`
}

// ColumnDocument is the persisted column-level node.
type ColumnDocument struct {
	Name     string  `json:"name"`
	Covered  int     `json:"covered"`
	Total    int     `json:"total"`
	Coverage float64 `json:"coverage"`
}

// ToDocument converts a catalog-level report to its persisted document form.
// Tables and columns are emitted sorted by name.
func (r *Report) ToDocument() (*Document, error) {
	if r.EntityType != EntityCatalog {
		return nil, fmt.Errorf("unsupported entity type for document conversion: %s", r.EntityType)
	}

	doc := &Document{
		CovType:  r.CovType.String(),
		Covered:  len(r.Covered),
		Total:    len(r.Total),
		Coverage: r.Coverage,
		Tables:   make([]TableDocument, 0, len(r.Subentities)),
	}

	for _, name := range sortedKeys(r.Subentities) {
		table := r.Subentities[name]
		tableDoc := TableDocument{
			Name:     table.EntityName,
			Covered:  len(table.Covered),
			Total:    len(table.Total),
			Coverage: table.Coverage,
			Columns:  make([]ColumnDocument, 0, len(table.Subentities)),
		}
		for _, colName := range sortedKeys(table.Subentities) {
			col := table.Subentities[colName]
			tableDoc.Columns = append(tableDoc.Columns, ColumnDocument{
				Name:     col.EntityName,
				Covered:  len(col.Covered),
				Total:    len(col.Total),
				Coverage: col.Coverage,
			})
		}
		doc.Tables = append(doc.Tables, tableDoc)
	}

	return doc, nil
}

// ToJSON serializes a catalog-level report to an indented JSON document.
func (r *Report) ToJSON() ([]byte, error) {
	doc, err := r.ToDocument()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ReadReport deserializes a JSON coverage document into a report tree.
// The reconstructed refs are synthetic placeholders carrying the stored
// table/column names; only counts are guaranteed to round-trip.
func ReadReport(data []byte) (*Report, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	rawType, ok := doc["cov_type"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing cov_type", ErrMalformedDocument)
	}
	covType, err := ParseType(rawType)
	if err != nil {
		return nil, err
	}

	return fromDocument(doc, covType)
}

// fromDocument rebuilds one report node from its document form. The node
// shape is recognized by which child key is present, mirroring the document
// layout: catalogs carry "tables", tables carry "columns", columns neither.
func fromDocument(doc map[string]any, covType Type) (*Report, error) {
	if rawTables, ok := doc["tables"]; ok {
		tables, ok := rawTables.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: tables is not a list", ErrMalformedDocument)
		}
		sub := make(map[string]*Report, len(tables))
		for _, rawTable := range tables {
			tableDoc, ok := rawTable.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: table entry is not an object", ErrMalformedDocument)
			}
			tableReport, err := fromDocument(tableDoc, covType)
			if err != nil {
				return nil, err
			}
			sub[tableReport.EntityName] = tableReport
		}

		covered := make(RefSet)
		total := make(RefSet)
		for _, tableReport := range sub {
			for ref := range tableReport.Covered {
				covered[ref] = struct{}{}
			}
			for ref := range tableReport.Total {
				total[ref] = struct{}{}
			}
		}
		return newReport(EntityCatalog, covType, "", covered, total, sub), nil
	}

	name, ok := doc["name"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing name", ErrMalformedDocument)
	}

	if rawColumns, ok := doc["columns"]; ok {
		columns, ok := rawColumns.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: columns is not a list", ErrMalformedDocument)
		}
		sub := make(map[string]*Report, len(columns))
		for _, rawColumn := range columns {
			colDoc, ok := rawColumn.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: column entry is not an object", ErrMalformedDocument)
			}
			colReport, err := fromDocument(colDoc, covType)
			if err != nil {
				return nil, err
			}
			sub[colReport.EntityName] = colReport
		}

		covered := make(RefSet)
		total := make(RefSet)
		for _, colReport := range sub {
			for ref := range colReport.Covered {
				covered[ColumnRef{TableName: name, ColumnName: ref.ColumnName}] = struct{}{}
			}
			for ref := range colReport.Total {
				total[ColumnRef{TableName: name, ColumnName: ref.ColumnName}] = struct{}{}
			}
		}
		return newReport(EntityTable, covType, name, covered, total, sub), nil
	}

	coveredCount, ok := doc["covered"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing covered count for column %s", ErrMalformedDocument, name)
	}
	if _, ok := doc["total"].(float64); !ok {
		return nil, fmt.Errorf("%w: missing total count for column %s", ErrMalformedDocument, name)
	}

	ref := ColumnRef{ColumnName: name}
	covered := make(RefSet)
	if coveredCount > 0 {
		covered[ref] = struct{}{}
	}
	return newReport(EntityColumn, covType, name, covered, NewRefSet(ref), nil), nil
}

// sortedKeys returns map keys in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
