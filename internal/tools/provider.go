// Package tools exposes the query-engine operations the model is allowed to
// call: catalog lookups, plan explanation and benchmarking. Every operation
// returns an ok-shaped result; execution failures are data for the model,
// never errors.
package tools

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Provider owns a read-only SQLite connection for the lifetime of one
// optimization run.
type Provider struct {
	db *sql.DB
}

// Open opens the database read-only. The mode=ro URI plus query_only makes
// it impossible for a tool invocation to mutate data regardless of what SQL
// the model supplies.
func Open(path string) (*Provider, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// One connection: pragmas are per-connection and the control flow is
	// strictly sequential anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA query_only = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return &Provider{db: db}, nil
}

// Close releases the underlying connection
func (p *Provider) Close() error {
	return p.db.Close()
}

// TableInfo describes one catalog relation
type TableInfo struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// ListTablesResult is the result of the list_tables tool
type ListTablesResult struct {
	OK     bool        `json:"ok"`
	Tables []TableInfo `json:"tables,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ListTables lists tables and views across attached schemas, excluding
// SQLite system tables
func (p *Provider) ListTables() ListTablesResult {
	rows, err := p.db.Query(`
		SELECT schema, name, type
		FROM pragma_table_list
		WHERE name NOT LIKE 'sqlite_%'
		ORDER BY schema, name
	`)
	if err != nil {
		return ListTablesResult{Error: fmt.Sprintf("list_tables failed: %v", err)}
	}
	defer rows.Close()

	var tables []TableInfo
	for rows.Next() {
		var ti TableInfo
		if err := rows.Scan(&ti.Schema, &ti.Name, &ti.Type); err != nil {
			return ListTablesResult{Error: fmt.Sprintf("list_tables failed: %v", err)}
		}
		tables = append(tables, ti)
	}
	if err := rows.Err(); err != nil {
		return ListTablesResult{Error: fmt.Sprintf("list_tables failed: %v", err)}
	}

	return ListTablesResult{OK: true, Tables: tables}
}

// ExistsResult is the result of the table_exists tool
type ExistsResult struct {
	OK     bool   `json:"ok"`
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
	Error  string `json:"error,omitempty"`
}

// TableExists checks the catalog for a relation. Accepts schema.table or a
// bare table name; the bare form matches any attached schema.
func (p *Provider) TableExists(name string) ExistsResult {
	var (
		n   int
		err error
	)

	if schema, table, qualified := splitRelation(name); qualified {
		err = p.db.QueryRow(`
			SELECT COUNT(*) FROM pragma_table_list
			WHERE schema = ? AND name = ?
		`, schema, table).Scan(&n)
	} else {
		err = p.db.QueryRow(`
			SELECT COUNT(*) FROM pragma_table_list
			WHERE name = ?
		`, name).Scan(&n)
	}

	if err != nil {
		return ExistsResult{Name: name, Error: fmt.Sprintf("table_exists failed: %v", err)}
	}
	return ExistsResult{OK: true, Name: name, Exists: n > 0}
}

// Column describes one relation column
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DescribeResult is the result of the describe_relation tool. A qualified
// name fills Columns; a bare name may match several schemas and fills
// Schemas instead.
type DescribeResult struct {
	OK         bool                `json:"ok"`
	Relation   string              `json:"relation,omitempty"`
	Columns    []Column            `json:"columns,omitempty"`
	Schemas    map[string][]Column `json:"schemas,omitempty"`
	NumColumns int                 `json:"num_columns,omitempty"`
	Error      string              `json:"error,omitempty"`
}

const defaultSampleCols = 200

// DescribeRelation returns column names and types from the catalog
func (p *Provider) DescribeRelation(name string, sampleCols int) DescribeResult {
	if sampleCols <= 0 {
		sampleCols = defaultSampleCols
	}

	if schema, table, qualified := splitRelation(name); qualified {
		cols, err := p.tableColumns(table, schema)
		if err != nil {
			return DescribeResult{Error: fmt.Sprintf("describe_relation failed: %v", err)}
		}
		if len(cols) == 0 {
			return DescribeResult{Error: fmt.Sprintf("Relation not found in catalog: %s", name)}
		}
		total := len(cols)
		if len(cols) > sampleCols {
			cols = cols[:sampleCols]
		}
		return DescribeResult{OK: true, Relation: name, Columns: cols, NumColumns: total}
	}

	// Bare name: collect matches across every attached schema
	rows, err := p.db.Query(`
		SELECT t.schema, c.name, c.type
		FROM pragma_table_list AS t, pragma_table_info(t.name, t.schema) AS c
		WHERE t.name = ?
		ORDER BY t.schema, c.cid
	`, name)
	if err != nil {
		return DescribeResult{Error: fmt.Sprintf("describe_relation failed: %v", err)}
	}
	defer rows.Close()

	grouped := make(map[string][]Column)
	total := 0
	for rows.Next() {
		var schema string
		var col Column
		if err := rows.Scan(&schema, &col.Name, &col.Type); err != nil {
			return DescribeResult{Error: fmt.Sprintf("describe_relation failed: %v", err)}
		}
		total++
		if total <= sampleCols {
			grouped[schema] = append(grouped[schema], col)
		}
	}
	if err := rows.Err(); err != nil {
		return DescribeResult{Error: fmt.Sprintf("describe_relation failed: %v", err)}
	}

	if total == 0 {
		return DescribeResult{Error: fmt.Sprintf("Relation not found in catalog: %s", name)}
	}

	return DescribeResult{OK: true, Relation: name, Schemas: grouped, NumColumns: total}
}

func (p *Provider) tableColumns(table, schema string) ([]Column, error) {
	rows, err := p.db.Query(`
		SELECT name, type FROM pragma_table_info(?, ?) ORDER BY cid
	`, table, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// ExplainResult is the result of the explain tool
type ExplainResult struct {
	OK    bool   `json:"ok"`
	Plan  string `json:"plan,omitempty"`
	Error string `json:"error,omitempty"`
}

// Explain runs EXPLAIN QUERY PLAN and renders the node tree as indented text
func (p *Provider) Explain(query string) ExplainResult {
	rows, err := p.db.Query("EXPLAIN QUERY PLAN " + query)
	if err != nil {
		return ExplainResult{Error: fmt.Sprintf("EXPLAIN failed: %v", err)}
	}
	defer rows.Close()

	depth := map[int]int{0: 0}
	var lines []string
	for rows.Next() {
		var id, parent, notUsed int
		var detail string
		if err := rows.Scan(&id, &parent, &notUsed, &detail); err != nil {
			return ExplainResult{Error: fmt.Sprintf("EXPLAIN failed: %v", err)}
		}
		d := depth[parent] + 1
		depth[id] = d
		lines = append(lines, strings.Repeat("  ", d-1)+detail)
	}
	if err := rows.Err(); err != nil {
		return ExplainResult{Error: fmt.Sprintf("EXPLAIN failed: %v", err)}
	}

	return ExplainResult{OK: true, Plan: strings.Join(lines, "\n")}
}

// splitRelation splits schema.table names on the first dot
func splitRelation(name string) (schema, table string, qualified bool) {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i], name[i+1:], true
	}
	return "", name, false
}
