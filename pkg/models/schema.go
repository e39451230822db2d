package models

import "strings"

// Column is one column of a target-database table.
type Column struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	IsNullable bool   `json:"is_nullable"`
}

// TableSchema is a table with its columns in declaration order.
type TableSchema struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// SchemaSnapshot is the derived view of one target database at a point in
// time: every table with its ordered columns. Snapshots ground SQL
// generation and validate identifiers before interpolation; they are cached
// per (user, config) for the process lifetime and invalidated on config
// change.
type SchemaSnapshot struct {
	DatabaseName string        `json:"database_name"`
	Tables       []TableSchema `json:"tables"`
}

// Table returns the table with the given name, case-insensitively.
func (s *SchemaSnapshot) Table(name string) (*TableSchema, bool) {
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].Name, name) {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// HasColumn reports whether the named table has the named column.
func (s *SchemaSnapshot) HasColumn(table, column string) bool {
	t, ok := s.Table(table)
	if !ok {
		return false
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, column) {
			return true
		}
	}
	return false
}

// TableNames returns the table names in snapshot order.
func (s *SchemaSnapshot) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}
