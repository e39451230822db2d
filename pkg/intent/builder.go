package intent

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jinzhu/inflection"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/models"
	"github.com/sayandkrishna/querypilot/pkg/sqlsafe"
)

const (
	// selectAllLimit caps plain listing queries.
	selectAllLimit = 100
	// findWhereLimit caps filtered search queries.
	findWhereLimit = 50
)

// BuiltQuery is the executable form of a matched intent. Literal values
// from the question ride as bind args, never interpolated into the SQL
// text. ListTables is answered from the schema snapshot without SQL.
type BuiltQuery struct {
	SQL        string
	Args       []any
	Table      string
	ListTables bool
}

// Build resolves a match against the schema snapshot and produces the SQL
// for it. Returns a validation error when the question names a table or
// column the snapshot does not have; callers treat that as "intent cannot
// answer this" and fall through to the generator.
func Build(m *Match, snapshot *models.SchemaSnapshot) (*BuiltQuery, error) {
	if m.Action == ActionListTables {
		return &BuiltQuery{ListTables: true}, nil
	}

	table, err := resolveTable(m.Table, snapshot)
	if err != nil {
		return nil, err
	}
	quoted := pgx.Identifier{table}.Sanitize()

	switch m.Action {
	case ActionSelectAll:
		return &BuiltQuery{
			SQL:   fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoted, selectAllLimit),
			Table: table,
		}, nil

	case ActionCount:
		return &BuiltQuery{
			SQL:   fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", quoted),
			Table: table,
		}, nil

	case ActionFindWhere:
		column, err := resolveColumn(m.Column, table, snapshot)
		if err != nil {
			return nil, err
		}
		if err := sqlsafe.ScreenValues([]string{m.Value}); err != nil {
			return nil, err
		}
		return &BuiltQuery{
			SQL: fmt.Sprintf("SELECT * FROM %s WHERE %s ILIKE $1 LIMIT %d",
				quoted, pgx.Identifier{column}.Sanitize(), findWhereLimit),
			Args:  []any{m.Value},
			Table: table,
		}, nil

	case ActionTopN:
		if m.Limit <= 0 {
			return nil, apperrors.New(apperrors.KindValidation, "row limit must be positive")
		}
		return &BuiltQuery{
			SQL:   fmt.Sprintf("SELECT * FROM %s LIMIT $1", quoted),
			Args:  []any{m.Limit},
			Table: table,
		}, nil

	default:
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown intent action %q", m.Action)
	}
}

// resolveTable maps the raw table words from the question to an actual
// table name. Tries the exact name first, then singular/plural variants,
// then substring containment in either direction.
func resolveTable(hint string, snapshot *models.SchemaSnapshot) (string, error) {
	if hint == "" {
		return "", apperrors.New(apperrors.KindValidation, "no table named in question")
	}
	if snapshot == nil || len(snapshot.Tables) == 0 {
		return "", apperrors.New(apperrors.KindValidation, "target database has no tables")
	}

	candidates := []string{hint, inflection.Singular(hint), inflection.Plural(hint)}
	for _, candidate := range candidates {
		if t, ok := snapshot.Table(candidate); ok {
			return t.Name, nil
		}
	}

	lower := strings.ToLower(hint)
	for _, t := range snapshot.Tables {
		name := strings.ToLower(t.Name)
		if strings.Contains(name, lower) || strings.Contains(lower, name) {
			return t.Name, nil
		}
	}

	return "", apperrors.Newf(apperrors.KindValidation, "no table matching %q", hint)
}

func resolveColumn(hint, table string, snapshot *models.SchemaSnapshot) (string, error) {
	t, ok := snapshot.Table(table)
	if !ok {
		return "", apperrors.Newf(apperrors.KindValidation, "no table matching %q", table)
	}

	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, hint) {
			return c.Name, nil
		}
	}

	return "", apperrors.Newf(apperrors.KindValidation, "table %q has no column %q", table, hint)
}
