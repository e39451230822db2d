package sqlsafe

import (
	"regexp"
	"strings"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/models"
)

// tableRefPattern captures identifiers following FROM and JOIN keywords,
// optionally schema-qualified or double-quoted.
var tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+("?[a-zA-Z_][a-zA-Z0-9_]*"?(?:\."?[a-zA-Z_][a-zA-Z0-9_]*"?)?)`)

// cteNamePattern captures CTE names so references to them are not mistaken
// for table references.
var cteNamePattern = regexp.MustCompile(`(?i)\b(?:WITH|,)\s*([a-zA-Z_][a-zA-Z0-9_]*)\s+AS\s*\(`)

// ReferencedTables extracts the table names a statement reads from,
// excluding CTE names defined in the statement itself. Names are returned
// unquoted and without schema qualification.
func ReferencedTables(sql string) []string {
	ctes := make(map[string]bool)
	for _, m := range cteNamePattern.FindAllStringSubmatch(sql, -1) {
		ctes[strings.ToLower(m[1])] = true
	}

	seen := make(map[string]bool)
	var tables []string
	for _, m := range tableRefPattern.FindAllStringSubmatch(sql, -1) {
		name := m[1]
		// Drop schema qualification and quoting.
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
		name = strings.Trim(name, `"`)
		lower := strings.ToLower(name)
		if ctes[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		tables = append(tables, name)
	}

	return tables
}

// CheckReferences verifies every table a statement reads exists in the
// schema snapshot. Generated SQL naming a table the target database does
// not have is rejected before execution rather than surfacing as a raw
// database error.
func CheckReferences(sql string, snapshot *models.SchemaSnapshot) error {
	if snapshot == nil {
		return nil
	}

	for _, table := range ReferencedTables(sql) {
		if _, ok := snapshot.Table(table); !ok {
			return apperrors.Newf(apperrors.KindUnsafeStatement,
				"statement references unknown table %q", table)
		}
	}

	return nil
}
