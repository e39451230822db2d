package sqlsafe

import (
	"regexp"
	"strings"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
)

// StatementType represents the type of SQL statement.
type StatementType string

const (
	TypeSelect  StatementType = "SELECT"
	TypeInsert  StatementType = "INSERT"
	TypeUpdate  StatementType = "UPDATE"
	TypeDelete  StatementType = "DELETE"
	TypeCall    StatementType = "CALL"
	TypeDDL     StatementType = "DDL"     // CREATE, ALTER, DROP, TRUNCATE
	TypeUnknown StatementType = "UNKNOWN" // Unrecognized or blocked statement types
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations.
// Example: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE)\b`)

// DetectStatementType determines the type of SQL statement based on the
// first keyword. WITH statements count as SELECT only when no CTE modifies
// data.
func DetectStatementType(sql string) StatementType {
	normalized := strings.ToUpper(strings.TrimSpace(sql))

	switch {
	case strings.HasPrefix(normalized, "SELECT"):
		return TypeSelect

	case strings.HasPrefix(normalized, "WITH"):
		// CTEs starting with WITH could be:
		// 1. Pure SELECT: WITH cte AS (SELECT ...) SELECT * FROM cte
		// 2. Data-modifying CTE: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
		if modifyingCTEPattern.MatchString(sql) {
			return TypeUnknown
		}
		return TypeSelect

	case strings.HasPrefix(normalized, "INSERT"):
		return TypeInsert

	case strings.HasPrefix(normalized, "UPDATE"):
		return TypeUpdate

	case strings.HasPrefix(normalized, "DELETE"):
		return TypeDelete

	case strings.HasPrefix(normalized, "CALL"):
		return TypeCall

	case strings.HasPrefix(normalized, "CREATE"),
		strings.HasPrefix(normalized, "ALTER"),
		strings.HasPrefix(normalized, "DROP"),
		strings.HasPrefix(normalized, "TRUNCATE"):
		return TypeDDL

	// Transaction control is never allowed in resolved queries.
	case strings.HasPrefix(normalized, "BEGIN"),
		strings.HasPrefix(normalized, "COMMIT"),
		strings.HasPrefix(normalized, "ROLLBACK"),
		strings.HasPrefix(normalized, "SAVEPOINT"):
		return TypeUnknown

	default:
		return TypeUnknown
	}
}

// RequireReadOnly validates that the statement is a single read-only SELECT
// (or pure-SELECT CTE). Everything else is rejected with an unsafe-statement
// error naming the detected type.
func RequireReadOnly(sql string) (StatementType, error) {
	stype := DetectStatementType(sql)

	switch stype {
	case TypeSelect:
		return stype, nil
	case TypeDDL:
		return stype, apperrors.New(apperrors.KindUnsafeStatement,
			"DDL statements (CREATE, ALTER, DROP, TRUNCATE) are not allowed")
	case TypeInsert, TypeUpdate, TypeDelete, TypeCall:
		return stype, apperrors.Newf(apperrors.KindUnsafeStatement,
			"%s statements modify data and are not allowed", stype)
	default:
		return stype, apperrors.New(apperrors.KindUnsafeStatement,
			"unrecognized SQL statement type; only read-only SELECT statements are allowed")
	}
}
