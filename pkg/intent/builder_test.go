package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/models"
)

func testSnapshot() *models.SchemaSnapshot {
	return &models.SchemaSnapshot{
		DatabaseName: "shop",
		Tables: []models.TableSchema{
			{Name: "users", Columns: []models.Column{{Name: "id"}, {Name: "name"}, {Name: "email"}}},
			{Name: "orders", Columns: []models.Column{{Name: "id"}, {Name: "status"}}},
			{Name: "order_items", Columns: []models.Column{{Name: "id"}}},
		},
	}
}

func TestBuild_SelectAll(t *testing.T) {
	built, err := Build(&Match{Action: ActionSelectAll, Table: "users"}, testSnapshot())
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "users" LIMIT 100`, built.SQL)
	assert.Empty(t, built.Args)
	assert.Equal(t, "users", built.Table)
}

func TestBuild_ResolvesSingularToPlural(t *testing.T) {
	// "show user" should find the users table.
	built, err := Build(&Match{Action: ActionSelectAll, Table: "user"}, testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "users", built.Table)
}

func TestBuild_ResolvesBySubstring(t *testing.T) {
	built, err := Build(&Match{Action: ActionSelectAll, Table: "items"}, testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "order_items", built.Table)
}

func TestBuild_Count(t *testing.T) {
	built, err := Build(&Match{Action: ActionCount, Table: "orders"}, testSnapshot())
	require.NoError(t, err)

	assert.Equal(t, `SELECT COUNT(*) AS count FROM "orders"`, built.SQL)
	assert.Empty(t, built.Args)
}

func TestBuild_FindWhere_ParameterizesValue(t *testing.T) {
	m := &Match{Action: ActionFindWhere, Table: "users", Column: "name", Value: "alice"}
	built, err := Build(m, testSnapshot())
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "users" WHERE "name" ILIKE $1 LIMIT 50`, built.SQL)
	assert.Equal(t, []any{"alice"}, built.Args)
	assert.NotContains(t, built.SQL, "alice")
}

func TestBuild_FindWhere_RejectsInjectionValue(t *testing.T) {
	m := &Match{Action: ActionFindWhere, Table: "users", Column: "name", Value: "' OR '1'='1"}
	_, err := Build(m, testSnapshot())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnsafeStatement))
}

func TestBuild_FindWhere_UnknownColumn(t *testing.T) {
	m := &Match{Action: ActionFindWhere, Table: "users", Column: "salary", Value: "100"}
	_, err := Build(m, testSnapshot())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestBuild_TopN(t *testing.T) {
	built, err := Build(&Match{Action: ActionTopN, Table: "orders", Limit: 5}, testSnapshot())
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "orders" LIMIT $1`, built.SQL)
	assert.Equal(t, []any{5}, built.Args)
}

func TestBuild_TopN_RejectsNonPositiveLimit(t *testing.T) {
	_, err := Build(&Match{Action: ActionTopN, Table: "orders", Limit: 0}, testSnapshot())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestBuild_ListTables(t *testing.T) {
	built, err := Build(&Match{Action: ActionListTables}, testSnapshot())
	require.NoError(t, err)
	assert.True(t, built.ListTables)
	assert.Empty(t, built.SQL)
}

func TestBuild_UnknownTable(t *testing.T) {
	_, err := Build(&Match{Action: ActionSelectAll, Table: "payments"}, testSnapshot())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestBuild_EmptySnapshot(t *testing.T) {
	_, err := Build(&Match{Action: ActionSelectAll, Table: "users"}, &models.SchemaSnapshot{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestBuild_QuotesIdentifiers(t *testing.T) {
	snap := &models.SchemaSnapshot{
		Tables: []models.TableSchema{
			{Name: `weird"table`, Columns: []models.Column{{Name: "id"}}},
		},
	}
	built, err := Build(&Match{Action: ActionSelectAll, Table: `weird"table`}, snap)
	require.NoError(t, err)

	// Embedded quote is doubled, so the identifier cannot break out.
	assert.Equal(t, `SELECT * FROM "weird""table" LIMIT 100`, built.SQL)
}
