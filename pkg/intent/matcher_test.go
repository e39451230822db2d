package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_Scenarios(t *testing.T) {
	m := NewMatcher(DefaultPatterns())

	tests := []struct {
		name     string
		question string
		want     *Match
	}{
		{
			name:     "list entity",
			question: "show users",
			want:     &Match{Pattern: "list_entity", Action: ActionSelectAll, Confidence: 0.95, Table: "users"},
		},
		{
			name:     "list all entity",
			question: "list all products",
			want:     &Match{Pattern: "list_entity", Action: ActionSelectAll, Confidence: 0.95, Table: "products"},
		},
		{
			name:     "mixed case",
			question: "  Show Users ",
			want:     &Match{Pattern: "list_entity", Action: ActionSelectAll, Confidence: 0.95, Table: "users"},
		},
		{
			name:     "records from",
			question: "show all records from orders",
			want:     &Match{Pattern: "show_records_from", Action: ActionSelectAll, Confidence: 0.9, Table: "orders"},
		},
		{
			name:     "count",
			question: "count records in customers",
			want:     &Match{Pattern: "count_records", Action: ActionCount, Confidence: 0.9, Table: "customers"},
		},
		{
			name:     "list tables",
			question: "list all tables",
			want:     &Match{Pattern: "list_tables", Action: ActionListTables, Confidence: 0.95},
		},
		{
			name:     "find where",
			question: "find users where name = 'alice'",
			want:     &Match{Pattern: "find_where", Action: ActionFindWhere, Confidence: 0.8, Table: "users", Column: "name", Value: "alice"},
		},
		{
			name:     "find where unquoted",
			question: "search orders where status = shipped",
			want:     &Match{Pattern: "find_where", Action: ActionFindWhere, Confidence: 0.8, Table: "orders", Column: "status", Value: "shipped"},
		},
		{
			name:     "top n",
			question: "top 5 rows from events",
			want:     &Match{Pattern: "top_n", Action: ActionTopN, Confidence: 0.85, Table: "events", Limit: 5},
		},
		{
			name:     "first n records",
			question: "first 20 records from logs",
			want:     &Match{Pattern: "top_n", Action: ActionTopN, Confidence: 0.85, Table: "logs", Limit: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Match(tt.question)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_NoMatch(t *testing.T) {
	m := NewMatcher(DefaultPatterns())

	for _, q := range []string{
		"",
		"   ",
		"what was our revenue growth quarter over quarter",
		"compare average order value by region",
	} {
		_, ok := m.Match(q)
		assert.False(t, ok, "expected no match for %q", q)
	}
}

func TestMatch_FirstMatchWins(t *testing.T) {
	m := NewMatcher(DefaultPatterns())

	// "list all tables" also matches the general list_entity rule, but
	// list_tables comes first in order and wins.
	got, ok := m.Match("list all tables")
	require.True(t, ok)
	assert.Equal(t, "list_tables", got.Pattern)

	// "show tables" cannot match the list_tables rule, so the general
	// listing rule takes it and table resolution decides downstream.
	got, ok = m.Match("show tables")
	require.True(t, ok)
	assert.Equal(t, "list_entity", got.Pattern)
	assert.Equal(t, "tables", got.Table)
}

func TestMatch_Deterministic(t *testing.T) {
	m := NewMatcher(DefaultPatterns())

	first, ok := m.Match("top 3 rows from users")
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		got, ok := m.Match("top 3 rows from users")
		require.True(t, ok)
		assert.Equal(t, first, got)
	}
}
