package devserver

import (
	"errors"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func companiesDef(t *testing.T) entityDef {
	t.Helper()
	def, err := lookupEntity("companies")
	require.NoError(t, err)
	return def
}

func TestLookupEntity(t *testing.T) {
	_, err := lookupEntity("Companies")
	require.NoError(t, err)

	_, err = lookupEntity("widgets")
	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "UNSUPPORTED_ENTITY", qe.Code)

	assert.Equal(t, []string{"companies", "contacts", "deals", "leads"}, EntityTypes())
}

func TestBuildEntityQuery_SortAndPaging(t *testing.T) {
	req := core.EntityQueryRequest{EntityType: "companies", SortBy: "name", SortOrder: core.SortAsc}
	countSQL, pageSQL, args, err := buildEntityQuery(companiesDef(t), req)
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM "+entityDefs["companies"].from, countSQL)
	assert.Contains(t, pageSQL, "ORDER BY c.name ASC NULLS LAST, c.id LIMIT ? OFFSET ?")
	assert.Contains(t, pageSQL, `c.industry_id AS "industryId"`)
	assert.Empty(t, args)
}

func TestBuildEntityQuery_ReferenceSortUsesLabel(t *testing.T) {
	req := core.EntityQueryRequest{SortBy: "industryId", SortOrder: core.SortDesc}
	_, pageSQL, _, err := buildEntityQuery(companiesDef(t), req)
	require.NoError(t, err)
	assert.Contains(t, pageSQL, "ORDER BY ind.name DESC NULLS LAST, c.id")
}

func TestBuildEntityQuery_DefaultOrderIsID(t *testing.T) {
	_, pageSQL, _, err := buildEntityQuery(companiesDef(t), core.EntityQueryRequest{})
	require.NoError(t, err)
	assert.Contains(t, pageSQL, "ORDER BY c.id LIMIT")
}

func TestBuildEntityQuery_Filters(t *testing.T) {
	req := core.EntityQueryRequest{
		Filters: core.Filters{
			Search: "acme",
			Columns: map[string]core.FilterSpec{
				"revenue":    core.TextFilter(core.OpGte, "500000"),
				"industryId": core.RefFilter(core.OpEq, "ind-1"),
				"name":       core.TextFilter(core.OpContains, ""),
			},
		},
	}
	countSQL, _, args, err := buildEntityQuery(companiesDef(t), req)
	require.NoError(t, err)

	assert.Contains(t, countSQL, `(c.name LIKE ? ESCAPE '\' OR c.domain LIKE ? ESCAPE '\' OR c.website LIKE ? ESCAPE '\')`)
	assert.Contains(t, countSQL, "c.industry_id = ?")
	assert.Contains(t, countSQL, "c.revenue >= ?")
	assert.NotContains(t, countSQL, "LOWER(c.name)", "empty filters are dropped")
	// search first, then column filters in key order
	assert.Equal(t, []any{"%acme%", "%acme%", "%acme%", "ind-1", 500000.0}, args)
}

func TestBuildEntityQuery_Rejects(t *testing.T) {
	tests := []struct {
		name string
		req  core.EntityQueryRequest
		code string
	}{
		{
			name: "unknown filter column",
			req:  core.EntityQueryRequest{Filters: core.Filters{Columns: map[string]core.FilterSpec{"nope": core.TextFilter(core.OpEq, "x")}}},
			code: "INVALID_FILTER",
		},
		{
			name: "operator not valid for kind",
			req:  core.EntityQueryRequest{Filters: core.Filters{Columns: map[string]core.FilterSpec{"revenue": core.NumberFilter(core.OpContains, 1)}}},
			code: "INVALID_FILTER",
		},
		{
			name: "value not parseable",
			req:  core.EntityQueryRequest{Filters: core.Filters{Columns: map[string]core.FilterSpec{"created_at": core.TextFilter(core.OpGt, "yesterday")}}},
			code: "INVALID_FILTER",
		},
		{
			name: "unknown sort key",
			req:  core.EntityQueryRequest{SortBy: "nope"},
			code: "INVALID_SORT",
		},
		{
			name: "unsortable column",
			req:  core.EntityQueryRequest{SortBy: "website"},
			code: "INVALID_SORT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := buildEntityQuery(companiesDef(t), tt.req)
			var qe *QueryError
			require.True(t, errors.As(err, &qe), "got %v", err)
			assert.Equal(t, tt.code, qe.Code)
		})
	}
}

func TestFilterClause(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		spec   core.FilterSpec
		clause string
		args   []any
	}{
		{"text eq", core.TextFilter(core.OpEq, "Acme"), "LOWER(x) = LOWER(?)", []any{"Acme"}},
		{"text neq", core.TextFilter(core.OpNeq, "Acme"), "(x IS NULL OR LOWER(x) <> LOWER(?))", []any{"Acme"}},
		{"text contains", core.TextFilter(core.OpContains, "50%"), `x LIKE ? ESCAPE '\'`, []any{`%50\%%`}},
		{"text starts", core.TextFilter(core.OpStarts, "Ac"), `x LIKE ? ESCAPE '\'`, []any{"Ac%"}},
		{"text ends", core.TextFilter(core.OpEnds, "me"), `x LIKE ? ESCAPE '\'`, []any{"%me"}},
		{"number lt", core.NumberFilter(core.OpLt, 10), "x < ?", []any{10.0}},
		{"date gte", core.DateFilter(core.OpGte, day), "date(x) >= ?", []any{"2024-03-01"}},
		{"bool", core.BoolFilter(true), "x = ?", []any{true}},
		{"reference neq", core.RefFilter(core.OpNeq, "r1"), "(x IS NULL OR x <> ?)", []any{"r1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args, err := filterClause("x", tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.clause, clause)
			assert.Equal(t, tt.args, args)
		})
	}

	_, _, err := filterClause("x", core.FilterSpec{Kind: core.FilterKind(99)})
	assert.Error(t, err)
}
