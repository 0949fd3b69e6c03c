package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterKind_Operators(t *testing.T) {
	tests := []struct {
		kind FilterKind
		want []Operator
	}{
		{FilterText, []Operator{OpEq, OpNeq, OpContains, OpStarts, OpEnds}},
		{FilterNumber, []Operator{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte}},
		{FilterDate, []Operator{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte}},
		{FilterBool, []Operator{OpEq}},
		{FilterReference, []Operator{OpEq, OpNeq}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Operators())
			for _, op := range tt.want {
				assert.True(t, tt.kind.Allows(op))
			}
		})
	}
}

func TestFilterKind_OperatorsReturnsCopy(t *testing.T) {
	ops := FilterText.Operators()
	ops[0] = OpGt
	assert.Equal(t, OpEq, FilterText.Operators()[0])
}

func TestFilterSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    FilterSpec
		wantErr bool
	}{
		{"text contains", TextFilter(OpContains, "acme"), false},
		{"text gt", TextFilter(OpGt, "acme"), true},
		{"number gte", NumberFilter(OpGte, 10), false},
		{"number contains", NumberFilter(OpContains, 10), true},
		{"reference neq", RefFilter(OpNeq, "ind-1"), false},
		{"reference starts", RefFilter(OpStarts, "ind-1"), true},
		{"bool", BoolFilter(true), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				var opErr *InvalidOperatorError
				require.ErrorAs(t, err, &opErr)
				assert.Equal(t, tt.spec.Op, opErr.Op)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilterSpec_IsEmpty(t *testing.T) {
	assert.True(t, TextFilter(OpEq, "  ").IsEmpty())
	assert.True(t, RefFilter(OpEq, "").IsEmpty())
	assert.True(t, FilterSpec{Kind: FilterDate, Op: OpEq}.IsEmpty())
	assert.False(t, NumberFilter(OpEq, 0).IsEmpty())
	assert.False(t, BoolFilter(false).IsEmpty())
}

func TestFilters_MarshalJSON(t *testing.T) {
	f := Filters{
		Search: "acme",
		Columns: map[string]FilterSpec{
			"revenue":    NumberFilter(OpGte, 1000),
			"created_at": DateFilter(OpGt, time.Date(2024, 3, 1, 15, 4, 0, 0, time.UTC)),
			"name":       TextFilter(OpContains, ""),
		},
	}

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"search": "acme",
		"revenue": {"value": 1000, "operator": "gte"},
		"created_at": {"value": "2024-03-01", "operator": "gt"}
	}`, string(data))
}

func TestFilters_MarshalJSON_Empty(t *testing.T) {
	data, err := json.Marshal(Filters{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestFilters_UnmarshalJSON(t *testing.T) {
	var f Filters
	err := json.Unmarshal([]byte(`{
		"search": "acme",
		"revenue": {"value": 1000, "operator": "gte"},
		"industryId": "ind-1",
		"emailOptIn": {"value": true}
	}`), &f)
	require.NoError(t, err)

	assert.Equal(t, "acme", f.Search)
	require.Len(t, f.Columns, 3)
	assert.Equal(t, NumberFilter(OpGte, 1000), f.Columns["revenue"])
	assert.Equal(t, TextFilter(OpEq, "ind-1"), f.Columns["industryId"])
	assert.Equal(t, BoolFilter(true), f.Columns["emailOptIn"])
	assert.Equal(t, []string{"emailOptIn", "industryId", "revenue"}, f.Keys())
}

func TestFilterSpec_Coerce(t *testing.T) {
	tests := []struct {
		name    string
		in      FilterSpec
		kind    FilterKind
		want    FilterSpec
		wantErr bool
	}{
		{
			name: "text to date",
			in:   TextFilter(OpLt, "2024-01-31"),
			kind: FilterDate,
			want: FilterSpec{Kind: FilterDate, Op: OpLt, Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		},
		{
			name: "text to reference",
			in:   TextFilter(OpEq, "ind-1"),
			kind: FilterReference,
			want: RefFilter(OpEq, "ind-1"),
		},
		{
			name: "text to number",
			in:   TextFilter(OpGt, " 12.5 "),
			kind: FilterNumber,
			want: NumberFilter(OpGt, 12.5),
		},
		{
			name:    "bad date",
			in:      TextFilter(OpEq, "March"),
			kind:    FilterDate,
			wantErr: true,
		},
		{
			name:    "bool to number",
			in:      BoolFilter(true),
			kind:    FilterNumber,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Coerce(tt.kind)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilters_Clone(t *testing.T) {
	f := Filters{Search: "x", Columns: map[string]FilterSpec{"name": TextFilter(OpEq, "a")}}
	c := f.Clone()
	c.Columns["name"] = TextFilter(OpEq, "b")
	assert.Equal(t, "a", f.Columns["name"].Text)
	assert.False(t, f.IsEmpty())
	assert.True(t, Filters{}.IsEmpty())
}
