package filter

import (
	"testing"

	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		col      core.Column
		kind     ControlKind
		ops      []core.Operator
		picklist string
	}{
		{
			name: "currency is numeric",
			col:  core.Column{Key: "revenue", Type: core.ColumnCurrency},
			kind: ControlNumber,
			ops:  []core.Operator{core.OpEq, core.OpNeq, core.OpGt, core.OpGte, core.OpLt, core.OpLte},
		},
		{
			name: "percentage is numeric",
			col:  core.Column{Key: "probability", Type: core.ColumnPercentage},
			kind: ControlNumber,
			ops:  []core.Operator{core.OpEq, core.OpNeq, core.OpGt, core.OpGte, core.OpLt, core.OpLte},
		},
		{
			name: "date",
			col:  core.Column{Key: "created_at", Type: core.ColumnDate},
			kind: ControlDate,
			ops:  []core.Operator{core.OpEq, core.OpNeq, core.OpGt, core.OpGte, core.OpLt, core.OpLte},
		},
		{
			name:     "industry select",
			col:      core.Column{Key: "industryId", Type: core.ColumnSelect},
			kind:     ControlPicklist,
			ops:      []core.Operator{core.OpEq, core.OpNeq},
			picklist: "industries",
		},
		{
			name:     "lead status",
			col:      core.Column{Key: "statusId", Type: core.ColumnStatus},
			kind:     ControlPicklist,
			ops:      []core.Operator{core.OpEq, core.OpNeq},
			picklist: "leadstatuses",
		},
		{
			name: "unbound status",
			col:  core.Column{Key: "stage_name", Type: core.ColumnStatus},
			kind: ControlText,
			ops:  []core.Operator{core.OpEq, core.OpNeq},
		},
		{
			name: "boolean",
			col:  core.Column{Key: "emailOptIn", Type: core.ColumnBoolean},
			kind: ControlBoolean,
			ops:  []core.Operator{core.OpEq},
		},
		{
			name: "link is text",
			col:  core.Column{Key: "website", Type: core.ColumnLink},
			kind: ControlText,
			ops:  []core.Operator{core.OpEq, core.OpNeq, core.OpContains, core.OpStarts, core.OpEnds},
		},
		{
			name: "unknown type is text",
			col:  core.Column{Key: "notes", Type: "rating"},
			kind: ControlText,
			ops:  []core.Operator{core.OpEq, core.OpNeq, core.OpContains, core.OpStarts, core.OpEnds},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Resolve(tt.col)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.ops, c.Operators)
			assert.Equal(t, tt.picklist, c.Picklist)
		})
	}
}

func TestControl_DefaultOperator(t *testing.T) {
	assert.Equal(t, core.OpContains, Resolve(core.Column{Type: core.ColumnText}).DefaultOperator())
	assert.Equal(t, core.OpEq, Resolve(core.Column{Key: "stage", Type: core.ColumnStatus}).DefaultOperator())
	assert.Equal(t, core.OpEq, Resolve(core.Column{Type: core.ColumnNumber}).DefaultOperator())
}

func TestOperatorLabel(t *testing.T) {
	assert.Equal(t, "after", OperatorLabel(ControlDate, core.OpGt))
	assert.Equal(t, "before", OperatorLabel(ControlDate, core.OpLt))
	assert.Equal(t, "greater than", OperatorLabel(ControlNumber, core.OpGt))
	assert.Equal(t, "starts with", OperatorLabel(ControlText, core.OpStarts))
}
