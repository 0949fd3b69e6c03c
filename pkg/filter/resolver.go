// Package filter maps entity list columns to filter input controls and
// collects user filter input into core.Filters.
package filter

import (
	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// ControlKind is the input control offered for a filterable column.
type ControlKind string

// Control kinds.
const (
	ControlText     ControlKind = "text"
	ControlNumber   ControlKind = "number"
	ControlDate     ControlKind = "date"
	ControlBoolean  ControlKind = "boolean"
	ControlPicklist ControlKind = "picklist"
)

// Control describes how a column is filtered.
type Control struct {
	Column    core.Column
	Kind      ControlKind
	Filter    core.FilterKind
	Operators []core.Operator
	// Picklist is the lookup entity type backing a picklist control.
	Picklist string
}

// DefaultOperator is the operator preselected for the control.
func (c Control) DefaultOperator() core.Operator {
	if c.Kind == ControlText && len(c.Operators) > 2 {
		return core.OpContains
	}
	return core.OpEq
}

// Allows reports whether op is offered by the control.
func (c Control) Allows(op core.Operator) bool {
	for _, o := range c.Operators {
		if o == op {
			return true
		}
	}
	return false
}

// references binds reference-id column keys to their lookup lists.
var references = map[string]string{
	"industryId":    "industries",
	"sizeId":        "companysizes",
	"statusId":      "leadstatuses",
	"temperatureId": "leadtemperatures",
}

// ReferenceFor returns the picklist entity type for a reference column key.
func ReferenceFor(key string) (string, bool) {
	t, ok := references[key]
	return t, ok
}

// Resolve picks the filter control and operator set for a column.
func Resolve(col core.Column) Control {
	c := Control{Column: col}
	switch col.Type {
	case core.ColumnNumber, core.ColumnCurrency, core.ColumnPercentage:
		c.Kind, c.Filter = ControlNumber, core.FilterNumber
		c.Operators = core.FilterNumber.Operators()
	case core.ColumnDate:
		c.Kind, c.Filter = ControlDate, core.FilterDate
		c.Operators = core.FilterDate.Operators()
	case core.ColumnStatus, core.ColumnSelect:
		if lookup, ok := ReferenceFor(col.Key); ok {
			c.Kind, c.Filter, c.Picklist = ControlPicklist, core.FilterReference, lookup
			c.Operators = core.FilterReference.Operators()
		} else {
			// unbound status columns filter on their display text
			c.Kind, c.Filter = ControlText, core.FilterText
			c.Operators = []core.Operator{core.OpEq, core.OpNeq}
		}
	case core.ColumnBoolean:
		c.Kind, c.Filter = ControlBoolean, core.FilterBool
		c.Operators = core.FilterBool.Operators()
	default:
		c.Kind, c.Filter = ControlText, core.FilterText
		c.Operators = core.FilterText.Operators()
	}
	return c
}

// OperatorLabel is the human label for op on a control of the given kind.
func OperatorLabel(kind ControlKind, op core.Operator) string {
	if kind == ControlDate {
		switch op {
		case core.OpGt:
			return "after"
		case core.OpLt:
			return "before"
		case core.OpGte:
			return "on or after"
		case core.OpLte:
			return "on or before"
		}
	}
	switch op {
	case core.OpEq:
		return "equals"
	case core.OpNeq:
		return "not equals"
	case core.OpContains:
		return "contains"
	case core.OpStarts:
		return "starts with"
	case core.OpEnds:
		return "ends with"
	case core.OpGt:
		return "greater than"
	case core.OpGte:
		return "greater or equal"
	case core.OpLt:
		return "less than"
	case core.OpLte:
		return "less or equal"
	default:
		return string(op)
	}
}
