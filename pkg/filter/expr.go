package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// Expr is a parsed "key<op>value" filter expression.
type Expr struct {
	Key   string
	Op    core.Operator
	Value string
}

// symbols maps expression operators to filter operators, longest first.
var symbols = []struct {
	sym string
	op  core.Operator
}{
	{"!=", core.OpNeq},
	{">=", core.OpGte},
	{"<=", core.OpLte},
	{"^=", core.OpStarts},
	{"$=", core.OpEnds},
	{"~", core.OpContains},
	{">", core.OpGt},
	{"<", core.OpLt},
	{"=", core.OpEq},
}

// Symbol returns the expression symbol for op, or "" when it has none.
func Symbol(op core.Operator) string {
	for _, sym := range symbols {
		if sym.op == op {
			return sym.sym
		}
	}
	return ""
}

// ParseExpr parses expressions such as "revenue>=1000", "name~acme",
// "name^=Ac", "created_at<2024-01-01" or "industryId=Technology".
func ParseExpr(s string) (Expr, error) {
	i := strings.IndexAny(s, "=!~^$<>")
	if i <= 0 {
		return Expr{}, fmt.Errorf("invalid filter %q (want key<op>value, e.g. name~acme)", s)
	}
	rest := s[i:]
	for _, sym := range symbols {
		if strings.HasPrefix(rest, sym.sym) {
			return Expr{
				Key:   strings.TrimSpace(s[:i]),
				Op:    sym.op,
				Value: strings.TrimSpace(rest[len(sym.sym):]),
			}, nil
		}
	}
	return Expr{}, fmt.Errorf("invalid operator in filter %q", s)
}

// Build turns a raw value into a typed filter for the control.
// For picklist controls value must already be the item id.
func Build(ctrl Control, op core.Operator, value string) (core.FilterSpec, error) {
	if !ctrl.Allows(op) {
		return core.FilterSpec{}, &core.InvalidOperatorError{Kind: ctrl.Filter, Op: op}
	}
	switch ctrl.Filter {
	case core.FilterNumber:
		n, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return core.FilterSpec{}, fmt.Errorf("%s: invalid number %q", ctrl.Column.Key, value)
		}
		return core.NumberFilter(op, n), nil
	case core.FilterDate:
		t, err := time.Parse(core.DateLayout, value)
		if err != nil {
			return core.FilterSpec{}, fmt.Errorf("%s: invalid date %q (want YYYY-MM-DD)", ctrl.Column.Key, value)
		}
		return core.DateFilter(op, t), nil
	case core.FilterBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return core.FilterSpec{}, fmt.Errorf("%s: invalid boolean %q", ctrl.Column.Key, value)
		}
		return core.BoolFilter(b), nil
	case core.FilterReference:
		return core.RefFilter(op, value), nil
	default:
		return core.TextFilter(op, value), nil
	}
}
