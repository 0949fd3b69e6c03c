package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for date filter values.
const DateLayout = "2006-01-02"

// SearchKey is the reserved filter key carrying the global search text.
const SearchKey = "search"

// =============================================================================
// Operator
// =============================================================================

// Operator is a comparison applied by a column filter.
type Operator string

// Filter operators.
const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpContains Operator = "contains"
	OpStarts   Operator = "starts"
	OpEnds     Operator = "ends"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
)

// =============================================================================
// FilterKind
// =============================================================================

// FilterKind tags which value a FilterSpec carries.
type FilterKind int

// Filter kinds.
const (
	FilterText FilterKind = iota
	FilterNumber
	FilterDate
	FilterBool
	FilterReference
)

// String returns the string representation of the kind.
func (k FilterKind) String() string {
	switch k {
	case FilterText:
		return "text"
	case FilterNumber:
		return "number"
	case FilterDate:
		return "date"
	case FilterBool:
		return "boolean"
	case FilterReference:
		return "reference"
	default:
		return "unknown"
	}
}

var operatorSets = map[FilterKind][]Operator{
	FilterText:      {OpEq, OpNeq, OpContains, OpStarts, OpEnds},
	FilterNumber:    {OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte},
	FilterDate:      {OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte},
	FilterBool:      {OpEq},
	FilterReference: {OpEq, OpNeq},
}

// Operators returns the operators valid for the kind, in display order.
func (k FilterKind) Operators() []Operator {
	return slices.Clone(operatorSets[k])
}

// Allows reports whether op is valid for the kind.
func (k FilterKind) Allows(op Operator) bool {
	return slices.Contains(operatorSets[k], op)
}

// =============================================================================
// FilterSpec
// =============================================================================

// FilterSpec is a single typed column filter. Kind selects which of the
// value fields is meaningful.
type FilterSpec struct {
	Kind   FilterKind
	Op     Operator
	Text   string
	Number float64
	Date   time.Time
	Bool   bool
}

// TextFilter returns a text filter.
func TextFilter(op Operator, s string) FilterSpec {
	return FilterSpec{Kind: FilterText, Op: op, Text: s}
}

// NumberFilter returns a numeric filter.
func NumberFilter(op Operator, n float64) FilterSpec {
	return FilterSpec{Kind: FilterNumber, Op: op, Number: n}
}

// DateFilter returns a date filter. Only the calendar date is kept.
func DateFilter(op Operator, t time.Time) FilterSpec {
	y, m, d := t.Date()
	return FilterSpec{Kind: FilterDate, Op: op, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// BoolFilter returns a boolean equality filter.
func BoolFilter(v bool) FilterSpec {
	return FilterSpec{Kind: FilterBool, Op: OpEq, Bool: v}
}

// RefFilter returns a filter on a reference id (a picklist item).
func RefFilter(op Operator, id string) FilterSpec {
	return FilterSpec{Kind: FilterReference, Op: op, Text: id}
}

// IsEmpty reports whether the filter carries no usable value and should be dropped.
func (f FilterSpec) IsEmpty() bool {
	switch f.Kind {
	case FilterText, FilterReference:
		return strings.TrimSpace(f.Text) == ""
	case FilterDate:
		return f.Date.IsZero()
	default:
		return false
	}
}

// Validate checks the operator against the kind's operator set.
func (f FilterSpec) Validate() error {
	if !f.Kind.Allows(f.Op) {
		return &InvalidOperatorError{Kind: f.Kind, Op: f.Op}
	}
	return nil
}

// Value returns the wire value of the filter.
func (f FilterSpec) Value() any {
	switch f.Kind {
	case FilterNumber:
		return f.Number
	case FilterDate:
		return f.Date.Format(DateLayout)
	case FilterBool:
		return f.Bool
	default:
		return f.Text
	}
}

// String renders the filter as "op value".
func (f FilterSpec) String() string {
	switch f.Kind {
	case FilterNumber:
		return fmt.Sprintf("%s %s", f.Op, strconv.FormatFloat(f.Number, 'f', -1, 64))
	default:
		return fmt.Sprintf("%s %v", f.Op, f.Value())
	}
}

type wireFilter struct {
	Value    any      `json:"value"`
	Operator Operator `json:"operator"`
}

// MarshalJSON encodes the filter as {"value": ..., "operator": ...}.
func (f FilterSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireFilter{Value: f.Value(), Operator: f.Op})
}

// UnmarshalJSON accepts {"value": ..., "operator": ...} or a bare scalar
// (equality). The kind is inferred from the JSON type; use Coerce to retype
// against a column.
func (f *FilterSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw json.RawMessage = data
	op := OpEq
	if len(data) > 0 && data[0] == '{' {
		var w struct {
			Value    json.RawMessage `json:"value"`
			Operator Operator        `json:"operator"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		raw = w.Value
		if w.Operator != "" {
			op = w.Operator
		}
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		*f = TextFilter(op, val)
	case float64:
		*f = NumberFilter(op, val)
	case bool:
		*f = FilterSpec{Kind: FilterBool, Op: op, Bool: val}
	case nil:
		*f = TextFilter(op, "")
	default:
		return fmt.Errorf("unsupported filter value %s", string(raw))
	}
	return nil
}

// Coerce retypes a decoded filter to the given kind. Text values are parsed
// as numbers, dates or booleans as needed.
func (f FilterSpec) Coerce(kind FilterKind) (FilterSpec, error) {
	if f.Kind == kind {
		return f, nil
	}
	out := FilterSpec{Kind: kind, Op: f.Op}
	switch kind {
	case FilterText, FilterReference:
		out.Text = fmt.Sprint(f.Value())
	case FilterNumber:
		if f.Kind != FilterText {
			return out, fmt.Errorf("cannot use %s value as number", f.Kind)
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(f.Text), 64)
		if err != nil {
			return out, fmt.Errorf("invalid number %q", f.Text)
		}
		out.Number = n
	case FilterDate:
		if f.Kind != FilterText {
			return out, fmt.Errorf("cannot use %s value as date", f.Kind)
		}
		t, err := time.Parse(DateLayout, strings.TrimSpace(f.Text))
		if err != nil {
			return out, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", f.Text)
		}
		out.Date = t
	case FilterBool:
		if f.Kind != FilterText {
			return out, fmt.Errorf("cannot use %s value as boolean", f.Kind)
		}
		b, err := strconv.ParseBool(strings.TrimSpace(f.Text))
		if err != nil {
			return out, fmt.Errorf("invalid boolean %q", f.Text)
		}
		out.Bool = b
	default:
		return out, fmt.Errorf("unknown filter kind %d", kind)
	}
	return out, nil
}

// InvalidOperatorError is returned when an operator is not valid for a filter kind.
type InvalidOperatorError struct {
	Kind FilterKind
	Op   Operator
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("operator %q is not valid for %s filters (valid: %v)", e.Op, e.Kind, operatorSets[e.Kind])
}

// =============================================================================
// Filters
// =============================================================================

// Filters is the full filter state of a list: the global search text plus
// per-column filters. On the wire it is a flat mapping where "search" is a
// plain string.
type Filters struct {
	Search  string
	Columns map[string]FilterSpec
}

// IsEmpty reports whether no filter is active.
func (f Filters) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" && len(f.Columns) == 0
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	out := Filters{Search: f.Search}
	if len(f.Columns) > 0 {
		out.Columns = make(map[string]FilterSpec, len(f.Columns))
		for k, v := range f.Columns {
			out.Columns[k] = v
		}
	}
	return out
}

// Keys returns the filtered column keys in sorted order.
func (f Filters) Keys() []string {
	keys := make([]string, 0, len(f.Columns))
	for k := range f.Columns {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MarshalJSON flattens the filters into a single mapping.
func (f Filters) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(f.Columns)+1)
	for k, v := range f.Columns {
		if v.IsEmpty() {
			continue
		}
		m[k] = v
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		m[SearchKey] = s
	}
	return json.Marshal(m)
}

// UnmarshalJSON splits a flat mapping into search text and column filters.
func (f *Filters) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*f = Filters{}
	for k, raw := range m {
		if k == SearchKey {
			if err := json.Unmarshal(raw, &f.Search); err != nil {
				return fmt.Errorf("filter %q: %w", k, err)
			}
			continue
		}
		var spec FilterSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return fmt.Errorf("filter %q: %w", k, err)
		}
		if f.Columns == nil {
			f.Columns = make(map[string]FilterSpec)
		}
		f.Columns[k] = spec
	}
	return nil
}
