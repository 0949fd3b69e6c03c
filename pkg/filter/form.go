package filter

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// Target receives applied filters. The entity list controller implements it.
type Target interface {
	ChangeFilters(ctx context.Context, filters core.Filters)
}

// Form holds pending filter input for one view until it is applied.
type Form struct {
	columns map[string]core.Column
	search  string
	values  map[string]core.FilterSpec
}

// NewForm creates a form for the filterable columns of a view.
func NewForm(view core.ViewConfig) *Form {
	f := &Form{
		columns: make(map[string]core.Column, len(view.Columns)),
		values:  make(map[string]core.FilterSpec),
	}
	for _, c := range view.Columns {
		if c.Filterable {
			f.columns[c.Key] = c
		}
	}
	return f
}

// Load replaces the form contents with already-applied filters.
func (f *Form) Load(filters core.Filters) {
	f.search = filters.Search
	f.values = make(map[string]core.FilterSpec, len(filters.Columns))
	for k, v := range filters.Columns {
		f.values[k] = v
	}
}

// Control returns the resolved control for a filterable column.
func (f *Form) Control(key string) (Control, error) {
	col, ok := f.columns[key]
	if !ok {
		return Control{}, &UnknownColumnError{Key: key, Available: f.Keys()}
	}
	return Resolve(col), nil
}

// Keys lists the filterable column keys.
func (f *Form) Keys() []string {
	keys := make([]string, 0, len(f.columns))
	for k := range f.columns {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetSearch sets the global search text.
func (f *Form) SetSearch(s string) {
	f.search = s
}

// Search returns the pending global search text.
func (f *Form) Search() string {
	return f.search
}

// Set stores a column filter after checking it against the column's control.
// An empty value clears the column.
func (f *Form) Set(key string, spec core.FilterSpec) error {
	ctrl, err := f.Control(key)
	if err != nil {
		return err
	}
	if spec.Kind != ctrl.Filter {
		return fmt.Errorf("column %q takes %s filters, got %s", key, ctrl.Filter, spec.Kind)
	}
	if !ctrl.Allows(spec.Op) {
		return &core.InvalidOperatorError{Kind: spec.Kind, Op: spec.Op}
	}
	if spec.IsEmpty() {
		delete(f.values, key)
		return nil
	}
	f.values[key] = spec
	return nil
}

// SetBool sets a tri-state boolean filter; nil means "any".
func (f *Form) SetBool(key string, v *bool) error {
	if v == nil {
		f.Clear(key)
		return nil
	}
	return f.Set(key, core.BoolFilter(*v))
}

// Clear removes a column filter.
func (f *Form) Clear(key string) {
	delete(f.values, key)
}

// Filters returns the pending filters: non-empty column filters merged with
// the global search text under the "search" key.
func (f *Form) Filters() core.Filters {
	out := core.Filters{Search: strings.TrimSpace(f.search)}
	for k, v := range f.values {
		if v.IsEmpty() {
			continue
		}
		if out.Columns == nil {
			out.Columns = make(map[string]core.FilterSpec, len(f.values))
		}
		out.Columns[k] = v
	}
	return out
}

// Apply hands the pending filters to the target.
func (f *Form) Apply(ctx context.Context, t Target) {
	t.ChangeFilters(ctx, f.Filters())
}

// Reset clears all pending input and applies an empty filter set.
func (f *Form) Reset(ctx context.Context, t Target) {
	f.search = ""
	f.values = make(map[string]core.FilterSpec)
	t.ChangeFilters(ctx, core.Filters{})
}

// UnknownColumnError is returned for a key that is not a filterable column of the view.
type UnknownColumnError struct {
	Key       string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown filter column %q\nFilterable columns: %v", e.Key, e.Available)
}
