package core

import "strings"

// =============================================================================
// ColumnType
// =============================================================================

// ColumnType tells the presentation layer how to format a cell and
// which filter control to offer for the column.
type ColumnType string

// Column types understood by the list engine.
const (
	ColumnText       ColumnType = "text"
	ColumnNumber     ColumnType = "number"
	ColumnCurrency   ColumnType = "currency"
	ColumnPercentage ColumnType = "percentage"
	ColumnDate       ColumnType = "date"
	ColumnStatus     ColumnType = "status"
	ColumnSelect     ColumnType = "select"
	ColumnBoolean    ColumnType = "boolean"
	ColumnLink       ColumnType = "link"
)

// IsNumeric reports whether values of this column compare as numbers.
func (t ColumnType) IsNumeric() bool {
	switch t {
	case ColumnNumber, ColumnCurrency, ColumnPercentage:
		return true
	default:
		return false
	}
}

// ParseColumnType converts a string to a ColumnType.
// Unknown values fall back to ColumnText and false.
func ParseColumnType(s string) (ColumnType, bool) {
	switch t := ColumnType(strings.ToLower(strings.TrimSpace(s))); t {
	case ColumnText, ColumnNumber, ColumnCurrency, ColumnPercentage, ColumnDate,
		ColumnStatus, ColumnSelect, ColumnBoolean, ColumnLink:
		return t, true
	default:
		return ColumnText, false
	}
}

// =============================================================================
// SortOrder
// =============================================================================

// SortOrder is the direction of a sorted query.
type SortOrder string

// Sort directions.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Toggle returns the opposite direction.
func (o SortOrder) Toggle() SortOrder {
	if o == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// ParseSortOrder converts a string to a SortOrder. Anything other than
// "desc" (case-insensitive) is ascending, matching the server default.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// =============================================================================
// Column / ViewConfig
// =============================================================================

// Column describes one column of an entity list view.
type Column struct {
	Key        string     `json:"key" yaml:"key"`
	Label      string     `json:"label" yaml:"label"`
	Type       ColumnType `json:"type" yaml:"type"`
	Sortable   bool       `json:"sortable" yaml:"sortable"`
	Filterable bool       `json:"filterable" yaml:"filterable"`
	Width      string     `json:"width,omitempty" yaml:"width,omitempty"`
	Align      string     `json:"align,omitempty" yaml:"align,omitempty"`
	Format     string     `json:"format,omitempty" yaml:"format,omitempty"`
}

// ViewConfig is a named column layout for an entity type, supplied by the server.
type ViewConfig struct {
	Name         string    `json:"name" yaml:"name"`
	DisplayName  string    `json:"displayName" yaml:"display_name"`
	Columns      []Column  `json:"columns" yaml:"columns"`
	DefaultSort  string    `json:"defaultSort" yaml:"default_sort"`
	DefaultOrder SortOrder `json:"defaultOrder" yaml:"default_order"`
}

// Column returns the column with the given key.
func (v ViewConfig) Column(key string) (Column, bool) {
	for _, c := range v.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// FindView returns the view with the given name.
func FindView(views []ViewConfig, name string) (ViewConfig, bool) {
	for _, v := range views {
		if v.Name == name {
			return v, true
		}
	}
	return ViewConfig{}, false
}

// ViewsResponse is the body of GET /entities/{type}/views.
type ViewsResponse struct {
	Views []ViewConfig `json:"views"`
}
