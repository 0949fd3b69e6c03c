package core

// Entity is one row of an entity list, keyed by column key.
// The list engine treats it as opaque; only the presentation layer reads fields.
type Entity map[string]any

// ID returns the record id, or "" when the row has none.
func (e Entity) ID() string {
	if id, ok := e["id"].(string); ok {
		return id
	}
	return ""
}

// Pagination defaults shared by client and server.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageSizes are the page sizes offered to the user.
var PageSizes = []int{10, 20, 50, 100}

// EntityQueryRequest asks the server for one page of an entity list.
type EntityQueryRequest struct {
	EntityType string    `json:"entityType"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	SortBy     string    `json:"sortBy,omitempty"`
	SortOrder  SortOrder `json:"sortOrder,omitempty"`
	Filters    Filters   `json:"filters"`
	View       string    `json:"view,omitempty"`
}

// Normalize applies the server defaults: page 1, page size 20 (capped at 100)
// and ascending order.
func (r *EntityQueryRequest) Normalize() {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
	if r.SortOrder != SortDesc {
		r.SortOrder = SortAsc
	}
}

// EntityQueryResponse is one page of results plus pagination metadata.
type EntityQueryResponse struct {
	Entities   []Entity  `json:"entities"`
	TotalCount int       `json:"totalCount"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
	HasMore    bool      `json:"hasMore"`
	SortBy     string    `json:"sortBy,omitempty"`
	SortOrder  SortOrder `json:"sortOrder,omitempty"`
}

// TotalPages returns ceil(total/pageSize), or 0 for an empty result.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// NewEntityQueryResponse fills in the derived pagination fields for a page of rows.
func NewEntityQueryResponse(req EntityQueryRequest, rows []Entity, total int) *EntityQueryResponse {
	if rows == nil {
		rows = []Entity{}
	}
	pages := TotalPages(total, req.PageSize)
	return &EntityQueryResponse{
		Entities:   rows,
		TotalCount: total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: pages,
		HasMore:    req.Page < pages,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}
}
