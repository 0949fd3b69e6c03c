package core

// PicklistSearchLimit is the window size for picklist searches and "load more".
const PicklistSearchLimit = 50

// PicklistItem is one entry of a lookup list (industry, company size, ...).
type PicklistItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// PicklistPage is the response of both picklist endpoints.
type PicklistPage struct {
	Items      []PicklistItem `json:"items"`
	TotalCount int            `json:"totalCount"`
	HasMore    bool           `json:"hasMore"`
}

// PicklistSearchRequest asks for a window of items matching a query.
// EntityType is the singular search name (e.g. "industry").
type PicklistSearchRequest struct {
	Query      string `json:"query"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	EntityType string `json:"entityType"`
}
