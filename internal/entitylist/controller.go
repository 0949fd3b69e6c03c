// Package entitylist drives a paginated, sortable, filterable list of one
// entity type against the generic query endpoint.
//
// A Controller owns the list state (rows, pagination, sort, filters, views)
// and exposes operations that mutate it and re-query. Operations block until
// their request completes, may be called from any goroutine, and never
// return errors: failures land in State.Error. Every request carries a
// sequence id and only the response to the most recently issued request is
// applied, so a slow response can never overwrite a newer one.
package entitylist

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapcrm/internal/notifier"
	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// Querier is the server surface the controller needs. *api.Client implements it.
type Querier interface {
	EntityViews(ctx context.Context, entityType string) ([]core.ViewConfig, error)
	QueryEntities(ctx context.Context, req core.EntityQueryRequest) (*core.EntityQueryResponse, error)
}

// Options configures a Controller.
type Options struct {
	EntityType string
	PageSize   int
	SortBy     string
	// SortOrder, when set, is kept by Initialize even if the view's default
	// sort column is adopted.
	SortOrder core.SortOrder
	Filters   core.Filters
	// View selects the initial view by name; the first view is used when
	// empty or not found.
	View   string
	Logger *slog.Logger
}

// State is a snapshot of a controller.
type State struct {
	EntityType string
	Entities   []core.Entity
	Loading    bool
	Error      string

	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
	HasMore    bool

	SortBy    string
	SortOrder core.SortOrder
	Filters   core.Filters

	Views       []core.ViewConfig
	CurrentView string

	// Offset is the zero-based position of Entities[0] in the full result.
	// It only moves when a page of rows replaces Entities, so it keeps
	// describing the rows on screen while a request is pending or failed.
	Offset int
}

// StartIndex is the 1-based position of the first row shown.
func (s State) StartIndex() int {
	return s.Offset + 1
}

// EndIndex is the 1-based position of the last row shown, or 0 when the
// result is empty.
func (s State) EndIndex() int {
	if s.TotalCount == 0 {
		return 0
	}
	return min(s.Offset+len(s.Entities), s.TotalCount)
}

// View returns the current view configuration.
func (s State) View() (core.ViewConfig, bool) {
	if s.CurrentView == "" {
		return core.ViewConfig{}, false
	}
	return core.FindView(s.Views, s.CurrentView)
}

// Controller is the list engine for one entity type.
type Controller struct {
	querier  Querier
	logger   *slog.Logger
	notifier *notifier.Notifier

	// explicitSort records that the caller chose an initial sort, which
	// Initialize must not replace with the view default.
	explicitSort  bool
	explicitOrder bool
	initialView   string

	mu    sync.Mutex
	seq   uint64
	state State
}

// New creates a controller. Call Initialize to load views and the first page.
func New(q Querier, opts Options) *Controller {
	if opts.PageSize < 1 {
		opts.PageSize = core.DefaultPageSize
	}
	explicitOrder := opts.SortOrder != ""
	if !explicitOrder {
		opts.SortOrder = core.SortAsc
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		querier:       q,
		logger:        logger.With("entity_type", opts.EntityType),
		notifier:      notifier.New(),
		explicitSort:  opts.SortBy != "",
		explicitOrder: explicitOrder,
		initialView:   opts.View,
		state: State{
			EntityType: opts.EntityType,
			Page:       core.DefaultPage,
			PageSize:   opts.PageSize,
			SortBy:     opts.SortBy,
			SortOrder:  opts.SortOrder,
			Filters:    opts.Filters.Clone(),
		},
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Entities = slices.Clone(s.Entities)
	s.Views = slices.Clone(s.Views)
	s.Filters = s.Filters.Clone()
	return s
}

// Subscribe returns a channel pinged after every state change.
func (c *Controller) Subscribe() <-chan struct{} {
	return c.notifier.Subscribe()
}

// Unsubscribe stops pings on ch.
func (c *Controller) Unsubscribe(ch <-chan struct{}) {
	c.notifier.Unsubscribe(ch)
}

// Close releases all subscribers.
func (c *Controller) Close() {
	c.notifier.Close()
}

// Columns returns the current view's columns.
func (c *Controller) Columns() []core.Column {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.state.View()
	if !ok {
		return nil
	}
	return slices.Clone(v.Columns)
}

// StartIndex is the 1-based position of the first row shown.
func (c *Controller) StartIndex() int {
	return c.Snapshot().StartIndex()
}

// EndIndex is the 1-based position of the last row shown.
func (c *Controller) EndIndex() int {
	return c.Snapshot().EndIndex()
}

// Initialize loads the views, picks the initial one and fetches page 1.
// When the view list cannot be fetched the failure is logged, views stay
// empty and no query is issued.
func (c *Controller) Initialize(ctx context.Context) {
	views, err := c.querier.EntityViews(ctx, c.entityType())
	if err != nil {
		c.logger.Error("failed to load entity views", "error", err)
		return
	}

	c.mu.Lock()
	c.state.Views = slices.Clone(views)
	var picked core.ViewConfig
	found := false
	if c.initialView != "" {
		picked, found = core.FindView(views, c.initialView)
		if !found {
			c.logger.Warn("requested view not found, using first view", "view", c.initialView)
		}
	}
	if !found && len(views) > 0 {
		picked, found = views[0], true
	}
	if found {
		c.state.CurrentView = picked.Name
		if !c.explicitSort && picked.DefaultSort != "" {
			c.state.SortBy = picked.DefaultSort
			if !c.explicitOrder {
				c.state.SortOrder = orderOrAsc(picked.DefaultOrder)
			}
		}
	}
	c.mu.Unlock()
	c.notifier.Notify()

	c.Query(ctx)
}

// Query fetches the current page, replacing the rows on success. On failure
// the previous rows are kept and Error is set; LoadMore stays disabled until a
// later query succeeds. Nothing happens until a view has been selected.
func (c *Controller) Query(ctx context.Context) {
	c.run(ctx, false)
}

// GoToPage moves to page n and fetches it. It reports false and does
// nothing when n is outside 1..TotalPages.
func (c *Controller) GoToPage(ctx context.Context, n int) bool {
	c.mu.Lock()
	if n < 1 || n > c.state.TotalPages {
		c.mu.Unlock()
		return false
	}
	c.state.Page = n
	c.mu.Unlock()
	c.Query(ctx)
	return true
}

// ChangePageSize sets the page size and returns to page 1.
func (c *Controller) ChangePageSize(ctx context.Context, n int) {
	if n < 1 {
		n = core.DefaultPageSize
	}
	c.reset(ctx, func(s *State) { s.PageSize = min(n, core.MaxPageSize) })
}

// ChangeSorting sorts by key, toggling the order when key is already the
// sort column and starting ascending otherwise.
func (c *Controller) ChangeSorting(ctx context.Context, key string) {
	c.reset(ctx, func(s *State) {
		if s.SortBy == key {
			s.SortOrder = s.SortOrder.Toggle()
			return
		}
		s.SortBy = key
		s.SortOrder = core.SortAsc
	})
}

// ChangeFilters replaces the filters wholesale and returns to page 1.
func (c *Controller) ChangeFilters(ctx context.Context, filters core.Filters) {
	c.reset(ctx, func(s *State) { s.Filters = filters.Clone() })
}

// ChangeView switches to the named view, adopting its default sort when it
// differs from the current one. It reports false for an unknown view.
func (c *Controller) ChangeView(ctx context.Context, name string) bool {
	c.mu.Lock()
	v, ok := core.FindView(c.state.Views, name)
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.reset(ctx, func(s *State) {
		s.CurrentView = v.Name
		if v.DefaultSort != "" && v.DefaultSort != s.SortBy {
			s.SortBy = v.DefaultSort
			s.SortOrder = orderOrAsc(v.DefaultOrder)
		}
	})
	return true
}

// Refresh refetches page 1.
func (c *Controller) Refresh(ctx context.Context) {
	c.reset(ctx, func(*State) {})
}

// LoadMore fetches the next page and appends its rows. It reports false
// without doing anything when there is no next page or a request is in
// flight.
func (c *Controller) LoadMore(ctx context.Context) bool {
	c.mu.Lock()
	if !c.state.HasMore || c.state.Loading || c.state.CurrentView == "" {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()
	c.run(ctx, true)
	return true
}

// reset applies fn and returns to page 1 in one step, then queries.
func (c *Controller) reset(ctx context.Context, fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	c.state.Page = core.DefaultPage
	c.mu.Unlock()
	c.Query(ctx)
}

func (c *Controller) run(ctx context.Context, appendRows bool) {
	clamped := false
	for {
		c.mu.Lock()
		if c.state.CurrentView == "" {
			c.mu.Unlock()
			c.logger.Debug("no view selected, skipping query")
			return
		}
		req := c.requestLocked(appendRows)
		c.seq++
		id := c.seq
		c.state.Loading = true
		c.state.Error = ""
		c.mu.Unlock()
		c.notifier.Notify()

		c.logger.Debug("querying entities",
			"seq", id, "page", req.Page, "page_size", req.PageSize,
			"sort_by", req.SortBy, "sort_order", req.SortOrder, "view", req.View)
		resp, err := c.querier.QueryEntities(ctx, req)

		c.mu.Lock()
		if id != c.seq {
			c.mu.Unlock()
			c.logger.Debug("discarding stale entity response", "seq", id)
			return
		}
		c.state.Loading = false

		if err != nil {
			c.state.Error = errorText(err)
			if !appendRows {
				// The kept rows no longer match the request state, so
				// nothing may be appended to them.
				c.state.HasMore = false
			}
			c.mu.Unlock()
			c.logger.Warn("failed to fetch entities", "error", err)
			c.notifier.Notify()
			return
		}

		// Rows deleted elsewhere can leave the requested page past the end.
		last := max(resp.TotalPages, 1)
		if !appendRows && !clamped && req.Page > last {
			c.state.Page = last
			c.mu.Unlock()
			c.logger.Info("page out of range, clamping", "page", req.Page, "total_pages", resp.TotalPages)
			clamped = true
			continue
		}

		c.applyLocked(req, resp, appendRows)
		c.mu.Unlock()
		c.notifier.Notify()
		return
	}
}

func (c *Controller) requestLocked(appendRows bool) core.EntityQueryRequest {
	page := c.state.Page
	if appendRows {
		page++
	}
	return core.EntityQueryRequest{
		EntityType: c.state.EntityType,
		Page:       page,
		PageSize:   c.state.PageSize,
		SortBy:     c.state.SortBy,
		SortOrder:  c.state.SortOrder,
		Filters:    c.state.Filters.Clone(),
		View:       c.state.CurrentView,
	}
}

func (c *Controller) applyLocked(req core.EntityQueryRequest, resp *core.EntityQueryResponse, appendRows bool) {
	page := resp.Page
	if page < 1 {
		page = req.Page
	}
	if appendRows {
		c.state.Entities = append(c.state.Entities, resp.Entities...)
	} else {
		c.state.Entities = slices.Clone(resp.Entities)
		c.state.Offset = (page - 1) * req.PageSize
	}
	if c.state.Entities == nil {
		c.state.Entities = []core.Entity{}
	}
	c.state.Page = page
	c.state.TotalCount = resp.TotalCount
	c.state.TotalPages = resp.TotalPages
	c.state.HasMore = resp.HasMore
}

func (c *Controller) entityType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.EntityType
}

func orderOrAsc(o core.SortOrder) core.SortOrder {
	if o == core.SortDesc {
		return core.SortDesc
	}
	return core.SortAsc
}

func errorText(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Failed to fetch entities"
}
