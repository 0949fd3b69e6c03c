package entitylist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcrm/internal/testutil"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testViews = []core.ViewConfig{
	{
		Name:         "overview",
		DisplayName:  "Overview",
		DefaultSort:  "name",
		DefaultOrder: core.SortAsc,
		Columns: []core.Column{
			{Key: "name", Label: "Name", Type: core.ColumnText, Sortable: true, Filterable: true},
			{Key: "revenue", Label: "Revenue", Type: core.ColumnCurrency, Sortable: true, Filterable: true},
		},
	},
	{
		Name:         "recent",
		DisplayName:  "Recently created",
		DefaultSort:  "createdAt",
		DefaultOrder: core.SortDesc,
		Columns: []core.Column{
			{Key: "name", Label: "Name", Type: core.ColumnText},
			{Key: "createdAt", Label: "Created", Type: core.ColumnDate, Sortable: true},
		},
	},
}

// fakeQuerier serves `total` synthetic rows. Calls are numbered from 1; a
// gate registered for a call number blocks that call until closed.
type fakeQuerier struct {
	mu       sync.Mutex
	views    []core.ViewConfig
	viewsErr error
	total    int
	err      error
	requests []core.EntityQueryRequest
	gates    map[int]chan struct{}
	started  chan int
}

func newFakeQuerier(total int) *fakeQuerier {
	return &fakeQuerier{views: testViews, total: total, gates: map[int]chan struct{}{}}
}

func (f *fakeQuerier) EntityViews(_ context.Context, _ string) ([]core.ViewConfig, error) {
	if f.viewsErr != nil {
		return nil, f.viewsErr
	}
	return f.views, nil
}

func (f *fakeQuerier) QueryEntities(_ context.Context, req core.EntityQueryRequest) (*core.EntityQueryResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	call := len(f.requests)
	gate := f.gates[call]
	total, err, started := f.total, f.err, f.started
	f.mu.Unlock()

	if started != nil {
		started <- call
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	var rows []core.Entity
	for i := (req.Page-1)*req.PageSize + 1; i <= min(req.Page*req.PageSize, total); i++ {
		rows = append(rows, core.Entity{"id": fmt.Sprintf("c%02d", i), "call": call})
	}
	return core.NewEntityQueryResponse(req, rows, total), nil
}

func (f *fakeQuerier) setTotal(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total = n
}

func (f *fakeQuerier) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeQuerier) gate(call int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[call] = ch
	return ch
}

func (f *fakeQuerier) calls() []core.EntityQueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.EntityQueryRequest(nil), f.requests...)
}

func (f *fakeQuerier) last() core.EntityQueryRequest {
	calls := f.calls()
	return calls[len(calls)-1]
}

func newController(t *testing.T, q *fakeQuerier, opts Options) *Controller {
	t.Helper()
	if opts.EntityType == "" {
		opts.EntityType = "companies"
	}
	if opts.Logger == nil {
		opts.Logger = testutil.NewTestLogger(t)
	}
	c := New(q, opts)
	c.Initialize(context.Background())
	return c
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantView  string
		wantSort  string
		wantOrder core.SortOrder
	}{
		{"first view and its default sort", Options{}, "overview", "name", core.SortAsc},
		{"named view", Options{View: "recent"}, "recent", "createdAt", core.SortDesc},
		{"unknown view falls back to first", Options{View: "missing"}, "overview", "name", core.SortAsc},
		{"explicit sort wins", Options{View: "recent", SortBy: "name"}, "recent", "name", core.SortAsc},
		{"explicit order keeps view column", Options{SortOrder: core.SortDesc}, "overview", "name", core.SortDesc},
		{"explicit asc overrides view order", Options{View: "recent", SortOrder: core.SortAsc}, "recent", "createdAt", core.SortAsc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newFakeQuerier(45)
			c := newController(t, q, tt.opts)
			s := c.Snapshot()

			assert.Equal(t, tt.wantView, s.CurrentView)
			assert.Equal(t, tt.wantSort, s.SortBy)
			assert.Equal(t, tt.wantOrder, s.SortOrder)
			assert.Len(t, s.Views, 2)

			require.Len(t, q.calls(), 1)
			req := q.last()
			assert.Equal(t, "companies", req.EntityType)
			assert.Equal(t, tt.wantView, req.View)
			assert.Equal(t, 1, req.Page)
			assert.Equal(t, core.DefaultPageSize, req.PageSize)
		})
	}
}

func TestInitialize_ViewsFailure(t *testing.T) {
	q := newFakeQuerier(45)
	q.viewsErr = errors.New("connection refused")
	c := newController(t, q, Options{})

	s := c.Snapshot()
	assert.Empty(t, s.Views)
	assert.Empty(t, s.Error)
	assert.Empty(t, q.calls())
	assert.Nil(t, c.Columns())

	c.Query(context.Background())
	assert.Empty(t, q.calls())
}

func TestPagination_FortyFiveRows(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{})
	ctx := context.Background()

	s := c.Snapshot()
	assert.Equal(t, 45, s.TotalCount)
	assert.Equal(t, 3, s.TotalPages)
	assert.True(t, s.HasMore)
	assert.Len(t, s.Entities, 20)
	assert.Equal(t, 1, c.StartIndex())
	assert.Equal(t, 20, c.EndIndex())

	assert.True(t, c.GoToPage(ctx, 3))
	s = c.Snapshot()
	assert.Equal(t, 3, s.Page)
	assert.False(t, s.HasMore)
	assert.Len(t, s.Entities, 5)
	assert.Equal(t, 41, c.StartIndex())
	assert.Equal(t, 45, c.EndIndex())

	before := len(q.calls())
	assert.False(t, c.GoToPage(ctx, 4))
	assert.False(t, c.GoToPage(ctx, 0))
	assert.Len(t, q.calls(), before)
	assert.Equal(t, 3, c.Snapshot().Page)
}

func TestIndices_EmptyResult(t *testing.T) {
	q := newFakeQuerier(0)
	c := newController(t, q, Options{})

	s := c.Snapshot()
	assert.Equal(t, 0, s.TotalPages)
	assert.Equal(t, 1, c.StartIndex())
	assert.Equal(t, 0, c.EndIndex())
	assert.NotNil(t, s.Entities)
	assert.False(t, c.GoToPage(context.Background(), 1))
}

func TestResetOperationsReturnToPageOne(t *testing.T) {
	ops := map[string]func(context.Context, *Controller){
		"page size": func(ctx context.Context, c *Controller) { c.ChangePageSize(ctx, 10) },
		"sorting":   func(ctx context.Context, c *Controller) { c.ChangeSorting(ctx, "revenue") },
		"filters": func(ctx context.Context, c *Controller) {
			c.ChangeFilters(ctx, core.Filters{Search: "acme"})
		},
		"view":    func(ctx context.Context, c *Controller) { c.ChangeView(ctx, "recent") },
		"refresh": func(ctx context.Context, c *Controller) { c.Refresh(ctx) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			q := newFakeQuerier(45)
			c := newController(t, q, Options{})
			ctx := context.Background()
			require.True(t, c.GoToPage(ctx, 3))
			before := len(q.calls())

			op(ctx, c)

			calls := q.calls()[before:]
			require.Len(t, calls, 1)
			assert.Equal(t, 1, calls[0].Page)
			assert.Equal(t, 1, c.Snapshot().Page)
		})
	}
}

func TestChangeSorting(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{})
	ctx := context.Background()

	c.ChangeSorting(ctx, "name")
	assert.Equal(t, core.SortDesc, q.last().SortOrder)
	assert.Equal(t, "name", q.last().SortBy)

	c.ChangeSorting(ctx, "name")
	assert.Equal(t, core.SortAsc, q.last().SortOrder)

	c.ChangeSorting(ctx, "name")
	c.ChangeSorting(ctx, "revenue")
	assert.Equal(t, "revenue", q.last().SortBy)
	assert.Equal(t, core.SortAsc, q.last().SortOrder)
}

func TestChangeView(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{})
	ctx := context.Background()

	assert.False(t, c.ChangeView(ctx, "nope"))
	assert.Len(t, q.calls(), 1)

	assert.True(t, c.ChangeView(ctx, "recent"))
	req := q.last()
	assert.Equal(t, "recent", req.View)
	assert.Equal(t, "createdAt", req.SortBy)
	assert.Equal(t, core.SortDesc, req.SortOrder)

	cols := c.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "createdAt", cols[1].Key)
}

func TestChangeFilters_Wholesale(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{
		Filters: core.Filters{Columns: map[string]core.FilterSpec{"name": core.TextFilter(core.OpContains, "a")}},
	})
	ctx := context.Background()
	assert.Equal(t, []string{"name"}, q.last().Filters.Keys())

	c.ChangeFilters(ctx, core.Filters{Columns: map[string]core.FilterSpec{"revenue": core.NumberFilter(core.OpGt, 10)}})
	assert.Equal(t, []string{"revenue"}, q.last().Filters.Keys())
	assert.Equal(t, []string{"revenue"}, c.Snapshot().Filters.Keys())
}

func TestLoadMore_Appends(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{})
	ctx := context.Background()

	assert.True(t, c.LoadMore(ctx))
	s := c.Snapshot()
	assert.Len(t, s.Entities, 40)
	assert.Equal(t, "c01", s.Entities[0].ID())
	assert.Equal(t, "c40", s.Entities[39].ID())
	assert.Equal(t, 2, s.Page)
	assert.True(t, s.HasMore)
	assert.Equal(t, 1, c.StartIndex())
	assert.Equal(t, 40, c.EndIndex())
	assert.Equal(t, 2, q.last().Page)

	assert.True(t, c.LoadMore(ctx))
	s = c.Snapshot()
	assert.Len(t, s.Entities, 45)
	assert.False(t, s.HasMore)
	assert.Equal(t, 45, c.EndIndex())

	assert.False(t, c.LoadMore(ctx))
	assert.Len(t, q.calls(), 3)

	c.ChangeSorting(ctx, "revenue")
	s = c.Snapshot()
	assert.Len(t, s.Entities, 20)
	assert.Equal(t, 0, s.Offset)
	assert.Equal(t, 1, c.StartIndex())
	assert.Equal(t, 20, c.EndIndex())
}

func TestLoadMore_SkippedWhileLoading(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{})
	ctx := context.Background()

	release := q.gate(2)
	done := make(chan struct{})
	go func() {
		c.Refresh(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return c.Snapshot().Loading }, time.Second, time.Millisecond)

	assert.False(t, c.LoadMore(ctx))
	close(release)
	<-done
	assert.Len(t, q.calls(), 2)
}

func TestQuery_FailureKeepsRows(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{})
	ctx := context.Background()

	q.setErr(errors.New("HTTP error! status: 500"))
	c.Refresh(ctx)

	s := c.Snapshot()
	assert.Equal(t, "HTTP error! status: 500", s.Error)
	assert.Len(t, s.Entities, 20)
	assert.False(t, s.Loading)

	q.setErr(nil)
	c.Query(ctx)
	assert.Empty(t, c.Snapshot().Error)
}

func TestLoadMore_AfterFailedReset(t *testing.T) {
	tests := []struct {
		name string
		op   func(context.Context, *Controller)
	}{
		{"sorting", func(ctx context.Context, c *Controller) { c.ChangeSorting(ctx, "revenue") }},
		{"filters", func(ctx context.Context, c *Controller) { c.ChangeFilters(ctx, core.Filters{Search: "acme"}) }},
		{"page size", func(ctx context.Context, c *Controller) { c.ChangePageSize(ctx, 10) }},
		{"refresh", func(ctx context.Context, c *Controller) { c.Refresh(ctx) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newFakeQuerier(100)
			c := newController(t, q, Options{})
			ctx := context.Background()
			require.True(t, c.LoadMore(ctx))
			require.True(t, c.LoadMore(ctx))
			require.Len(t, c.Snapshot().Entities, 60)

			q.setErr(errors.New("HTTP error! status: 503"))
			tt.op(ctx, c)
			before := len(q.calls())

			s := c.Snapshot()
			assert.NotEmpty(t, s.Error)
			assert.False(t, s.HasMore)
			assert.False(t, c.LoadMore(ctx))
			assert.Len(t, q.calls(), before)

			s = c.Snapshot()
			require.Len(t, s.Entities, 60)
			seen := map[string]bool{}
			for _, e := range s.Entities {
				assert.False(t, seen[e.ID()], "duplicate row %s", e.ID())
				seen[e.ID()] = true
			}
			assert.Equal(t, 1, c.StartIndex())
			assert.Equal(t, 60, c.EndIndex())

			q.setErr(nil)
			c.Refresh(ctx)
			s = c.Snapshot()
			assert.Empty(t, s.Error)
			assert.True(t, s.HasMore)
			assert.Equal(t, 1, s.Page)
			assert.Equal(t, q.last().PageSize, len(s.Entities))
			assert.True(t, c.LoadMore(ctx))
			assert.Equal(t, 2, q.last().Page)
		})
	}
}

func TestIndices_FollowRowsAfterFailedPageChange(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{})
	ctx := context.Background()
	require.True(t, c.GoToPage(ctx, 3))

	q.setErr(errors.New("HTTP error! status: 500"))
	c.ChangePageSize(ctx, 10)

	s := c.Snapshot()
	assert.Len(t, s.Entities, 5)
	assert.Equal(t, 41, c.StartIndex())
	assert.Equal(t, 45, c.EndIndex())
}

func TestQuery_OutOfOrderResponsesDiscarded(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{})
	ctx := context.Background()

	q.started = make(chan int, 4)
	slow := q.gate(2)

	done := make(chan struct{})
	go func() {
		c.ChangeSorting(ctx, "revenue")
		close(done)
	}()
	require.Equal(t, 2, <-q.started)

	c.ChangeFilters(ctx, core.Filters{Search: "acme"})
	require.Equal(t, 3, <-q.started)

	close(slow)
	<-done

	s := c.Snapshot()
	require.NotEmpty(t, s.Entities)
	assert.Equal(t, 3, s.Entities[0]["call"])
	assert.Equal(t, "acme", s.Filters.Search)
	assert.False(t, s.Loading)
}

func TestQuery_ClampsPastLastPage(t *testing.T) {
	q := newFakeQuerier(45)
	logger, rec := testutil.NewLogRecorder(t)
	c := newController(t, q, Options{Logger: logger})
	ctx := context.Background()
	require.True(t, c.GoToPage(ctx, 3))

	q.setTotal(15)
	before := len(q.calls())
	c.Query(ctx)

	calls := q.calls()[before:]
	require.Len(t, calls, 2)
	assert.Equal(t, 3, calls[0].Page)
	assert.Equal(t, 1, calls[1].Page)

	s := c.Snapshot()
	assert.Equal(t, 1, s.Page)
	assert.Equal(t, 15, s.TotalCount)
	assert.Len(t, s.Entities, 15)
	assert.Contains(t, rec.Messages(), "page out of range, clamping")
}

func TestQuery_ClampsOnceWhenEverythingDeleted(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{})
	ctx := context.Background()
	require.True(t, c.GoToPage(ctx, 2))

	q.setTotal(0)
	before := len(q.calls())
	c.Query(ctx)

	assert.Len(t, q.calls()[before:], 2)
	s := c.Snapshot()
	assert.Equal(t, 1, s.Page)
	assert.Empty(t, s.Entities)
	assert.Equal(t, 1, c.StartIndex())
	assert.Equal(t, 0, c.EndIndex())
}

func TestSubscribe(t *testing.T) {
	q := newFakeQuerier(45)
	c := newController(t, q, Options{})
	ch := c.Subscribe()
	defer c.Unsubscribe(ch)

	c.Refresh(context.Background())
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected change notification")
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(newFakeQuerier(0), Options{EntityType: "leads", PageSize: -1})
	s := c.Snapshot()
	assert.Equal(t, "leads", s.EntityType)
	assert.Equal(t, core.DefaultPageSize, s.PageSize)
	assert.Equal(t, core.SortAsc, s.SortOrder)
	assert.Equal(t, 1, s.Page)
}
