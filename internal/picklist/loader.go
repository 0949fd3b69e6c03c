package picklist

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapcrm/internal/notifier"
	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// Source fetches lookup lists. *api.Client implements it.
type Source interface {
	Picklist(ctx context.Context, entityType string) (*core.PicklistPage, error)
	SearchPicklist(ctx context.Context, req core.PicklistSearchRequest) (*core.PicklistPage, error)
}

// State is a snapshot of a loader.
type State struct {
	Items   []core.PicklistItem
	Loading bool
	Error   string
	// Query is the search Items belong to; empty for the full list. It only
	// changes when a request succeeds.
	Query      string
	HasMore    bool
	Offset     int
	TotalCount int
}

// Loader serves one consumer (a select, a filter control, a column renderer)
// of one lookup list. It reads through the shared Cache for full lists and
// goes to the server for searches.
type Loader struct {
	src        Source
	cache      *Cache
	entityType string
	cacheKey   string
	searchable bool
	preload    bool
	logger     *slog.Logger
	notifier   *notifier.Notifier

	mu    sync.Mutex
	seq   uint64
	state State
}

// Option configures a Loader.
type Option func(*Loader)

// WithCacheKey overrides the default "picklist_<type>" cache key.
func WithCacheKey(key string) Option {
	return func(l *Loader) { l.cacheKey = key }
}

// WithoutSearch makes Search always serve the full list.
func WithoutSearch() Option {
	return func(l *Loader) { l.searchable = false }
}

// WithoutPreload makes Load a no-op; items arrive only via Search or Refresh.
func WithoutPreload() Option {
	return func(l *Loader) { l.preload = false }
}

// WithLogger sets the logger (nil uses discard logger).
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader for entityType backed by src and the shared cache.
func NewLoader(src Source, cache *Cache, entityType string, opts ...Option) *Loader {
	l := &Loader{
		src:        src,
		cache:      cache,
		entityType: entityType,
		cacheKey:   CacheKey(entityType),
		searchable: true,
		preload:    true,
		logger:     slog.New(slog.DiscardHandler),
		notifier:   notifier.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("picklist", entityType)
	return l
}

// EntityType returns the list type this loader serves.
func (l *Loader) EntityType() string {
	return l.entityType
}

// Snapshot returns a copy of the current state.
func (l *Loader) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.Items = slices.Clone(s.Items)
	return s
}

// Subscribe returns a channel pinged on every state change.
func (l *Loader) Subscribe() <-chan struct{} {
	return l.notifier.Subscribe()
}

// Unsubscribe stops pings on ch.
func (l *Loader) Unsubscribe(ch <-chan struct{}) {
	l.notifier.Unsubscribe(ch)
}

// Load fills the loader with the full list, from cache when fresh.
// It does nothing when preload is disabled.
func (l *Loader) Load(ctx context.Context) error {
	if !l.preload {
		return nil
	}
	return l.loadAll(ctx, true)
}

// Search replaces the items with the first window of server-side matches for
// query. An empty query restores the full list. Search results are never cached.
// On failure the previous items and query are kept.
func (l *Loader) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" || !l.searchable {
		return l.loadAll(ctx, true)
	}
	return l.search(ctx, query, 0)
}

// LoadMore appends the next window of search results. It only acts while a
// search is active, more results exist and nothing is loading.
func (l *Loader) LoadMore(ctx context.Context) error {
	l.mu.Lock()
	st := l.state
	l.mu.Unlock()
	if !l.searchable || st.Query == "" || !st.HasMore || st.Loading {
		return nil
	}
	return l.search(ctx, st.Query, st.Offset+core.PicklistSearchLimit)
}

// Refresh drops the cache entry, clears the search and refetches the full list.
func (l *Loader) Refresh(ctx context.Context) error {
	l.cache.Invalidate(l.cacheKey)
	return l.loadAll(ctx, false)
}

// Item returns the loaded item with the given id.
func (l *Loader) Item(id string) (core.PicklistItem, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range l.state.Items {
		if it.ID == id {
			return it, true
		}
	}
	return core.PicklistItem{}, false
}

// Match finds a loaded item by id, code or name (case-insensitive).
func (l *Loader) Match(s string) (core.PicklistItem, bool) {
	s = strings.TrimSpace(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range l.state.Items {
		if it.ID == s || strings.EqualFold(it.Code, s) || strings.EqualFold(it.Name, s) {
			return it, true
		}
	}
	return core.PicklistItem{}, false
}

// begin marks a new request in flight and returns its sequence id.
func (l *Loader) begin() uint64 {
	l.mu.Lock()
	l.seq++
	id := l.seq
	l.state.Loading = true
	l.mu.Unlock()
	l.notifier.Notify()
	return id
}

// finish applies fn if id is still the latest request. Stale results are dropped.
func (l *Loader) finish(id uint64, fn func(*State)) bool {
	l.mu.Lock()
	if id != l.seq {
		l.mu.Unlock()
		l.logger.Debug("discarding stale picklist response", "seq", id)
		return false
	}
	fn(&l.state)
	l.state.Loading = false
	l.mu.Unlock()
	l.notifier.Notify()
	return true
}

func (l *Loader) loadAll(ctx context.Context, useCache bool) error {
	if useCache {
		if items, ok := l.cache.Get(l.cacheKey); ok {
			l.logger.Debug("picklist served from cache", "items", len(items))
			l.finish(l.begin(), func(s *State) {
				s.Items = items
				s.Query = ""
				s.HasMore = false
				s.Offset = 0
				s.TotalCount = len(items)
				s.Error = ""
			})
			return nil
		}
	}

	id := l.begin()
	page, err := l.src.Picklist(ctx, l.entityType)
	if err != nil {
		l.logger.Warn("failed to fetch picklist", "error", err)
		if l.finish(id, func(s *State) { s.Error = err.Error() }) {
			return err
		}
		return nil
	}

	l.cache.Set(l.cacheKey, page.Items)
	l.finish(id, func(s *State) {
		s.Items = slices.Clone(page.Items)
		s.Query = ""
		s.HasMore = page.HasMore
		s.Offset = 0
		s.TotalCount = page.TotalCount
		s.Error = ""
	})
	return nil
}

func (l *Loader) search(ctx context.Context, query string, offset int) error {
	name, err := SearchName(l.entityType)
	if err != nil {
		l.mu.Lock()
		l.state.Error = err.Error()
		l.mu.Unlock()
		l.notifier.Notify()
		return err
	}

	id := l.begin()
	page, err := l.src.SearchPicklist(ctx, core.PicklistSearchRequest{
		Query:      query,
		Limit:      core.PicklistSearchLimit,
		Offset:     offset,
		EntityType: name,
	})
	if err != nil {
		l.logger.Warn("picklist search failed", "query", query, "error", err)
		if l.finish(id, func(s *State) { s.Error = err.Error() }) {
			return err
		}
		return nil
	}

	l.finish(id, func(s *State) {
		if offset == 0 {
			s.Items = slices.Clone(page.Items)
		} else {
			s.Items = append(s.Items, page.Items...)
		}
		s.Query = query
		s.HasMore = page.HasMore
		s.Offset = offset
		s.TotalCount = page.TotalCount
		s.Error = ""
	})
	return nil
}
