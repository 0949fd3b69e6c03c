package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapcrm/internal/picklist"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/leapstack-labs/leapcrm/pkg/filter"
)

// lookups holds one picklist loader per lookup list a command touches.
// It resolves reference ids to names for display and names to ids for input.
type lookups struct {
	src     picklist.Source
	cache   *picklist.Cache
	logger  *slog.Logger
	loaders map[string]*picklist.Loader

	// onNew, when set, sees every loader before its first load.
	onNew func(*picklist.Loader)
}

func newLookups(src picklist.Source, cache *picklist.Cache, logger *slog.Logger) *lookups {
	return &lookups{
		src:     src,
		cache:   cache,
		logger:  logger,
		loaders: make(map[string]*picklist.Loader),
	}
}

// loader returns the loaded loader for a lookup list.
func (l *lookups) loader(ctx context.Context, entityType string) (*picklist.Loader, error) {
	if ld, ok := l.loaders[entityType]; ok {
		return ld, nil
	}
	ld := picklist.NewLoader(l.src, l.cache, entityType, picklist.WithLogger(l.logger))
	if l.onNew != nil {
		l.onNew(ld)
	}
	if err := ld.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", entityType, err)
	}
	l.loaders[entityType] = ld
	return ld, nil
}

// prepare loads the lookup lists behind the reference columns. Failures
// only cost the labels, so they are logged and skipped.
func (l *lookups) prepare(ctx context.Context, cols []core.Column) {
	for _, c := range cols {
		entityType, ok := filter.ReferenceFor(c.Key)
		if !ok {
			continue
		}
		if _, err := l.loader(ctx, entityType); err != nil {
			l.logger.Warn("showing raw ids", "column", c.Key, "error", err)
		}
	}
}

// Label implements output.Labeler.
func (l *lookups) Label(columnKey, id string) (string, bool) {
	entityType, ok := filter.ReferenceFor(columnKey)
	if !ok {
		return "", false
	}
	ld, ok := l.loaders[entityType]
	if !ok {
		return "", false
	}
	it, ok := ld.Item(id)
	if !ok {
		return "", false
	}
	return it.Name, true
}

// resolve maps a user-typed name, code or id to the item id.
func (l *lookups) resolve(ctx context.Context, entityType, value string) (string, error) {
	ld, err := l.loader(ctx, entityType)
	if err != nil {
		return "", err
	}
	if it, ok := ld.Match(value); ok {
		return it.ID, nil
	}
	names := make([]string, 0, len(ld.Snapshot().Items))
	for _, it := range ld.Snapshot().Items {
		names = append(names, it.Name)
	}
	return "", fmt.Errorf("unknown %s value %q\nAvailable: %s", entityType, value, strings.Join(names, ", "))
}

// buildFilters turns --search and key<op>value expressions into filters for
// a view. Picklist values may be given by name or code.
func buildFilters(ctx context.Context, view core.ViewConfig, search string, exprs []string, l *lookups) (core.Filters, error) {
	form := filter.NewForm(view)
	form.SetSearch(search)
	for _, raw := range exprs {
		if err := applyExpr(ctx, form, raw, l); err != nil {
			return core.Filters{}, err
		}
	}
	return form.Filters(), nil
}

// applyExpr parses one key<op>value expression into the form.
func applyExpr(ctx context.Context, form *filter.Form, raw string, l *lookups) error {
	e, err := filter.ParseExpr(raw)
	if err != nil {
		return err
	}
	ctrl, err := form.Control(e.Key)
	if err != nil {
		return err
	}
	value := e.Value
	if ctrl.Kind == filter.ControlPicklist {
		if value, err = l.resolve(ctx, ctrl.Picklist, value); err != nil {
			return err
		}
	}
	spec, err := filter.Build(ctrl, e.Op, value)
	if err != nil {
		return err
	}
	return form.Set(e.Key, spec)
}
