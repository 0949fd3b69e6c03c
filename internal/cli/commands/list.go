package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapcrm/internal/cli/output"
	"github.com/leapstack-labs/leapcrm/internal/entitylist"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/spf13/cobra"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	Page     int
	PageSize int
	Sort     string
	Order    string
	View     string
	Search   string
	Filters  []string
	All      bool
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "List companies, contacts, leads or deals",
		Long: `List one page of records using a server-defined view.

Filters take the form key<op>value where op is one of
  =  !=  ~ (contains)  ^= (starts with)  $= (ends with)  >  >=  <  <=
Picklist columns such as industryId accept the item name or code.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, csv`,
		Example: `  # First page of companies
  leapcrm list companies

  # Page 3, 50 per page, newest first
  leapcrm list companies --page 3 --page-size 50 --sort created_at --order desc

  # Filtered
  leapcrm list companies --filter industryId=Software --filter "revenue>=1000000"

  # Everything, as CSV
  leapcrm list contacts --all -o csv`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeEntityTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := cc.requireSession(cmd.Context()); err != nil {
				return err
			}
			if !cmd.Flags().Changed("page-size") {
				opts.PageSize = cc.Cfg.PageSize
			}
			return runList(cmd.Context(), cc, strings.ToLower(args[0]), opts)
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", core.DefaultPageSize, "Rows per page (max 100)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Sort column key (default: the view's default sort)")
	cmd.Flags().StringVar(&opts.Order, "order", "", "Sort order asc|desc (default: the view's default order)")
	cmd.Flags().StringVar(&opts.View, "view", "", "View name (default: the first view)")
	cmd.Flags().StringVar(&opts.Search, "search", "", "Global search text")
	cmd.Flags().StringArrayVarP(&opts.Filters, "filter", "f", nil, "Column filter key<op>value (repeatable)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Fetch every page")

	_ = cmd.RegisterFlagCompletionFunc("order", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"asc", "desc"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// preloadedViews serves views fetched ahead of the controller so filters can
// be resolved against the chosen view before the first query.
type preloadedViews struct {
	entitylist.Querier
	views []core.ViewConfig
}

func (p preloadedViews) EntityViews(context.Context, string) ([]core.ViewConfig, error) {
	return p.views, nil
}

// pickView returns the named view, or the first one when name is empty.
func pickView(views []core.ViewConfig, name string) (core.ViewConfig, error) {
	if len(views) == 0 {
		return core.ViewConfig{}, errors.New("the server offers no views for this entity type")
	}
	if name == "" {
		return views[0], nil
	}
	if v, ok := core.FindView(views, name); ok {
		return v, nil
	}
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}
	return core.ViewConfig{}, fmt.Errorf("unknown view %q\nAvailable views: %v", name, names)
}

// parseOrderFlag validates --order. An empty value leaves the order to the
// view.
func parseOrderFlag(s string) (core.SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case string(core.SortAsc), string(core.SortDesc):
		return core.ParseSortOrder(s), nil
	}
	return "", fmt.Errorf("invalid --order %q (use asc or desc)", s)
}

// openList fetches the views, resolves the filters and returns an
// initialized controller for the entity type.
func openList(ctx context.Context, cc *CommandContext, entityType string, opts *ListOptions, l *lookups) (*entitylist.Controller, error) {
	views, err := cc.Client.EntityViews(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to load views: %w", err)
	}
	view, err := pickView(views, opts.View)
	if err != nil {
		return nil, err
	}
	order, err := parseOrderFlag(opts.Order)
	if err != nil {
		return nil, err
	}
	filters, err := buildFilters(ctx, view, opts.Search, opts.Filters, l)
	if err != nil {
		return nil, err
	}
	l.prepare(ctx, view.Columns)

	ctrl := entitylist.New(preloadedViews{Querier: cc.Client, views: views}, entitylist.Options{
		EntityType: entityType,
		PageSize:   opts.PageSize,
		SortBy:     opts.Sort,
		SortOrder:  order,
		Filters:    filters,
		View:       view.Name,
		Logger:     cc.Logger,
	})
	ctrl.Initialize(ctx)
	if st := ctrl.Snapshot(); st.Error != "" {
		ctrl.Close()
		return nil, errors.New(st.Error)
	}
	return ctrl, nil
}

func runList(ctx context.Context, cc *CommandContext, entityType string, opts *ListOptions) error {
	l := newLookups(cc.Client, cc.Cache, cc.Logger)
	ctrl, err := openList(ctx, cc, entityType, opts, l)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if opts.Page > 1 {
		if !ctrl.GoToPage(ctx, opts.Page) {
			return fmt.Errorf("page %d is out of range (1..%d)", opts.Page, max(ctrl.Snapshot().TotalPages, 1))
		}
	}
	if opts.All {
		for ctrl.LoadMore(ctx) {
			if st := ctrl.Snapshot(); st.Error != "" {
				break
			}
		}
	}

	st := ctrl.Snapshot()
	if st.Error != "" {
		return errors.New(st.Error)
	}
	return renderList(cc.Renderer, st, l)
}

// renderList prints the rows of a controller state in the renderer's mode.
func renderList(r *output.Renderer, st entitylist.State, labels output.Labeler) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(core.EntityQueryResponse{
			Entities:   st.Entities,
			TotalCount: st.TotalCount,
			Page:       st.Page,
			PageSize:   st.PageSize,
			TotalPages: st.TotalPages,
			HasMore:    st.HasMore,
			SortBy:     st.SortBy,
			SortOrder:  st.SortOrder,
		})
	}

	view, _ := st.View()
	title := st.EntityType
	if view.DisplayName != "" {
		title += ": " + view.DisplayName
	}
	t := output.EntityTable(title, view.Columns, st.Entities, labels)
	if r.EffectiveMode() != output.ModeCSV {
		t.Caption = listCaption(st)
	}
	return r.Table(t)
}

func listCaption(st entitylist.State) string {
	caption := output.FormatRange(st.StartIndex(), st.EndIndex(), st.TotalCount)
	if st.TotalPages > 0 {
		caption += fmt.Sprintf(", page %d of %d", st.Page, st.TotalPages)
	}
	if st.SortBy != "" {
		caption += fmt.Sprintf(", sorted by %s %s", st.SortBy, st.SortOrder)
	}
	return caption
}
