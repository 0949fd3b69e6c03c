package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapcrm/internal/cli/output"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/leapstack-labs/leapcrm/pkg/filter"
	"github.com/spf13/cobra"
)

// entityTypes are the list types offered for completion.
var entityTypes = []string{"companies", "contacts", "leads", "deals"}

func completeEntityTypes(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return entityTypes, cobra.ShellCompDirectiveNoFileComp
}

// ViewsOptions holds options for the views command.
type ViewsOptions struct {
	View string
}

// NewViewsCommand creates the views command.
func NewViewsCommand() *cobra.Command {
	opts := &ViewsOptions{}

	cmd := &cobra.Command{
		Use:   "views <entity>",
		Short: "Show the list views available for an entity type",
		Long: `Show the named column layouts the server offers for an entity type.

With --view, list that view's columns together with the filter control and
operators each filterable column accepts.`,
		Example: `  leapcrm views companies
  leapcrm views companies --view detailed`,
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
			return runViews(cmd.Context(), cc, strings.ToLower(args[0]), opts)
		},
	}

	cmd.Flags().StringVar(&opts.View, "view", "", "Show the columns of one view")

	return cmd
}

func runViews(ctx context.Context, cc *CommandContext, entityType string, opts *ViewsOptions) error {
	views, err := cc.Client.EntityViews(ctx, entityType)
	if err != nil {
		return fmt.Errorf("failed to load views: %w", err)
	}
	r := cc.Renderer

	if opts.View == "" {
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(core.ViewsResponse{Views: views})
		}
		t := output.Table{
			Title:   fmt.Sprintf("Views for %s", entityType),
			Headers: []string{"Name", "Display Name", "Columns", "Default Sort"},
		}
		for _, v := range views {
			sort := v.DefaultSort
			if sort != "" {
				sort += " " + string(orderOrAsc(v.DefaultOrder))
			}
			t.Rows = append(t.Rows, []string{v.Name, v.DisplayName, strconv.Itoa(len(v.Columns)), sort})
		}
		return r.Table(t)
	}

	v, ok := core.FindView(views, opts.View)
	if !ok {
		names := make([]string, len(views))
		for i, v := range views {
			names[i] = v.Name
		}
		return fmt.Errorf("unknown view %q\nAvailable views: %v", opts.View, names)
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(v)
	}

	t := output.Table{
		Title:   fmt.Sprintf("%s (%s)", v.DisplayName, v.Name),
		Headers: []string{"Key", "Label", "Type", "Sortable", "Filter", "Operators"},
	}
	for _, c := range v.Columns {
		control, ops := "-", "-"
		if c.Filterable {
			ctrl := filter.Resolve(c)
			control = string(ctrl.Kind)
			if ctrl.Picklist != "" {
				control += " (" + ctrl.Picklist + ")"
			}
			labels := make([]string, len(ctrl.Operators))
			for i, op := range ctrl.Operators {
				labels[i] = filter.OperatorLabel(ctrl.Kind, op)
			}
			ops = strings.Join(labels, ", ")
		}
		t.Rows = append(t.Rows, []string{c.Key, c.Label, string(c.Type), yesNo(c.Sortable), control, ops})
	}
	return r.Table(t)
}

func orderOrAsc(o core.SortOrder) core.SortOrder {
	if o == "" {
		return core.SortAsc
	}
	return o
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
