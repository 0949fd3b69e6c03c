package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapcrm/internal/cli/output"
	"github.com/leapstack-labs/leapcrm/internal/picklist"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/spf13/cobra"
)

// PicklistOptions holds options for the picklist command.
type PicklistOptions struct {
	Search string
	All    bool
}

// NewPicklistCommand creates the picklist command.
func NewPicklistCommand() *cobra.Command {
	opts := &PicklistOptions{}

	cmd := &cobra.Command{
		Use:   "picklist <type>",
		Short: "Show a lookup list such as industries or company sizes",
		Long: `Show a lookup list. Without --search the full list is shown; with --search
the server returns matches by name or code in windows of 50.

Available lists: industries, companysizes, leadstatuses, leadtemperatures`,
		Example: `  leapcrm picklist industries
  leapcrm picklist industries --search tech
  leapcrm picklist industries --search a --all`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return picklist.ListTypes(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := cc.requireSession(cmd.Context()); err != nil {
				return err
			}
			return runPicklist(cmd.Context(), cc, strings.ToLower(args[0]), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Search by name or code")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Keep loading search results until none are left")

	return cmd
}

func runPicklist(ctx context.Context, cc *CommandContext, entityType string, opts *PicklistOptions) error {
	if !picklist.IsRegistered(entityType) {
		return &picklist.UnknownPicklistError{Type: entityType, Available: picklist.ListTypes()}
	}

	ld := picklist.NewLoader(cc.Client, cc.Cache, entityType, picklist.WithLogger(cc.Logger))
	var err error
	if opts.Search != "" {
		err = ld.Search(ctx, opts.Search)
	} else {
		err = ld.Load(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", entityType, err)
	}
	if opts.All && opts.Search != "" {
		for st := ld.Snapshot(); st.HasMore; {
			if err := ld.LoadMore(ctx); err != nil {
				return fmt.Errorf("failed to load more %s: %w", entityType, err)
			}
			next := ld.Snapshot()
			if next.Offset == st.Offset {
				break
			}
			st = next
		}
	}

	st := ld.Snapshot()
	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(core.PicklistPage{Items: st.Items, TotalCount: st.TotalCount, HasMore: st.HasMore})
	}

	t := output.Table{
		Title:   entityType,
		Headers: []string{"ID", "Name", "Code", "Active", "Description"},
	}
	for _, it := range st.Items {
		active := "inactive"
		if it.IsActive {
			active = "active"
		}
		t.Rows = append(t.Rows, []string{it.ID, it.Name, it.Code, r.Badge(active), it.Description})
	}
	if r.EffectiveMode() != output.ModeCSV {
		t.Caption = output.FormatRange(min(1, len(st.Items)), len(st.Items), st.TotalCount)
		if st.HasMore {
			t.Caption += " (use --all to load the rest)"
		}
	}
	return r.Table(t)
}
