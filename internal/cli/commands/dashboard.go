package commands

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapcrm/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show record counts and the deal pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := cc.requireSession(cmd.Context()); err != nil {
				return err
			}
			return runDashboard(cmd.Context(), cc)
		},
	}
}

func runDashboard(ctx context.Context, cc *CommandContext) error {
	stats, err := cc.Client.DashboardStats(ctx)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(stats)
	}

	if r.EffectiveMode() != output.ModeCSV {
		r.Header(1, "Dashboard")
		r.KeyValue("Companies", output.FormatInt(stats.TotalCompanies))
		r.KeyValue("Contacts", output.FormatInt(stats.TotalContacts))
		r.KeyValue("Leads", output.FormatInt(stats.TotalLeads))
		r.KeyValue("Deals", output.FormatInt(stats.TotalDeals))
		r.Println()
	}

	t := output.Table{
		Title:   "Pipeline",
		Headers: []string{"Stage", "Deals"},
		Align:   []string{"", "right"},
	}
	for _, s := range stats.PipelineStages {
		t.Rows = append(t.Rows, []string{r.Badge(s.Name), fmt.Sprint(s.Count)})
	}
	return r.Table(t)
}
