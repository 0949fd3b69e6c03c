package api

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapcrm/pkg/core"
	"golang.org/x/sync/errgroup"
)

// DashboardStats counts companies, contacts, leads and deals by fetching
// the four lists concurrently. Deals are also counted per pipeline stage.
func (c *Client) DashboardStats(ctx context.Context) (*core.DashboardStats, error) {
	var (
		companies []core.Company
		contacts  []core.Contact
		leads     []core.Lead
		deals     []core.Deal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		companies, err = c.Companies(gctx)
		return err
	})
	g.Go(func() (err error) {
		contacts, err = c.Contacts(gctx)
		return err
	})
	g.Go(func() (err error) {
		leads, err = c.Leads(gctx)
		return err
	})
	g.Go(func() (err error) {
		deals, err = c.Deals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch dashboard data: %w", err)
	}

	byStage := make(map[string]int, len(core.PipelineStages))
	for _, d := range deals {
		byStage[d.Stage]++
	}
	stages := make([]core.StageCount, len(core.PipelineStages))
	for i, name := range core.PipelineStages {
		stages[i] = core.StageCount{Name: name, Count: byStage[name]}
	}

	return &core.DashboardStats{
		TotalCompanies: len(companies),
		TotalContacts:  len(contacts),
		TotalLeads:     len(leads),
		TotalDeals:     len(deals),
		PipelineStages: stages,
	}, nil
}
