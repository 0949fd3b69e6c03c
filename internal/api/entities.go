package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// EntityViews returns the view configurations for an entity type.
func (c *Client) EntityViews(ctx context.Context, entityType string) ([]core.ViewConfig, error) {
	var out core.ViewsResponse
	if err := c.do(ctx, http.MethodGet, "/entities/"+url.PathEscape(entityType)+"/views", nil, &out); err != nil {
		return nil, err
	}
	return out.Views, nil
}

// QueryEntities fetches one page of an entity list.
func (c *Client) QueryEntities(ctx context.Context, req core.EntityQueryRequest) (*core.EntityQueryResponse, error) {
	var out core.EntityQueryResponse
	if err := c.do(ctx, http.MethodPost, "/entities/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Picklist fetches the full lookup list for a type (e.g. "industries").
func (c *Client) Picklist(ctx context.Context, entityType string) (*core.PicklistPage, error) {
	var out core.PicklistPage
	if err := c.do(ctx, http.MethodGet, "/picklists/"+url.PathEscape(entityType), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchPicklist fetches a window of lookup items matching a query.
func (c *Client) SearchPicklist(ctx context.Context, req core.PicklistSearchRequest) (*core.PicklistPage, error) {
	var out core.PicklistPage
	if err := c.do(ctx, http.MethodPost, "/picklists/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
