package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// Resource paths for the record CRUD endpoints.
const (
	CompaniesPath = "/companies"
	ContactsPath  = "/contacts"
	LeadsPath     = "/leads"
	DealsPath     = "/deals"
)

func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func get[T any](ctx context.Context, c *Client, path, id string) (*T, error) {
	var out T
	if err := c.do(ctx, http.MethodGet, path+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func create[T any](ctx context.Context, c *Client, path string, in T) (*T, error) {
	var out T
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func update[T any](ctx context.Context, c *Client, path, id string, in T) (*T, error) {
	var out T
	if err := c.do(ctx, http.MethodPut, path+"/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func remove(ctx context.Context, c *Client, path, id string) error {
	return c.do(ctx, http.MethodDelete, path+"/"+url.PathEscape(id), nil, nil)
}

// Companies lists all companies.
func (c *Client) Companies(ctx context.Context) ([]core.Company, error) {
	return list[core.Company](ctx, c, CompaniesPath)
}

// Company fetches one company.
func (c *Client) Company(ctx context.Context, id string) (*core.Company, error) {
	return get[core.Company](ctx, c, CompaniesPath, id)
}

// CreateCompany creates a company after checking required fields.
func (c *Client) CreateCompany(ctx context.Context, in core.Company) (*core.Company, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return create(ctx, c, CompaniesPath, in)
}

// UpdateCompany replaces a company.
func (c *Client) UpdateCompany(ctx context.Context, in core.Company) (*core.Company, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return update(ctx, c, CompaniesPath, in.ID, in)
}

// DeleteCompany deletes a company.
func (c *Client) DeleteCompany(ctx context.Context, id string) error {
	return remove(ctx, c, CompaniesPath, id)
}

// Contacts lists all contacts.
func (c *Client) Contacts(ctx context.Context) ([]core.Contact, error) {
	return list[core.Contact](ctx, c, ContactsPath)
}

// Contact fetches one contact.
func (c *Client) Contact(ctx context.Context, id string) (*core.Contact, error) {
	return get[core.Contact](ctx, c, ContactsPath, id)
}

// CreateContact creates a contact after checking required fields.
func (c *Client) CreateContact(ctx context.Context, in core.Contact) (*core.Contact, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return create(ctx, c, ContactsPath, in)
}

// UpdateContact replaces a contact.
func (c *Client) UpdateContact(ctx context.Context, in core.Contact) (*core.Contact, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return update(ctx, c, ContactsPath, in.ID, in)
}

// DeleteContact deletes a contact.
func (c *Client) DeleteContact(ctx context.Context, id string) error {
	return remove(ctx, c, ContactsPath, id)
}

// Leads lists all leads.
func (c *Client) Leads(ctx context.Context) ([]core.Lead, error) {
	return list[core.Lead](ctx, c, LeadsPath)
}

// Lead fetches one lead.
func (c *Client) Lead(ctx context.Context, id string) (*core.Lead, error) {
	return get[core.Lead](ctx, c, LeadsPath, id)
}

// CreateLead creates a lead.
func (c *Client) CreateLead(ctx context.Context, in core.Lead) (*core.Lead, error) {
	return create(ctx, c, LeadsPath, in)
}

// UpdateLead replaces a lead.
func (c *Client) UpdateLead(ctx context.Context, in core.Lead) (*core.Lead, error) {
	return update(ctx, c, LeadsPath, in.ID, in)
}

// DeleteLead deletes a lead.
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return remove(ctx, c, LeadsPath, id)
}

// Deals lists all deals.
func (c *Client) Deals(ctx context.Context) ([]core.Deal, error) {
	return list[core.Deal](ctx, c, DealsPath)
}

// Deal fetches one deal.
func (c *Client) Deal(ctx context.Context, id string) (*core.Deal, error) {
	return get[core.Deal](ctx, c, DealsPath, id)
}

// CreateDeal creates a deal.
func (c *Client) CreateDeal(ctx context.Context, in core.Deal) (*core.Deal, error) {
	return create(ctx, c, DealsPath, in)
}

// UpdateDeal replaces a deal.
func (c *Client) UpdateDeal(ctx context.Context, in core.Deal) (*core.Deal, error) {
	return update(ctx, c, DealsPath, in.ID, in)
}

// DeleteDeal deletes a deal.
func (c *Client) DeleteDeal(ctx context.Context, id string) error {
	return remove(ctx, c, DealsPath, id)
}
