package devserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/leapcrm/internal/picklist"
	"github.com/leapstack-labs/leapcrm/pkg/core"
)

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	views := s.views[strings.ToLower(chi.URLParam(r, "entityType"))]
	if views == nil {
		views = []core.ViewConfig{}
	}
	writeJSON(w, http.StatusOK, core.ViewsResponse{Views: views})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req core.EntityQueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EntityType == "" {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "entityType is required")
		return
	}
	resp, err := s.store.QueryEntities(r.Context(), req)
	if err != nil {
		writeStoreError(w, s.logger, "entities", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePicklist(w http.ResponseWriter, r *http.Request) {
	list := chi.URLParam(r, "entityType")
	if !isLookupList(list) {
		writeError(w, http.StatusBadRequest, "INVALID_PICKLIST", "Invalid entity type")
		return
	}
	items, err := s.store.Picklist(r.Context(), list)
	if err != nil {
		writeStoreError(w, s.logger, list, err)
		return
	}
	writeJSON(w, http.StatusOK, core.PicklistPage{Items: items, TotalCount: len(items)})
}

func (s *Server) handlePicklistSearch(w http.ResponseWriter, r *http.Request) {
	var req core.PicklistSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Limit < 1 || req.Limit > 100 || req.Offset < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_WINDOW", "limit must be 1..100 and offset non-negative")
		return
	}
	list, ok := listForSearchName(req.EntityType)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_PICKLIST", "Invalid entity type")
		return
	}
	items, total, err := s.store.SearchPicklist(r.Context(), list, req.Query, req.Limit, req.Offset)
	if err != nil {
		writeStoreError(w, s.logger, list, err)
		return
	}
	writeJSON(w, http.StatusOK, core.PicklistPage{
		Items:      items,
		TotalCount: total,
		HasMore:    req.Offset+len(items) < total,
	})
}

func isLookupList(list string) bool {
	for _, l := range lookupLists {
		if l == list {
			return true
		}
	}
	return false
}

// listForSearchName maps the singular name used by search requests back to
// its list.
func listForSearchName(name string) (string, bool) {
	for _, list := range lookupLists {
		if singular, err := picklist.SearchName(list); err == nil && singular == name {
			return list, true
		}
	}
	return "", false
}

// resource wires the five REST handlers of one record type.
type resource[T any] struct {
	name     string
	list     func(context.Context) ([]T, error)
	get      func(context.Context, string) (*T, error)
	create   func(context.Context, T) (*T, error)
	update   func(context.Context, string, T) (*T, error)
	remove   func(context.Context, string) error
	validate func(T) error
}

func mountResource[T any](r chi.Router, s *Server, path string, res resource[T]) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			items, err := res.list(r.Context())
			if err != nil {
				writeStoreError(w, s.logger, res.name, err)
				return
			}
			writeJSON(w, http.StatusOK, items)
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in T
			if !decodeJSON(w, r, &in) || !validated(w, res.validate, in) {
				return
			}
			out, err := res.create(r.Context(), in)
			if err != nil {
				writeStoreError(w, s.logger, res.name, err)
				return
			}
			writeJSON(w, http.StatusCreated, out)
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			out, err := res.get(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeStoreError(w, s.logger, res.name, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var in T
			if !decodeJSON(w, r, &in) || !validated(w, res.validate, in) {
				return
			}
			out, err := res.update(r.Context(), chi.URLParam(r, "id"), in)
			if err != nil {
				writeStoreError(w, s.logger, res.name, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := res.remove(r.Context(), chi.URLParam(r, "id")); err != nil {
				writeStoreError(w, s.logger, res.name, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

func validated[T any](w http.ResponseWriter, validate func(T) error, in T) bool {
	if validate == nil {
		return true
	}
	if err := validate(in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return false
	}
	return true
}

func (s *Server) mountResources(r chi.Router) {
	st := s.store
	mountResource(r, s, "/companies", resource[core.Company]{
		name:   "Company",
		list:   st.Companies,
		get:    st.Company,
		create: st.CreateCompany,
		update: func(ctx context.Context, id string, c core.Company) (*core.Company, error) {
			c.ID = id
			return st.UpdateCompany(ctx, c)
		},
		remove:   st.DeleteCompany,
		validate: core.Company.Validate,
	})
	mountResource(r, s, "/contacts", resource[core.Contact]{
		name:   "Contact",
		list:   st.Contacts,
		get:    st.Contact,
		create: st.CreateContact,
		update: func(ctx context.Context, id string, c core.Contact) (*core.Contact, error) {
			c.ID = id
			return st.UpdateContact(ctx, c)
		},
		remove:   st.DeleteContact,
		validate: core.Contact.Validate,
	})
	mountResource(r, s, "/leads", resource[core.Lead]{
		name:   "Lead",
		list:   st.Leads,
		get:    st.Lead,
		create: st.CreateLead,
		update: func(ctx context.Context, id string, l core.Lead) (*core.Lead, error) {
			l.ID = id
			return st.UpdateLead(ctx, l)
		},
		remove: st.DeleteLead,
	})
	mountResource(r, s, "/deals", resource[core.Deal]{
		name:   "Deal",
		list:   st.Deals,
		get:    st.Deal,
		create: st.CreateDeal,
		update: func(ctx context.Context, id string, d core.Deal) (*core.Deal, error) {
			d.ID = id
			return st.UpdateDeal(ctx, d)
		},
		remove: st.DeleteDeal,
	})
}
