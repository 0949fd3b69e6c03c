package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/leapstack-labs/leapcrm/internal/api"
	"github.com/leapstack-labs/leapcrm/internal/entitylist"
	"github.com/leapstack-labs/leapcrm/internal/picklist"
	"github.com/leapstack-labs/leapcrm/internal/session"
	"github.com/leapstack-labs/leapcrm/internal/testutil"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	demoEmail    = "demo@leapcrm.dev"
	demoPassword = "demo1234"
)

func newTestServer(t *testing.T, companies int) *httptest.Server {
	t.Helper()
	srv, err := New(context.Background(), Config{
		JWTSecret:     "test-secret",
		SeedCompanies: companies,
		Logger:        testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})
	return ts
}

// signedIn returns a session-backed client logged in as the demo user.
func signedIn(t *testing.T, ts *httptest.Server) (*api.Client, *session.Manager) {
	t.Helper()
	m := session.NewManager(session.NewMemoryStore(), testutil.NewTestLogger(t))
	client := m.Client(ts.URL + "/api")
	_, err := m.Login(context.Background(), demoEmail, demoPassword)
	require.NoError(t, err)
	return client, m
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se *api.StatusError
	require.True(t, errors.As(err, &se), "expected a status error, got %v", err)
	return se.StatusCode
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestServer_QueryCompanies(t *testing.T) {
	ts := newTestServer(t, 45)
	client, _ := signedIn(t, ts)

	resp, err := client.QueryEntities(context.Background(), core.EntityQueryRequest{
		EntityType: "companies",
		Page:       1,
		PageSize:   20,
		SortBy:     "name",
		SortOrder:  core.SortAsc,
		View:       "default",
	})
	require.NoError(t, err)

	require.Len(t, resp.Entities, 20)
	names := make([]string, len(resp.Entities))
	for i, e := range resp.Entities {
		names[i], _ = e["name"].(string)
	}
	assert.True(t, slices.IsSorted(names), "names not sorted: %v", names)
	assert.Equal(t, 45, resp.TotalCount)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasMore)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PageSize)
}

func TestServer_AuthFlow(t *testing.T) {
	ts := newTestServer(t, 0)
	ctx := context.Background()

	t.Run("anonymous requests are rejected", func(t *testing.T) {
		client := api.New(ts.URL + "/api")
		_, err := client.Me(ctx)
		assert.ErrorIs(t, err, api.ErrUnauthorized)
	})

	t.Run("wrong password", func(t *testing.T) {
		client := api.New(ts.URL + "/api")
		_, err := client.Login(ctx, demoEmail, "wrong")
		assert.ErrorIs(t, err, api.ErrUnauthorized)
	})

	t.Run("register then me", func(t *testing.T) {
		m := session.NewManager(session.NewMemoryStore(), nil)
		client := m.Client(ts.URL + "/api")
		user, err := m.Register(ctx, core.RegisterRequest{
			Email: "Ada@Example.com", Password: "secret1", FirstName: "Ada", LastName: "Lovelace",
		})
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", user.Email)

		me, err := client.Me(ctx)
		require.NoError(t, err)
		assert.Equal(t, user.ID, me.ID)

		_, err = m.Register(ctx, core.RegisterRequest{
			Email: "ada@example.com", Password: "secret1", FirstName: "Ada", LastName: "Lovelace",
		})
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})

	t.Run("register validation", func(t *testing.T) {
		client := api.New(ts.URL + "/api")
		_, err := client.Register(ctx, core.RegisterRequest{Email: "x@example.com", Password: "123", FirstName: "X", LastName: "Y"})
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})

	t.Run("forged token clears the session", func(t *testing.T) {
		store := session.NewMemoryStore()
		require.NoError(t, store.Set(ctx, session.TokenKey, "forged"))
		require.NoError(t, store.Set(ctx, session.UserKey, `{"id":"u1","email":"x@example.com"}`))
		m := session.NewManager(store, nil)
		m.Client(ts.URL + "/api")

		hint, err := m.Restore(ctx)
		require.NoError(t, err)
		assert.Equal(t, "u1", hint.ID)

		_, err = m.Reconciled(ctx)
		assert.ErrorIs(t, err, api.ErrUnauthorized)
		_, ok, _ := store.Get(ctx, session.TokenKey)
		assert.False(t, ok)
		_, ok, _ = store.Get(ctx, session.UserKey)
		assert.False(t, ok)
	})
}

func TestServer_Views(t *testing.T) {
	ts := newTestServer(t, 0)
	client, _ := signedIn(t, ts)
	ctx := context.Background()

	views, err := client.EntityViews(ctx, "companies")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "overview", views[0].Name)
	assert.Equal(t, "name", views[0].DefaultSort)
	col, ok := views[0].Column("industryId")
	require.True(t, ok)
	assert.Equal(t, core.ColumnSelect, col.Type)

	views, err = client.EntityViews(ctx, "widgets")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestServer_ViewColumnsAreQueryable(t *testing.T) {
	views, err := loadViews()
	require.NoError(t, err)

	for entityType, list := range views {
		def, err := lookupEntity(entityType)
		require.NoError(t, err)
		for _, v := range list {
			for _, col := range v.Columns {
				f, ok := def.fields[col.Key]
				require.True(t, ok, "%s/%s: unknown column %s", entityType, v.Name, col.Key)
				if col.Sortable {
					assert.True(t, f.sortable, "%s/%s: %s should be sortable", entityType, v.Name, col.Key)
				}
			}
			_, ok := def.fields[v.DefaultSort]
			assert.True(t, ok, "%s/%s: unknown default sort", entityType, v.Name)
		}
	}
}

func TestServer_QueryErrors(t *testing.T) {
	ts := newTestServer(t, 3)
	client, _ := signedIn(t, ts)
	ctx := context.Background()

	_, err := client.QueryEntities(ctx, core.EntityQueryRequest{EntityType: "widgets"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = client.QueryEntities(ctx, core.EntityQueryRequest{EntityType: "companies", SortBy: "website"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Contains(t, err.Error(), "cannot sort by website")
}

func TestServer_Picklists(t *testing.T) {
	ts := newTestServer(t, 0)
	client, _ := signedIn(t, ts)
	ctx := context.Background()

	page, err := client.Picklist(ctx, picklist.LeadStatuses)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 5, page.TotalCount)
	assert.False(t, page.HasMore)

	_, err = client.Picklist(ctx, "widgets")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	page, err = client.SearchPicklist(ctx, core.PicklistSearchRequest{Query: "ca", Limit: 2, EntityType: "industry"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.TotalCount)
	assert.True(t, page.HasMore)

	_, err = client.SearchPicklist(ctx, core.PicklistSearchRequest{Query: "ca", Limit: 50, EntityType: "industries"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = client.SearchPicklist(ctx, core.PicklistSearchRequest{Query: "ca", Limit: 0, EntityType: "industry"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestServer_CompanyResource(t *testing.T) {
	ts := newTestServer(t, 0)
	client, _ := signedIn(t, ts)
	ctx := context.Background()

	_, err := client.CreateCompany(ctx, core.Company{})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	created, err := client.CreateCompany(ctx, core.Company{Name: "Zeta Corp"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	created.Domain = "zeta.example"
	updated, err := client.UpdateCompany(ctx, *created)
	require.NoError(t, err)
	assert.Equal(t, "zeta.example", updated.Domain)

	got, err := client.Company(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Zeta Corp", got.Name)

	require.NoError(t, client.DeleteCompany(ctx, created.ID))
	_, err = client.Company(ctx, created.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestServer_Dashboard(t *testing.T) {
	ts := newTestServer(t, 10)
	client, _ := signedIn(t, ts)

	stats, err := client.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalCompanies)
	assert.Equal(t, 20, stats.TotalContacts)
	assert.Equal(t, 5, stats.TotalLeads)
	assert.Equal(t, 10, stats.TotalDeals)
	require.Len(t, stats.PipelineStages, len(core.PipelineStages))
	for _, st := range stats.PipelineStages {
		assert.Equal(t, 2, st.Count, st.Name)
	}
}

func TestServer_ControllerPagesThroughCompanies(t *testing.T) {
	ts := newTestServer(t, 45)
	client, _ := signedIn(t, ts)
	ctx := context.Background()

	c := entitylist.New(client, entitylist.Options{
		EntityType: "companies",
		PageSize:   20,
		Logger:     testutil.NewTestLogger(t),
	})
	defer c.Close()
	c.Initialize(ctx)

	st := c.Snapshot()
	require.Empty(t, st.Error)
	assert.Equal(t, "overview", st.CurrentView)
	assert.Equal(t, "name", st.SortBy)
	assert.Equal(t, 45, st.TotalCount)
	assert.Equal(t, 3, st.TotalPages)
	assert.Len(t, st.Entities, 20)

	require.True(t, c.GoToPage(ctx, 3))
	st = c.Snapshot()
	assert.Len(t, st.Entities, 5)
	assert.Equal(t, 41, st.StartIndex())
	assert.Equal(t, 45, st.EndIndex())
	assert.False(t, st.HasMore)

	c.ChangeSorting(ctx, "revenue")
	st = c.Snapshot()
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, "revenue", st.SortBy)

	require.True(t, c.ChangeView(ctx, "detailed"))
	st = c.Snapshot()
	assert.Equal(t, "created_at", st.SortBy)
	assert.Equal(t, core.SortDesc, st.SortOrder)
	require.NotEmpty(t, st.Entities)
	assert.Equal(t, "Northwind Systems", st.Entities[0]["name"], "newest company first")
}

func TestServer_PicklistLoaderResolvesFilterValues(t *testing.T) {
	ts := newTestServer(t, 45)
	client, _ := signedIn(t, ts)
	ctx := context.Background()

	loader := picklist.NewLoader(client, picklist.NewCache(), picklist.Industries,
		picklist.WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, loader.Load(ctx))
	assert.Len(t, loader.Snapshot().Items, 13)

	agriculture, ok := loader.Match("agr")
	require.True(t, ok)
	assert.Equal(t, "Agriculture", agriculture.Name)

	require.NoError(t, loader.Search(ctx, "ca"))
	st := loader.Snapshot()
	assert.Len(t, st.Items, 3)
	assert.False(t, st.HasMore)

	c := entitylist.New(client, entitylist.Options{
		EntityType: "companies",
		Filters: core.Filters{Columns: map[string]core.FilterSpec{
			"industryId": core.RefFilter(core.OpEq, agriculture.ID),
		}},
	})
	defer c.Close()
	c.Initialize(ctx)

	list := c.Snapshot()
	require.Empty(t, list.Error)
	assert.Equal(t, 4, list.TotalCount)
	for _, e := range list.Entities {
		assert.Equal(t, agriculture.ID, e["industryId"])
	}
}
