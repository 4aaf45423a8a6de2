package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/credo-sh/credo/internal/api/handler"
	"github.com/credo-sh/credo/internal/api/middleware"
	"github.com/credo-sh/credo/internal/gateway"
	"github.com/credo-sh/credo/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	rows []map[string]any
	row  map[string]any
	err  error

	lastTenant models.TenantContext
}

func (g *fakeGateway) GetRows(_ context.Context, tenant models.TenantContext, _, _ string) ([]map[string]any, error) {
	g.lastTenant = tenant
	return g.rows, g.err
}

func (g *fakeGateway) GetRowByID(_ context.Context, tenant models.TenantContext, _, _, _ string) (map[string]any, error) {
	g.lastTenant = tenant
	return g.row, g.err
}

func newDataRouter(g gateway.Client, tenant models.TenantContext) http.Handler {
	d := handler.NewData(g)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.SetTenantContext(req.Context(), tenant)))
		})
	})
	r.Get("/data/{database}/{table}", d.GetRows)
	r.Get("/data/{database}/{table}/{id}", d.GetRowByID)
	return r
}

func TestDataGetRows_AllowedDatabase(t *testing.T) {
	g := &fakeGateway{rows: []map[string]any{{"id": "1", "name": "case one"}}}
	tenant := models.TenantContext{ClientID: "acme", AllowedDatabases: []string{"matters"}}
	r := newDataRouter(g, tenant)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/data/matters/cases", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Len(t, rows, 1)
	assert.Equal(t, "acme", g.lastTenant.ClientID)
}

func TestDataGetRows_DatabaseNotAllowed(t *testing.T) {
	g := &fakeGateway{}
	tenant := models.TenantContext{ClientID: "acme", AllowedDatabases: []string{"matters"}}
	r := newDataRouter(g, tenant)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/data/billing/invoices", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	// The check happens before any gateway call.
	assert.Empty(t, g.lastTenant.ClientID)
}

func TestDataGetRows_NilRowsIsEmptyArray(t *testing.T) {
	g := &fakeGateway{rows: nil}
	tenant := models.TenantContext{ClientID: "acme", AllowedDatabases: []string{"matters"}}
	r := newDataRouter(g, tenant)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/data/matters/cases", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestDataGetRowByID_ErrorMapping(t *testing.T) {
	tenant := models.TenantContext{ClientID: "acme", AllowedDatabases: []string{"matters"}}

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"row not found", gateway.ErrRowNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"access denied", gateway.ErrAccessDenied, http.StatusForbidden, "FORBIDDEN"},
		{"gateway down", gateway.ErrUnreachable, http.StatusBadGateway, "GATEWAY_UNAVAILABLE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newDataRouter(&fakeGateway{err: tc.err}, tenant)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/data/matters/cases/42", nil))

			assert.Equal(t, tc.status, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body["error"].(map[string]any)["code"])
		})
	}
}

func TestDataGetRowByID_Found(t *testing.T) {
	g := &fakeGateway{row: map[string]any{"id": "42", "name": "case"}}
	tenant := models.TenantContext{ClientID: "acme", AllowedDatabases: []string{"matters"}}
	r := newDataRouter(g, tenant)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/data/matters/cases/42", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var row map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &row))
	assert.Equal(t, "42", row["id"])
}
