package handler

import (
	"errors"
	"net/http"

	"github.com/credo-sh/credo/internal/api/middleware"
	"github.com/credo-sh/credo/internal/api/response"
	"github.com/credo-sh/credo/internal/gateway"
	"github.com/go-chi/chi/v5"
)

// Data proxies row reads to the downstream gateway for the resolved tenant.
type Data struct {
	client gateway.Client
}

// NewData creates the data-plane handler.
func NewData(client gateway.Client) *Data {
	return &Data{client: client}
}

// GetRows handles GET /data/{database}/{table}.
func (h *Data) GetRows(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.MustTenantContext(r)
	database := chi.URLParam(r, "database")
	table := chi.URLParam(r, "table")

	if !tenant.CanAccess(database) {
		response.Error(w, http.StatusForbidden, "FORBIDDEN",
			"Tenant is not allowed to access this database", nil)
		return
	}

	rows, err := h.client.GetRows(r.Context(), tenant, database, table)
	if err != nil {
		h.fail(w, err)
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	response.JSON(w, rows)
}

// GetRowByID handles GET /data/{database}/{table}/{id}.
func (h *Data) GetRowByID(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.MustTenantContext(r)
	database := chi.URLParam(r, "database")
	table := chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")

	if !tenant.CanAccess(database) {
		response.Error(w, http.StatusForbidden, "FORBIDDEN",
			"Tenant is not allowed to access this database", nil)
		return
	}

	row, err := h.client.GetRowByID(r.Context(), tenant, database, table, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, row)
}

func (h *Data) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrRowNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, gateway.ErrAccessDenied):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Access denied", nil)
	case errors.Is(err, gateway.ErrUnreachable):
		response.Error(w, http.StatusBadGateway, "GATEWAY_UNAVAILABLE",
			"The data gateway is not available", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An internal error occurred", nil)
	}
}
