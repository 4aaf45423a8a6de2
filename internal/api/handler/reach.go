package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/credo-sh/credo/internal/api/response"
	"github.com/credo-sh/credo/internal/lifecycle"
	"github.com/credo-sh/credo/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Reach handles reach instance registration and validation.
type Reach struct {
	svc *lifecycle.Service
}

// NewReach creates the reach instance handler.
func NewReach(svc *lifecycle.Service) *Reach {
	return &Reach{svc: svc}
}

// Register handles POST /reach/register (installer-gated).
func (h *Reach) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID     string  `json:"tenantId"`
		Secret       string  `json:"secret"`
		RegisteredBy string  `json:"registeredBy"`
		MachineName  *string `json:"machineName"`
		Notes        *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	inst, err := h.svc.RegisterInstance(r.Context(), lifecycle.RegisterParams{
		TenantID:     req.TenantID,
		Secret:       req.Secret,
		RegisteredBy: req.RegisteredBy,
		MachineName:  req.MachineName,
		Notes:        req.Notes,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	response.Created(w, map[string]any{
		"instanceId":   inst.ID,
		"tenantId":     inst.TenantID,
		"registeredAt": inst.RegisteredAt,
	})
}

// Validate handles POST /reach/validate. No installer credential is
// required; this is the self-service check an instance performs repeatedly.
// A wrong secret and an unknown tenant produce the same failure.
func (h *Reach) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID string `json:"tenantId"`
		Secret   string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	inst, err := h.svc.ValidateInstance(r.Context(), req.TenantID, req.Secret)
	if errors.Is(err, lifecycle.ErrNoMatch) {
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}

	response.JSON(w, map[string]any{
		"instanceId": inst.ID,
		"tenantId":   inst.TenantID,
		"isActive":   inst.IsActive,
	})
}

// List handles GET /reach?tenantId= (installer-gated).
func (h *Reach) List(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenantId")
	if tenantID == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"tenantId query parameter is required", nil)
		return
	}

	insts, err := h.svc.ListInstances(r.Context(), tenantID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if insts == nil {
		insts = []*models.ReachInstance{}
	}
	response.JSON(w, insts)
}

// Deactivate handles PUT /reach/{id}/deactivate (installer-gated).
func (h *Reach) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "NOT_FOUND",
			"Instance not found or already inactive", nil)
		return
	}

	deactivated, err := h.svc.DeactivateInstance(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !deactivated {
		response.Error(w, http.StatusNotFound, "NOT_FOUND",
			"Instance not found or already inactive", nil)
		return
	}

	response.JSON(w, map[string]any{"deactivated": true, "instanceId": id})
}

func (h *Reach) fail(w http.ResponseWriter, err error) {
	var ve *lifecycle.ValidationError
	if errors.As(err, &ve) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", ve.Error(), nil)
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"An internal error occurred", nil)
}
