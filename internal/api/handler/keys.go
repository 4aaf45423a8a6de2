package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/credo-sh/credo/internal/api/response"
	"github.com/credo-sh/credo/internal/lifecycle"
	"github.com/credo-sh/credo/internal/metrics"
	"github.com/credo-sh/credo/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// oneTimeWarning accompanies every created key; the plaintext is not
// retrievable after this response.
const oneTimeWarning = "This is the only time you will see this key. Store it securely."

// Keys handles API key lifecycle endpoints.
type Keys struct {
	svc     *lifecycle.Service
	metrics *metrics.Metrics
}

// NewKeys creates the key lifecycle handler.
func NewKeys(svc *lifecycle.Service, m *metrics.Metrics) *Keys {
	return &Keys{svc: svc, metrics: m}
}

// List handles GET /keys?tenantId=.
func (h *Keys) List(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenantId")
	if tenantID == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"tenantId query parameter is required", nil)
		return
	}

	keys, err := h.svc.ListKeys(r.Context(), tenantID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if keys == nil {
		keys = []*models.APIKey{}
	}
	response.JSON(w, keys)
}

// Create handles POST /keys. The plaintext key appears in this response and
// nowhere else.
func (h *Keys) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID  string  `json:"tenantId"`
		Label     string  `json:"label"`
		CreatedBy string  `json:"createdBy"`
		Notes     *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	created, err := h.svc.CreateKey(r.Context(), req.TenantID, req.Label, req.CreatedBy, req.Notes)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.metrics.KeysIssuedTotal.Inc()
	response.Created(w, map[string]any{
		"keyId":    created.ID,
		"apiKey":   created.Plaintext,
		"tenantId": created.TenantID,
		"warning":  oneTimeWarning,
	})
}

// Pause handles PUT /keys/{id}/pause?pausedBy=.
func (h *Keys) Pause(w http.ResponseWriter, r *http.Request) {
	id, ok := keyID(w, r)
	if !ok {
		return
	}
	pausedBy := r.URL.Query().Get("pausedBy")
	if pausedBy == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"pausedBy query parameter is required", nil)
		return
	}

	paused, err := h.svc.Pause(r.Context(), id, pausedBy)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !paused {
		response.Error(w, http.StatusNotFound, "NOT_FOUND",
			"Key not found or not in active state", nil)
		return
	}

	h.metrics.TransitionsTotal.WithLabelValues("paused").Inc()
	response.JSON(w, map[string]any{"paused": true, "keyId": id})
}

// Resume handles PUT /keys/{id}/resume.
func (h *Keys) Resume(w http.ResponseWriter, r *http.Request) {
	id, ok := keyID(w, r)
	if !ok {
		return
	}

	resumed, err := h.svc.Resume(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !resumed {
		response.Error(w, http.StatusNotFound, "NOT_FOUND",
			"Key not found or not in paused state", nil)
		return
	}

	h.metrics.TransitionsTotal.WithLabelValues("active").Inc()
	response.JSON(w, map[string]any{"resumed": true, "keyId": id})
}

// Revoke handles DELETE /keys/{id}?revokedBy=.
func (h *Keys) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := keyID(w, r)
	if !ok {
		return
	}
	revokedBy := r.URL.Query().Get("revokedBy")
	if revokedBy == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"revokedBy query parameter is required", nil)
		return
	}

	revoked, err := h.svc.Revoke(r.Context(), id, revokedBy)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !revoked {
		response.Error(w, http.StatusNotFound, "NOT_FOUND",
			"Key not found or already revoked", nil)
		return
	}

	h.metrics.TransitionsTotal.WithLabelValues("revoked").Inc()
	response.JSON(w, map[string]any{"revoked": true, "keyId": id})
}

type bulkRequest struct {
	KeyIDs []uuid.UUID `json:"keyIds"`
	Actor  string      `json:"actor"`
}

// BulkPause handles PUT /keys/pause. Partial success is expected: the
// response reports affected versus total, never a pass/fail for the set.
func (h *Keys) BulkPause(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBulk(w, r, true)
	if !ok {
		return
	}

	affected, err := h.svc.PauseMany(r.Context(), req.KeyIDs, req.Actor)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, map[string]any{"paused": affected, "total": len(req.KeyIDs)})
}

// BulkResume handles PUT /keys/resume.
func (h *Keys) BulkResume(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBulk(w, r, false)
	if !ok {
		return
	}

	affected, err := h.svc.ResumeMany(r.Context(), req.KeyIDs)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, map[string]any{"resumed": affected, "total": len(req.KeyIDs)})
}

// BulkRevoke handles DELETE /keys/revoke.
func (h *Keys) BulkRevoke(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBulk(w, r, true)
	if !ok {
		return
	}

	affected, err := h.svc.RevokeMany(r.Context(), req.KeyIDs, req.Actor)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, map[string]any{"revoked": affected, "total": len(req.KeyIDs)})
}

// decodeBulk rejects structurally invalid bulk requests before any mutation
// is attempted.
func decodeBulk(w http.ResponseWriter, r *http.Request, needActor bool) (*bulkRequest, bool) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return nil, false
	}
	if len(req.KeyIDs) == 0 {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"keyIds array is required and cannot be empty", nil)
		return nil, false
	}
	if needActor && req.Actor == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "actor is required", nil)
		return nil, false
	}
	return &req, true
}

// keyID parses the {id} route parameter. An unparseable id is reported the
// same way as a missing key.
func keyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "NOT_FOUND",
			"Key not found or not in a valid state", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Keys) fail(w http.ResponseWriter, err error) {
	var ve *lifecycle.ValidationError
	if errors.As(err, &ve) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", ve.Error(), nil)
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"An internal error occurred", nil)
}
