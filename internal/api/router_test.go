package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/credo-sh/credo/internal/api"
	"github.com/credo-sh/credo/internal/api/handler"
	mw "github.com/credo-sh/credo/internal/api/middleware"
	"github.com/credo-sh/credo/internal/directory"
	"github.com/credo-sh/credo/internal/gateway"
	"github.com/credo-sh/credo/internal/lifecycle"
	"github.com/credo-sh/credo/internal/metrics"
	"github.com/credo-sh/credo/internal/store"
	"github.com/credo-sh/credo/pkg/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const installerKey = "test-installer-key"

// --- minimal fakes ---

type memStore struct {
	mu    sync.Mutex
	keys  map[uuid.UUID]*models.APIKey
	insts map[uuid.UUID]*models.ReachInstance
}

func newMemStore() *memStore {
	return &memStore{
		keys:  make(map[uuid.UUID]*models.APIKey),
		insts: make(map[uuid.UUID]*models.ReachInstance),
	}
}

func (m *memStore) Ping(_ context.Context) error { return nil }

func (m *memStore) GetTenant(_ context.Context, _ string) (*models.Tenant, error) {
	return nil, store.ErrNotFound
}

func (m *memStore) UpsertTenant(_ context.Context, _ *models.Tenant) error { return nil }

func (m *memStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *key
	m.keys[key.ID] = &cp
	return nil
}

func (m *memStore) GetAPIKey(_ context.Context, id uuid.UUID) (*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (m *memStore) ListAPIKeys(_ context.Context, tenantID string) ([]*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.APIKey
	for _, k := range m.keys {
		if k.TenantID == tenantID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) GetAPIKeysByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.APIKey
	for _, k := range m.keys {
		if k.KeyPrefix == prefix {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateAPIKeyStatus(_ context.Context, id uuid.UUID, from []models.KeyStatus, to models.KeyStatus, actor string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if k.Status == f {
			k.Status = to
			switch to {
			case models.KeyStatusPaused:
				k.PausedBy, k.PausedAt = &actor, &at
			case models.KeyStatusActive:
				k.PausedBy, k.PausedAt = nil, nil
			case models.KeyStatusRevoked:
				k.RevokedBy, k.RevokedAt = &actor, &at
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) TouchAPIKey(_ context.Context, _ uuid.UUID) error { return nil }

func (m *memStore) CreateReachInstance(_ context.Context, inst *models.ReachInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inst
	m.insts[inst.ID] = &cp
	return nil
}

func (m *memStore) ListReachInstances(_ context.Context, tenantID string) ([]*models.ReachInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ReachInstance
	for _, i := range m.insts {
		if i.TenantID == tenantID {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) SetReachInstanceActive(_ context.Context, id uuid.UUID, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.insts[id]
	if !ok || i.IsActive == active {
		return false, nil
	}
	i.IsActive = active
	return true, nil
}

type nopCache struct{}

func (nopCache) Ping(_ context.Context) error { return nil }
func (nopCache) Close() error                 { return nil }
func (nopCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

type stubGateway struct{}

func (stubGateway) GetRows(_ context.Context, _ models.TenantContext, _, _ string) ([]map[string]any, error) {
	return []map[string]any{}, nil
}

func (stubGateway) GetRowByID(_ context.Context, _ models.TenantContext, _, _, _ string) (map[string]any, error) {
	return map[string]any{}, nil
}

// newServer wires a full router against the in-memory store. Data-plane auth
// resolves through the store directory, so keys minted via the API
// authenticate real requests.
func newServer(t *testing.T) http.Handler {
	t.Helper()
	ms := newMemStore()
	svc := lifecycle.NewService(ms)
	m := metrics.NewWith(prometheus.NewRegistry())
	dir := directory.NewStoreDirectory(ms)

	var g gateway.Client = stubGateway{}
	return api.NewRouter(api.Dependencies{
		Metrics:    m,
		TenantAuth: mw.NewTenantAuth(dir, false, models.TenantContext{}, m),
		Installer:  mw.NewInstaller(installerKey, false, m),
		RateLimit:  mw.NewRateLimit(nopCache{}, 100),
		Keys:       handler.NewKeys(svc, m),
		Reach:      handler.NewReach(svc),
		Data:       handler.NewData(g),
		StatusHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})
}

func request(t *testing.T, srv http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func asInstaller() map[string]string {
	return map[string]string{mw.InstallerKeyHeader: installerKey}
}

func TestRouter_PublicRoutes(t *testing.T) {
	srv := newServer(t)

	assert.Equal(t, http.StatusOK, request(t, srv, "GET", "/", nil, nil).Code)
	assert.Equal(t, http.StatusOK, request(t, srv, "GET", "/health", nil, nil).Code)

	// Validation is self-authenticating; no installer key needed.
	w := request(t, srv, "POST", "/reach/validate",
		map[string]any{"tenantId": "acme", "secret": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_LifecycleRoutesRequireInstallerKey(t *testing.T) {
	srv := newServer(t)

	paths := []struct{ method, path string }{
		{"GET", "/keys?tenantId=acme"},
		{"POST", "/keys"},
		{"PUT", "/keys/pause"},
		{"PUT", "/keys/" + uuid.NewString() + "/pause"},
		{"DELETE", "/keys/" + uuid.NewString()},
		{"POST", "/reach/register"},
		{"GET", "/reach?tenantId=acme"},
	}

	for _, p := range paths {
		w := request(t, srv, p.method, p.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}
}

func TestRouter_IssuedKeyAuthenticatesDataPlane(t *testing.T) {
	srv := newServer(t)

	w := request(t, srv, "POST", "/keys", map[string]any{
		"tenantId": "acme", "label": "ci", "createdBy": "alice",
	}, asInstaller())
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	apiKey := body["apiKey"].(string)

	// The tenant has no tenants row in this setup, so no database is
	// allowed; the credential still resolves and the request reaches the
	// authorization check rather than failing auth.
	w = request(t, srv, "GET", "/data/matters/cases", nil,
		map[string]string{mw.APIKeyHeader: apiKey})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Pausing the key cuts off data-plane access immediately.
	keyID := body["keyId"].(string)
	w = request(t, srv, "PUT", "/keys/"+keyID+"/pause?pausedBy=bob", nil, asInstaller())
	require.Equal(t, http.StatusOK, w.Code)

	w = request(t, srv, "GET", "/data/matters/cases", nil,
		map[string]string{mw.APIKeyHeader: apiKey})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_DataPlaneWithoutKey(t *testing.T) {
	srv := newServer(t)

	w := request(t, srv, "GET", "/data/matters/cases", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_EntityRoutesNotImplemented(t *testing.T) {
	srv := newServer(t)

	// Issue a key so the request clears tenant resolution first.
	w := request(t, srv, "POST", "/keys", map[string]any{
		"tenantId": "acme", "label": "ci", "createdBy": "alice",
	}, asInstaller())
	require.Equal(t, http.StatusCreated, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	apiKey := body["apiKey"].(string)

	w = request(t, srv, "GET", "/entity/matters/cases", nil,
		map[string]string{mw.APIKeyHeader: apiKey})
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_BulkRouteWinsOverIDRoute(t *testing.T) {
	srv := newServer(t)

	// "pause" in the id position must hit the bulk handler, which rejects
	// the empty body as a bad request rather than a missing key.
	w := request(t, srv, "PUT", "/keys/pause", map[string]any{}, asInstaller())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
