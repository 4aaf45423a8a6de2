// Package lifecycle implements the credential lifecycle engine: the API key
// state machine and the reach instance register/validate pair.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/credo-sh/credo/internal/secret"
	"github.com/credo-sh/credo/internal/store"
	"github.com/credo-sh/credo/pkg/models"
	"github.com/google/uuid"
)

// Service enforces credential lifecycle rules on top of the store.
// All status transitions go through the store's compare-and-set, never
// through read-then-write here.
type Service struct {
	store store.Store
}

// NewService creates a lifecycle Service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// CreatedKey is the result of minting a key. Plaintext is revealed exactly
// once through this value and is never persisted or retrievable again.
type CreatedKey struct {
	ID        uuid.UUID
	TenantID  string
	Plaintext string
}

// CreateKey validates the request, generates key material, and persists the
// hashed form with status active.
func (s *Service) CreateKey(ctx context.Context, tenantID, label, createdBy string, notes *string) (*CreatedKey, error) {
	if err := requireField("tenantId", tenantID); err != nil {
		return nil, err
	}
	if err := requireField("label", label); err != nil {
		return nil, err
	}
	if err := requireField("createdBy", createdBy); err != nil {
		return nil, err
	}

	gen, err := secret.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	key := &models.APIKey{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Label:     label,
		KeyHash:   gen.Hash,
		KeyPrefix: gen.LookupPrefix,
		Status:    models.KeyStatusActive,
		CreatedBy: createdBy,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("persist key: %w", err)
	}

	return &CreatedKey{ID: key.ID, TenantID: tenantID, Plaintext: gen.Plaintext}, nil
}

// ListKeys returns all keys for a tenant, hashed forms included but never
// serialized to callers (KeyHash is json-omitted on the model).
func (s *Service) ListKeys(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	if err := requireField("tenantId", tenantID); err != nil {
		return nil, err
	}
	return s.store.ListAPIKeys(ctx, tenantID)
}

// Pause suspends an active key. False means the key does not exist or is not
// active; callers cannot tell which.
func (s *Service) Pause(ctx context.Context, id uuid.UUID, pausedBy string) (bool, error) {
	if err := requireField("pausedBy", pausedBy); err != nil {
		return false, err
	}
	return s.store.UpdateAPIKeyStatus(ctx, id,
		[]models.KeyStatus{models.KeyStatusActive},
		models.KeyStatusPaused, pausedBy, time.Now().UTC())
}

// Resume reactivates a paused key.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.store.UpdateAPIKeyStatus(ctx, id,
		[]models.KeyStatus{models.KeyStatusPaused},
		models.KeyStatusActive, "", time.Time{})
}

// Revoke terminally disables a key from either active or paused.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID, revokedBy string) (bool, error) {
	if err := requireField("revokedBy", revokedBy); err != nil {
		return false, err
	}
	return s.store.UpdateAPIKeyStatus(ctx, id,
		[]models.KeyStatus{models.KeyStatusActive, models.KeyStatusPaused},
		models.KeyStatusRevoked, revokedBy, time.Now().UTC())
}

// PauseMany pauses every eligible key in the set. Each id is evaluated
// independently; the operation is not atomic across the set. Returns the
// number of keys actually paused.
func (s *Service) PauseMany(ctx context.Context, ids []uuid.UUID, actor string) (int, error) {
	if err := requireField("actor", actor); err != nil {
		return 0, err
	}
	affected := 0
	for _, id := range ids {
		ok, err := s.Pause(ctx, id, actor)
		if err != nil {
			return affected, err
		}
		if ok {
			affected++
		}
	}
	return affected, nil
}

// ResumeMany resumes every eligible key in the set.
func (s *Service) ResumeMany(ctx context.Context, ids []uuid.UUID) (int, error) {
	affected := 0
	for _, id := range ids {
		ok, err := s.Resume(ctx, id)
		if err != nil {
			return affected, err
		}
		if ok {
			affected++
		}
	}
	return affected, nil
}

// RevokeMany revokes every non-revoked key in the set.
func (s *Service) RevokeMany(ctx context.Context, ids []uuid.UUID, actor string) (int, error) {
	if err := requireField("actor", actor); err != nil {
		return 0, err
	}
	affected := 0
	for _, id := range ids {
		ok, err := s.Revoke(ctx, id, actor)
		if err != nil {
			return affected, err
		}
		if ok {
			affected++
		}
	}
	return affected, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
