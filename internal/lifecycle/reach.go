package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/credo-sh/credo/internal/secret"
	"github.com/credo-sh/credo/pkg/models"
	"github.com/google/uuid"
)

// RegisterParams are the inputs for registering a reach instance.
// Secret is caller-chosen; only its hash is stored.
type RegisterParams struct {
	TenantID     string
	Secret       string
	RegisteredBy string
	MachineName  *string
	Notes        *string
}

// RegisterInstance stores a new reach instance with an active flag.
func (s *Service) RegisterInstance(ctx context.Context, p RegisterParams) (*models.ReachInstance, error) {
	if err := requireField("tenantId", p.TenantID); err != nil {
		return nil, err
	}
	if err := requireField("secret", p.Secret); err != nil {
		return nil, err
	}
	if err := requireField("registeredBy", p.RegisteredBy); err != nil {
		return nil, err
	}

	hash, err := secret.Hash(p.Secret)
	if err != nil {
		return nil, fmt.Errorf("hash instance secret: %w", err)
	}

	inst := &models.ReachInstance{
		ID:           uuid.New(),
		TenantID:     p.TenantID,
		SecretHash:   hash,
		RegisteredBy: p.RegisteredBy,
		MachineName:  p.MachineName,
		Notes:        p.Notes,
		IsActive:     true,
		RegisteredAt: time.Now().UTC(),
	}

	if err := s.store.CreateReachInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("persist reach instance: %w", err)
	}
	return inst, nil
}

// ValidateInstance resolves a (tenant, secret) pair to a registered instance.
// Every candidate for the tenant is compared before answering so response
// timing does not reveal which record matched, and an unknown tenant is
// indistinguishable from a wrong secret.
func (s *Service) ValidateInstance(ctx context.Context, tenantID, rawSecret string) (*models.ReachInstance, error) {
	if err := requireField("tenantId", tenantID); err != nil {
		return nil, err
	}
	if err := requireField("secret", rawSecret); err != nil {
		return nil, err
	}

	insts, err := s.store.ListReachInstances(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list reach instances: %w", err)
	}

	var matched *models.ReachInstance
	for _, inst := range insts {
		if secret.Verify(rawSecret, inst.SecretHash) && matched == nil {
			matched = inst
		}
	}
	if matched == nil {
		return nil, ErrNoMatch
	}
	return matched, nil
}

// ListInstances returns all reach instances for a tenant.
func (s *Service) ListInstances(ctx context.Context, tenantID string) ([]*models.ReachInstance, error) {
	if err := requireField("tenantId", tenantID); err != nil {
		return nil, err
	}
	return s.store.ListReachInstances(ctx, tenantID)
}

// DeactivateInstance flips an instance to inactive. False means the instance
// does not exist or is already inactive.
func (s *Service) DeactivateInstance(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.store.SetReachInstanceActive(ctx, id, false)
}
