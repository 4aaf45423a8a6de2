package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/credo-sh/credo/internal/secret"
	"github.com/credo-sh/credo/internal/store"
	"github.com/credo-sh/credo/pkg/models"
)

// StoreDirectory resolves credentials against the credential store:
// prefix-indexed lookup, then bcrypt comparison over every candidate.
type StoreDirectory struct {
	store store.Store
}

// NewStoreDirectory creates a store-backed Directory.
func NewStoreDirectory(s store.Store) *StoreDirectory {
	return &StoreDirectory{store: s}
}

// Resolve matches the raw key against active keys sharing its prefix.
// All candidates are compared before answering so timing does not correlate
// with which record matched. Only active keys authenticate; paused and
// revoked keys stay in the candidate set as non-matching rows.
func (d *StoreDirectory) Resolve(ctx context.Context, rawCredential string) (*models.TenantContext, error) {
	if len(rawCredential) < secret.LookupPrefixLen {
		return nil, ErrNoMatch
	}

	keys, err := d.store.GetAPIKeysByPrefix(ctx, rawCredential[:secret.LookupPrefixLen])
	if err != nil {
		return nil, fmt.Errorf("lookup keys by prefix: %w", err)
	}

	var matched *models.APIKey
	for _, key := range keys {
		ok := secret.Verify(rawCredential, key.KeyHash)
		if ok && key.Status == models.KeyStatusActive && matched == nil {
			matched = key
		}
	}
	if matched == nil {
		return nil, ErrNoMatch
	}

	// Best-effort usage stamp; failures never block authentication.
	go d.store.TouchAPIKey(context.WithoutCancel(ctx), matched.ID)

	tenant, err := d.store.GetTenant(ctx, matched.TenantID)
	if errors.Is(err, store.ErrNotFound) {
		// A key can exist for a tenant with no provisioned resources yet.
		return &models.TenantContext{ClientID: matched.TenantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant %q: %w", matched.TenantID, err)
	}

	return &models.TenantContext{
		ClientID:         tenant.ClientID,
		AllowedDatabases: tenant.AllowedDatabases,
	}, nil
}
