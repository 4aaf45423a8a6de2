package store

import (
	"context"
	"errors"
	"time"

	"github.com/credo-sh/credo/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
//
// Status transitions are compare-and-set: UpdateAPIKeyStatus succeeds only if
// the record currently holds one of the expected statuses, so concurrent
// transitions on the same key linearize in the database rather than through
// read-then-write in the caller.
type Store interface {
	Ping(ctx context.Context) error

	GetTenant(ctx context.Context, clientID string) (*models.Tenant, error)
	UpsertTenant(ctx context.Context, tenant *models.Tenant) error

	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKey(ctx context.Context, id uuid.UUID) (*models.APIKey, error)
	ListAPIKeys(ctx context.Context, tenantID string) ([]*models.APIKey, error)
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyStatus(ctx context.Context, id uuid.UUID, from []models.KeyStatus, to models.KeyStatus, actor string, at time.Time) (bool, error)
	TouchAPIKey(ctx context.Context, id uuid.UUID) error

	CreateReachInstance(ctx context.Context, inst *models.ReachInstance) error
	ListReachInstances(ctx context.Context, tenantID string) ([]*models.ReachInstance, error)
	SetReachInstanceActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
}
