package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/credo-sh/credo/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Tenants ---

func (s *PostgresStore) GetTenant(ctx context.Context, clientID string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT client_id, name, allowed_databases, created_at FROM tenants WHERE client_id = $1`,
		clientID,
	).Scan(&t.ClientID, &t.Name, &t.AllowedDatabases, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) UpsertTenant(ctx context.Context, tenant *models.Tenant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (client_id, name, allowed_databases)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (client_id) DO UPDATE SET
		   name = EXCLUDED.name,
		   allowed_databases = EXCLUDED.allowed_databases`,
		tenant.ClientID, tenant.Name, tenant.AllowedDatabases)
	if err != nil {
		return fmt.Errorf("upsert tenant: %w", err)
	}
	return nil
}

// --- API Keys ---

const apiKeyColumns = `id, tenant_id, label, key_hash, key_prefix, status, created_by,
	 paused_by, paused_at, revoked_by, revoked_at, last_used_at, notes, created_at`

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var k models.APIKey
	err := row.Scan(&k.ID, &k.TenantID, &k.Label, &k.KeyHash, &k.KeyPrefix, &k.Status,
		&k.CreatedBy, &k.PausedBy, &k.PausedAt, &k.RevokedBy, &k.RevokedAt,
		&k.LastUsedAt, &k.Notes, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, tenant_id, label, key_hash, key_prefix, status, created_by, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		key.ID, key.TenantID, key.Label, key.KeyHash, key.KeyPrefix, key.Status,
		key.CreatedBy, key.Notes, key.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAPIKey(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	k, err := scanAPIKey(s.pool.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api keys by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// UpdateAPIKeyStatus performs an atomic compare-and-set: the row is updated
// only if its current status is in the expected set. Returns false when the
// key does not exist or is not in a state accepting the transition; the two
// cases are indistinguishable to callers on purpose.
func (s *PostgresStore) UpdateAPIKeyStatus(ctx context.Context, id uuid.UUID, from []models.KeyStatus, to models.KeyStatus, actor string, at time.Time) (bool, error) {
	fromStrs := make([]string, len(from))
	for i, st := range from {
		fromStrs[i] = string(st)
	}

	var query string
	switch to {
	case models.KeyStatusPaused:
		query = `UPDATE api_keys SET status = 'paused', paused_by = $3, paused_at = $4
		         WHERE id = $1 AND status = ANY($2)`
	case models.KeyStatusActive:
		query = `UPDATE api_keys SET status = 'active', paused_by = $3, paused_at = $4
		         WHERE id = $1 AND status = ANY($2)`
	case models.KeyStatusRevoked:
		query = `UPDATE api_keys SET status = 'revoked', revoked_by = $3, revoked_at = $4
		         WHERE id = $1 AND status = ANY($2)`
	default:
		return false, fmt.Errorf("unknown target status %q", to)
	}

	var actorArg any
	var atArg any
	if to == models.KeyStatusActive {
		// Resume clears the pause attribution rather than recording one.
		actorArg, atArg = nil, nil
	} else {
		actorArg, atArg = actor, at
	}

	tag, err := s.pool.Exec(ctx, query, id, fromStrs, actorArg, atArg)
	if err != nil {
		return false, fmt.Errorf("update api key status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) TouchAPIKey(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

// --- Reach Instances ---

func (s *PostgresStore) CreateReachInstance(ctx context.Context, inst *models.ReachInstance) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reach_instances (id, tenant_id, secret_hash, registered_by, machine_name, notes, is_active, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inst.ID, inst.TenantID, inst.SecretHash, inst.RegisteredBy,
		inst.MachineName, inst.Notes, inst.IsActive, inst.RegisteredAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create reach instance: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReachInstances(ctx context.Context, tenantID string) ([]*models.ReachInstance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, secret_hash, registered_by, machine_name, notes, is_active, registered_at
		 FROM reach_instances WHERE tenant_id = $1 ORDER BY registered_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list reach instances: %w", err)
	}
	defer rows.Close()

	var insts []*models.ReachInstance
	for rows.Next() {
		var i models.ReachInstance
		if err := rows.Scan(&i.ID, &i.TenantID, &i.SecretHash, &i.RegisteredBy,
			&i.MachineName, &i.Notes, &i.IsActive, &i.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan reach instance: %w", err)
		}
		insts = append(insts, &i)
	}
	return insts, rows.Err()
}

func (s *PostgresStore) SetReachInstanceActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reach_instances SET is_active = $2 WHERE id = $1 AND is_active <> $2`, id, active)
	if err != nil {
		return false, fmt.Errorf("set reach instance active: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
