package models

import (
	"time"

	"github.com/google/uuid"
)

// ReachInstance is a registered service identity that authenticates itself
// repeatedly with a pre-shared secret. The secret is caller-chosen and only
// its hash is stored; (tenant_id, secret) is the authentication pair.
type ReachInstance struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	TenantID     string    `db:"tenant_id"     json:"tenantId"`
	SecretHash   string    `db:"secret_hash"   json:"-"`
	RegisteredBy string    `db:"registered_by" json:"registeredBy"`
	MachineName  *string   `db:"machine_name"  json:"machineName,omitempty"`
	Notes        *string   `db:"notes"         json:"notes,omitempty"`
	IsActive     bool      `db:"is_active"     json:"isActive"`
	RegisteredAt time.Time `db:"registered_at" json:"registeredAt"`
}
