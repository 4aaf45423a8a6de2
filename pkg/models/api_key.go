package models

import (
	"time"

	"github.com/google/uuid"
)

// KeyStatus is the lifecycle state of an API key.
type KeyStatus string

const (
	KeyStatusActive  KeyStatus = "active"
	KeyStatusPaused  KeyStatus = "paused"
	KeyStatusRevoked KeyStatus = "revoked"
)

// APIKey represents a per-tenant authentication key.
// Raw keys are shown once at creation; only the bcrypt hash is stored.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	TenantID   string     `db:"tenant_id"    json:"tenantId"`
	Label      string     `db:"label"        json:"label"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"keyPrefix"`
	Status     KeyStatus  `db:"status"       json:"status"`
	CreatedBy  string     `db:"created_by"   json:"createdBy"`
	PausedBy   *string    `db:"paused_by"    json:"pausedBy,omitempty"`
	PausedAt   *time.Time `db:"paused_at"    json:"pausedAt,omitempty"`
	RevokedBy  *string    `db:"revoked_by"   json:"revokedBy,omitempty"`
	RevokedAt  *time.Time `db:"revoked_at"   json:"revokedAt,omitempty"`
	LastUsedAt *time.Time `db:"last_used_at" json:"lastUsedAt,omitempty"`
	Notes      *string    `db:"notes"        json:"notes,omitempty"`
	CreatedAt  time.Time  `db:"created_at"   json:"createdAt"`
}
