package models

import "time"

// Tenant represents an isolated customer boundary. Every credential and
// resource belongs to exactly one tenant.
type Tenant struct {
	ClientID         string    `db:"client_id"         json:"clientId"`
	Name             string    `db:"name"              json:"name"`
	AllowedDatabases []string  `db:"allowed_databases" json:"allowedDatabases"`
	CreatedAt        time.Time `db:"created_at"        json:"createdAt"`
}

// TenantContext is the request-scoped identity a credential resolves to.
// It is rebuilt on every request and never persisted or cached, so a paused
// or revoked key takes effect on the very next request.
type TenantContext struct {
	ClientID         string
	AllowedDatabases []string
}

// CanAccess reports whether the tenant may read the given database.
func (t TenantContext) CanAccess(database string) bool {
	for _, db := range t.AllowedDatabases {
		if db == database {
			return true
		}
	}
	return false
}
