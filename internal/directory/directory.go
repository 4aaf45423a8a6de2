// Package directory resolves presented credentials to tenant identities.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/credo-sh/credo/internal/config"
	"github.com/credo-sh/credo/internal/secret"
	"github.com/credo-sh/credo/internal/store"
	"github.com/credo-sh/credo/pkg/models"
)

// ErrNoMatch is returned when a credential resolves to no tenant.
var ErrNoMatch = errors.New("credential matches no tenant")

// Directory resolves a raw credential to a request-scoped tenant context.
// Implementations must not cache resolutions across requests: a paused or
// revoked key has to take effect on the very next request.
type Directory interface {
	Resolve(ctx context.Context, rawCredential string) (*models.TenantContext, error)
}

// New builds the configured Directory backend. When static is nil the static
// backend's entries come from the configured key mapping.
func New(cfg config.AuthConfig, s store.Store, static map[string]models.TenantContext) (Directory, error) {
	switch cfg.DirectoryBackend {
	case "store":
		return NewStoreDirectory(s), nil
	case "static":
		if static == nil {
			entries, err := staticEntries(cfg.StaticKeys)
			if err != nil {
				return nil, err
			}
			static = entries
		}
		return NewStaticDirectory(static), nil
	default:
		return nil, fmt.Errorf("unknown directory backend %q", cfg.DirectoryBackend)
	}
}

// staticEntries parses configured key mappings. Each value is a client id
// optionally followed by ":" and a ";"-separated database list.
func staticEntries(raw map[string]string) (map[string]models.TenantContext, error) {
	entries := make(map[string]models.TenantContext, len(raw))
	for key, val := range raw {
		clientID, dbPart, _ := strings.Cut(val, ":")
		if clientID == "" {
			// Never echo the full key; it is a credential.
			return nil, fmt.Errorf("static key entry %q...: missing client id", keyPrefix(key))
		}
		var dbs []string
		for _, db := range strings.Split(dbPart, ";") {
			if db != "" {
				dbs = append(dbs, db)
			}
		}
		entries[key] = models.TenantContext{ClientID: clientID, AllowedDatabases: dbs}
	}
	return entries, nil
}

func keyPrefix(key string) string {
	if len(key) > secret.LookupPrefixLen {
		return key[:secret.LookupPrefixLen]
	}
	return key
}
