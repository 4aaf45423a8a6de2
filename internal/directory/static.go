package directory

import (
	"context"

	"github.com/credo-sh/credo/pkg/models"
)

// StaticDirectory resolves credentials from a fixed deployment-time mapping
// of raw key to tenant context. Useful for local development and tests where
// no credential store is provisioned.
type StaticDirectory struct {
	entries map[string]models.TenantContext
}

// NewStaticDirectory creates a Directory over a fixed mapping.
func NewStaticDirectory(entries map[string]models.TenantContext) *StaticDirectory {
	if entries == nil {
		entries = map[string]models.TenantContext{}
	}
	return &StaticDirectory{entries: entries}
}

func (d *StaticDirectory) Resolve(_ context.Context, rawCredential string) (*models.TenantContext, error) {
	tc, ok := d.entries[rawCredential]
	if !ok {
		return nil, ErrNoMatch
	}
	out := tc
	return &out, nil
}
