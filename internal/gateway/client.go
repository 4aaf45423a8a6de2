// Package gateway is the client boundary to the downstream row-level data
// service. Credo resolves the tenant; the gateway produces rows.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/credo-sh/credo/pkg/models"
)

// Sentinel errors for gateway failures.
var (
	ErrUnreachable  = errors.New("gateway unreachable")
	ErrRowNotFound  = errors.New("gateway row not found")
	ErrAccessDenied = errors.New("gateway access denied")
)

// Client is the interface for fetching rows from the downstream service.
type Client interface {
	GetRows(ctx context.Context, tenant models.TenantContext, database, table string) ([]map[string]any, error)
	GetRowByID(ctx context.Context, tenant models.TenantContext, database, table, id string) (map[string]any, error)
}

// HTTPClient implements Client over the gateway's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a gateway HTTP client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetRows(ctx context.Context, tenant models.TenantContext, database, table string) ([]map[string]any, error) {
	var rows []map[string]any
	path := fmt.Sprintf("/rows/%s/%s", url.PathEscape(database), url.PathEscape(table))
	if err := c.get(ctx, tenant, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) GetRowByID(ctx context.Context, tenant models.TenantContext, database, table, id string) (map[string]any, error) {
	var row map[string]any
	path := fmt.Sprintf("/rows/%s/%s/%s", url.PathEscape(database), url.PathEscape(table), url.PathEscape(id))
	if err := c.get(ctx, tenant, path, &row); err != nil {
		return nil, err
	}
	return row, nil
}

func (c *HTTPClient) get(ctx context.Context, tenant models.TenantContext, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("X-Client-Id", tenant.ClientID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrRowNotFound
	case http.StatusForbidden:
		return ErrAccessDenied
	default:
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
