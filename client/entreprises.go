package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/goliatone/go-jobboard"
)

type pendingTenants struct {
	Tenants []jobboard.Tenant `json:"entreprises"`
	Total   int               `json:"total"`
}

// PendingTenants lists the organizations waiting for review. The backend
// answers {"entreprises": [...], "total": n}; a bare list is accepted too.
func (c *Client) PendingTenants(ctx context.Context) ([]jobboard.Tenant, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "entreprises/pending", nil, &raw); err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}
	if raw[0] == '[' {
		var out []jobboard.Tenant
		if err := decodeData(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var page pendingTenants
	if err := decodeData(raw, &page); err != nil {
		return nil, err
	}
	return page.Tenants, nil
}

// GetTenant reads one organization.
func (c *Client) GetTenant(ctx context.Context, id int64) (*jobboard.Tenant, error) {
	var out jobboard.Tenant
	if err := c.get(ctx, "entreprises/"+formatID(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ValidateTenant(ctx context.Context, id int64) (*jobboard.Tenant, error) {
	return c.tenantAction(ctx, "entreprises/{id}/validate", id, nil)
}

func (c *Client) RejectTenant(ctx context.Context, id int64, reason string) (*jobboard.Tenant, error) {
	return c.tenantAction(ctx, "entreprises/{id}/reject", id, map[string]string{
		"motif": reason,
	})
}

func (c *Client) RevalidateTenant(ctx context.Context, id int64) (*jobboard.Tenant, error) {
	return c.tenantAction(ctx, "entreprises/{id}/revalidate", id, nil)
}

func (c *Client) tenantAction(ctx context.Context, path string, id int64, payload any) (*jobboard.Tenant, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := c.Do(ctx, http.MethodPut, path, func(r *resty.Request) {
		jsonBody(payload)(r)
		r.SetPathParam("id", formatID(id))
	})
	if err != nil {
		return nil, err
	}
	return decodeOptional[jobboard.Tenant](body)
}
