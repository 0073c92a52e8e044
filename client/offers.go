package client

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/goliatone/go-jobboard"
)

// OfferQuery filters offer listings. Zero fields are not sent.
type OfferQuery struct {
	Page       int
	PerPage    int
	CategoryID int64
	Status     jobboard.OfferStatus
	Search     string
}

func (q OfferQuery) params() map[string]string {
	out := map[string]string{}
	if q.Page > 0 {
		out["page"] = strconv.Itoa(q.Page)
	}
	if q.PerPage > 0 {
		out["per_page"] = strconv.Itoa(q.PerPage)
	}
	if q.CategoryID > 0 {
		out["categorie_id"] = formatID(q.CategoryID)
	}
	if q.Status != "" {
		out["statut"] = string(q.Status)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		out["search"] = s
	}
	return out
}

// ListOffers reads the public offers list.
func (c *Client) ListOffers(ctx context.Context, q OfferQuery) ([]jobboard.Offer, error) {
	var out []jobboard.Offer
	if err := c.get(ctx, "offres", q.params(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOffer reads one offer. Numeric detail reads are public.
func (c *Client) GetOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	var out jobboard.Offer
	if err := c.get(ctx, "offres/"+formatID(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyOffers lists the offers of the signed in recruiter, or of the active
// organization for a community manager.
func (c *Client) MyOffers(ctx context.Context) ([]jobboard.Offer, error) {
	var out []jobboard.Offer
	if err := c.get(ctx, "offres/mes-offres", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CommunityOffers lists the offers of a managed organization. A zero
// tenantID leaves the choice to the tenant scope stage.
func (c *Client) CommunityOffers(ctx context.Context, tenantID int64) ([]jobboard.Offer, error) {
	query := map[string]string{}
	if tenantID != 0 {
		query["entreprise_id"] = formatID(tenantID)
	}
	var out []jobboard.Offer
	if err := c.get(ctx, "community/offres", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FeaturedOffers lists the sponsored offers.
func (c *Client) FeaturedOffers(ctx context.Context) ([]jobboard.Offer, error) {
	var out []jobboard.Offer
	if err := c.get(ctx, "offres/featured", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ManagedTenants implements jobboard.TenantLoader with
// GET community/entreprises.
func (c *Client) ManagedTenants(ctx context.Context) ([]jobboard.Tenant, error) {
	var out []jobboard.Tenant
	if err := c.get(ctx, "community/entreprises", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	return c.offerAction(ctx, http.MethodPatch, "offres/{id}/soumettre-validation", id, nil)
}

func (c *Client) ValidateOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	return c.offerAction(ctx, http.MethodPatch, "offres/{id}/valider", id, nil)
}

func (c *Client) RejectOffer(ctx context.Context, id int64, reason string) (*jobboard.Offer, error) {
	return c.offerAction(ctx, http.MethodPatch, "offres/{id}/rejeter", id, map[string]string{
		"motif_rejet": reason,
	})
}

func (c *Client) PublishOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	return c.offerAction(ctx, http.MethodPost, "offres/{id}/publier", id, nil)
}

func (c *Client) CloseOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	return c.offerAction(ctx, http.MethodPatch, "offres/{id}/fermer", id, nil)
}

func (c *Client) FeatureOffer(ctx context.Context, id int64, req jobboard.FeatureRequest) (*jobboard.Offer, error) {
	return c.offerAction(ctx, http.MethodPost, "offres/{id}/feature", id, req)
}

func (c *Client) UnfeatureOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	return c.offerAction(ctx, http.MethodPost, "offres/{id}/unfeature", id, nil)
}

func (c *Client) offerAction(ctx context.Context, method, path string, id int64, payload any) (*jobboard.Offer, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := c.Do(ctx, method, path, func(r *resty.Request) {
		jsonBody(payload)(r)
		r.SetPathParam("id", formatID(id))
	})
	if err != nil {
		return nil, err
	}
	return decodeOptional[jobboard.Offer](body)
}
