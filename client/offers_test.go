package client_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-jobboard"
	"github.com/goliatone/go-jobboard/client"
)

func TestOfferWorkflowEndpoints(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		call   func(context.Context, *client.Client) (*jobboard.Offer, error)
	}{
		{
			name: "submit", method: http.MethodPatch, path: "/api/offres/5/soumettre-validation", body: `{}`,
			call: func(ctx context.Context, c *client.Client) (*jobboard.Offer, error) { return c.SubmitOffer(ctx, 5) },
		},
		{
			name: "validate", method: http.MethodPatch, path: "/api/offres/5/valider", body: `{}`,
			call: func(ctx context.Context, c *client.Client) (*jobboard.Offer, error) { return c.ValidateOffer(ctx, 5) },
		},
		{
			name: "reject", method: http.MethodPatch, path: "/api/offres/5/rejeter", body: `{"motif_rejet":"Salaire manquant"}`,
			call: func(ctx context.Context, c *client.Client) (*jobboard.Offer, error) {
				return c.RejectOffer(ctx, 5, "Salaire manquant")
			},
		},
		{
			name: "publish", method: http.MethodPost, path: "/api/offres/5/publier", body: `{}`,
			call: func(ctx context.Context, c *client.Client) (*jobboard.Offer, error) { return c.PublishOffer(ctx, 5) },
		},
		{
			name: "close", method: http.MethodPatch, path: "/api/offres/5/fermer", body: `{}`,
			call: func(ctx context.Context, c *client.Client) (*jobboard.Offer, error) { return c.CloseOffer(ctx, 5) },
		},
		{
			name: "feature", method: http.MethodPost, path: "/api/offres/5/feature", body: `{"sponsored_level":2,"duration_days":7}`,
			call: func(ctx context.Context, c *client.Client) (*jobboard.Offer, error) {
				return c.FeatureOffer(ctx, 5, jobboard.FeatureRequest{Level: 2, DurationDays: 7})
			},
		},
		{
			name: "unfeature", method: http.MethodPost, path: "/api/offres/5/unfeature", body: `{}`,
			call: func(ctx context.Context, c *client.Client) (*jobboard.Offer, error) { return c.UnfeatureOffer(ctx, 5) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			b.on(tt.method, tt.path, http.StatusOK, `{"message":"ok","data":{"id":5,"titre":"Dev Go","statut":"publiee"}}`)

			c := client.New(client.Config{BaseURL: b.baseURL(), Credentials: tokenSource("rh-token")})

			offer, err := tt.call(context.Background(), c)
			require.NoError(t, err)
			require.NotNil(t, offer)
			assert.Equal(t, int64(5), offer.ID)
			assert.Equal(t, jobboard.OfferPublished, offer.Status)

			req := b.last()
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			assert.JSONEq(t, tt.body, req.Body)
			assert.Equal(t, "Bearer rh-token", req.Header.Get("Authorization"))
		})
	}
}

func TestOfferActionWithoutBodyReturnsNil(t *testing.T) {
	b := newBackend(t)
	b.on(http.MethodPatch, "/api/offres/5/fermer", http.StatusNoContent, "")

	c := client.New(client.Config{BaseURL: b.baseURL(), Credentials: tokenSource("rh-token")})

	offer, err := c.CloseOffer(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, offer)
}

func TestOfferActionForbidden(t *testing.T) {
	b := newBackend(t)
	b.on(http.MethodPatch, "/api/offres/5/valider", http.StatusForbidden, `{"message":"Réservé aux administrateurs"}`)

	nav := &navigator{location: "/dashboard"}
	c := client.New(client.Config{BaseURL: b.baseURL(), Credentials: tokenSource("rh-token"), Navigator: nav})

	_, err := c.ValidateOffer(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, jobboard.KindForbidden, jobboard.KindOf(err))
	assert.Contains(t, err.Error(), "Réservé aux administrateurs")

	logins, denied := nav.counts()
	assert.Equal(t, 0, logins)
	assert.Equal(t, 1, denied)
}

func TestListOffersIsPublicAndPaginated(t *testing.T) {
	b := newBackend(t)
	b.on(http.MethodGet, "/api/offres", http.StatusOK,
		`{"data":{"current_page":2,"data":[{"id":1,"titre":"Dev Go","statut":"publiee"},{"id":2,"titre":"SRE","statut":"publiee"}]}}`)

	c := client.New(client.Config{BaseURL: b.baseURL(), Credentials: tokenSource("ignored")})

	offers, err := c.ListOffers(context.Background(), client.OfferQuery{Page: 2, CategoryID: 4, Search: "  go "})
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "SRE", offers[1].Title)

	req := b.last()
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Equal(t, []string{"2"}, req.Query["page"])
	assert.Equal(t, []string{"4"}, req.Query["categorie_id"])
	assert.Equal(t, []string{"go"}, req.Query["search"])
	assert.NotContains(t, req.Query, "per_page")
}

func TestGetOfferAndFeaturedOffers(t *testing.T) {
	b := newBackend(t)
	b.on(http.MethodGet, "/api/offres/42", http.StatusOK, `{"data":{"id":42,"titre":"Dev Go"}}`)
	b.on(http.MethodGet, "/api/offres/featured", http.StatusOK, `[{"id":3,"sponsored_level":2}]`)

	c := client.New(client.Config{BaseURL: b.baseURL(), Credentials: tokenSource("rh-token")})
	ctx := context.Background()

	offer, err := c.GetOffer(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Dev Go", offer.Title)
	assert.Empty(t, b.last().Header.Get("Authorization"), "numeric detail reads are public")

	featured, err := c.FeaturedOffers(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, 2, featured[0].SponsoredLevel)
	assert.Equal(t, "Bearer rh-token", b.last().Header.Get("Authorization"))
}

func TestMyOffersWithoutTokenNeverHitsNetwork(t *testing.T) {
	b := newBackend(t)
	nav := &navigator{location: "/recruteur/offres"}
	c := client.New(client.Config{BaseURL: b.baseURL(), Navigator: nav})

	_, err := c.MyOffers(context.Background())
	require.Error(t, err)
	assert.Equal(t, jobboard.KindMissingCredentials, jobboard.KindOf(err))
	assert.Equal(t, 0, b.count())

	logins, _ := nav.counts()
	assert.Equal(t, 1, logins)
}

func TestManagedTenantsAndCommunityOffers(t *testing.T) {
	b := newBackend(t)
	b.on(http.MethodGet, "/api/community/entreprises", http.StatusOK,
		`{"data":[{"id":7,"nom_entreprise":"Acme","statut":"validée"},{"id":9,"nom_entreprise":"Globex","statut":"en_attente"}]}`)
	b.on(http.MethodGet, "/api/community/offres", http.StatusOK, `{"data":[]}`)

	c := client.New(client.Config{BaseURL: b.baseURL(), Credentials: tokenSource("cm-token")})
	ctx := context.Background()

	tenants, err := c.ManagedTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, jobboard.TenantStatusValidated, tenants[0].Status)
	assert.Equal(t, jobboard.TenantStatusPending, tenants[1].Status)

	offers, err := c.CommunityOffers(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, offers)
	assert.Equal(t, []string{"9"}, b.last().Query["entreprise_id"])
}
