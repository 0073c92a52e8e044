package jobboard_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-jobboard"
)

func TestTimestampLayouts(t *testing.T) {
	tests := []struct {
		raw      string
		expected time.Time
	}{
		{`"2025-03-10T09:00:00Z"`, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{`"2025-03-10T09:00:00.000000Z"`, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{`"2025-03-10 09:00:00"`, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{`"2025-03-10"`, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var ts jobboard.Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &ts))
			assert.True(t, ts.IsSet())
			assert.True(t, tt.expected.Equal(ts.Time))
		})
	}
}

func TestTimestampAbsentValues(t *testing.T) {
	for _, raw := range []string{`null`, `""`, `"soon"`} {
		var ts jobboard.Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts))
		assert.False(t, ts.IsSet(), raw)
	}

	b, err := json.Marshal(jobboard.Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	b, err = json.Marshal(jobboard.NewTimestamp(testNow))
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-10T09:00:00Z"`, string(b))
}

func TestOfferDecodesWireRecord(t *testing.T) {
	raw := `{
		"id": 5,
		"titre": "Développeur Go",
		"statut": "publiee",
		"entreprise_id": 7,
		"date_expiration": "2025-04-01",
		"sponsored_level": 2,
		"featured_until": null,
		"created_at": "2025-03-01 10:00:00"
	}`

	var offer jobboard.Offer
	require.NoError(t, json.Unmarshal([]byte(raw), &offer))
	assert.Equal(t, jobboard.OfferPublished, offer.Status)
	assert.True(t, offer.Status.IsValid())
	assert.Equal(t, int64(7), offer.EntrepriseID)
	assert.True(t, offer.IsFeaturedActive(testNow))
	assert.True(t, offer.AcceptsApplications(testNow))
	assert.False(t, offer.PublishedAt.IsSet())
}

func TestOfferStatusLifecycle(t *testing.T) {
	assert.Equal(t, jobboard.OfferPublished, jobboard.OfferExpired.Lifecycle())
	assert.Equal(t, jobboard.OfferDraft, jobboard.OfferDraft.Lifecycle())
	assert.False(t, jobboard.OfferStatus("archived").IsValid())
}

func TestTenantStatusSpellings(t *testing.T) {
	tests := map[string]jobboard.TenantStatus{
		"validée":    jobboard.TenantStatusValidated,
		"VALIDE":     jobboard.TenantStatusValidated,
		"refusee":    jobboard.TenantStatusRejected,
		"rejected":   jobboard.TenantStatusRejected,
		"en_attente": jobboard.TenantStatusPending,
		"":           jobboard.TenantStatusPending,
	}
	for raw, expected := range tests {
		assert.Equal(t, expected, jobboard.ParseTenantStatus(raw), raw)
	}

	var tenant jobboard.Tenant
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"nom_entreprise":"Acme","statut":"validée"}`), &tenant))
	assert.Equal(t, jobboard.TenantStatusValidated, tenant.Status)
}

func TestTenantRejectionPlaceholders(t *testing.T) {
	for _, raw := range []string{"", "null", "undefined", " NULL "} {
		_, ok := jobboard.Tenant{RejectionReason: raw}.Rejection()
		assert.False(t, ok, raw)
	}

	reason, ok := jobboard.Tenant{RejectionReason: " Documents manquants "}.Rejection()
	assert.True(t, ok)
	assert.Equal(t, "Documents manquants", reason)
}

func TestRoleParsing(t *testing.T) {
	tests := []struct {
		in       string
		expected jobboard.Role
		ok       bool
	}{
		{"Administrateur", jobboard.RoleAdmin, true},
		{"admin", jobboard.RoleAdmin, true},
		{"RECRUTEUR", jobboard.RoleRecruiter, true},
		{"candidate", jobboard.RoleCandidate, true},
		{"Community Manager", jobboard.RoleCommunityManager, true},
		{"moderator", jobboard.Role("moderator"), false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			role, ok := jobboard.ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, role)
		})
	}

	roles := jobboard.ParseRoles([]string{"recruteur", "", "Recruiter", "administrateur"})
	assert.Equal(t, []jobboard.Role{jobboard.RoleRecruiter, jobboard.RoleAdmin}, roles)
	assert.Equal(t, []string{"recruteur", "administrateur"}, jobboard.RoleNames(roles))

	assert.True(t, jobboard.RoleCommunityManager.ManagesOffers())
	assert.False(t, jobboard.RoleAdmin.ManagesOffers())
	assert.True(t, jobboard.RoleCandidate.IsValid())
	assert.Len(t, jobboard.GetAllRoles(), 4)
}
