package jobboard

import (
	"encoding/json"
	"strings"
	"time"
)

// Identity is the authenticated user record.
type Identity struct {
	ID           int64  `json:"id"`
	Email        string `json:"email,omitempty"`
	FirstName    string `json:"prenom,omitempty"`
	LastName     string `json:"nom,omitempty"`
	Phone        string `json:"telephone,omitempty"`
	Role         string `json:"role,omitempty"`
	EntrepriseID *int64 `json:"entreprise_id,omitempty"`
}

// DisplayName joins first and last names.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// TenantStatus is the validation status of an organization.
type TenantStatus string

const (
	TenantStatusPending   TenantStatus = "pending"
	TenantStatusValidated TenantStatus = "validated"
	TenantStatusRejected  TenantStatus = "rejected"
)

// ParseTenantStatus accepts the several spellings the backend emits.
func ParseTenantStatus(s string) TenantStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "valide", "validee", "validé", "validée", "validated":
		return TenantStatusValidated
	case "refuse", "refusee", "refusé", "refusée", "rejetee", "rejetée", "rejected":
		return TenantStatusRejected
	default:
		return TenantStatusPending
	}
}

// UnmarshalJSON normalizes the wire value.
func (s *TenantStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseTenantStatus(raw)
	return nil
}

// Tenant is an organization ("entreprise") that owns offers.
type Tenant struct {
	ID              int64        `json:"id"`
	Name            string       `json:"nom_entreprise"`
	Status          TenantStatus `json:"statut"`
	OwnerID         int64        `json:"user_id"`
	RejectionReason string       `json:"motif_rejet,omitempty"`
}

// Rejection returns the rejection reason, treating the unreliable wire
// placeholders "", "null" and "undefined" as absent.
func (t Tenant) Rejection() (string, bool) {
	reason := strings.TrimSpace(t.RejectionReason)
	switch strings.ToLower(reason) {
	case "", "null", "undefined":
		return "", false
	}
	return reason, true
}

// OfferStatus is the stored lifecycle state of an offer.
type OfferStatus string

const (
	OfferDraft             OfferStatus = "brouillon"
	OfferPendingValidation OfferStatus = "en_attente_validation"
	OfferValidated         OfferStatus = "validee"
	OfferRejected          OfferStatus = "rejetee"
	OfferPublished         OfferStatus = "publiee"
	OfferClosed            OfferStatus = "fermee"
	// OfferExpired is accepted from the wire but never used as a transition
	// target; expiry is derived from the expiration date.
	OfferExpired OfferStatus = "expiree"
)

// IsValid reports whether s is a known wire value.
func (s OfferStatus) IsValid() bool {
	switch s {
	case OfferDraft, OfferPendingValidation, OfferValidated, OfferRejected,
		OfferPublished, OfferClosed, OfferExpired:
		return true
	}
	return false
}

// Lifecycle maps the stored value onto the workflow graph. A stored
// "expiree" is a published offer whose date elapsed.
func (s OfferStatus) Lifecycle() OfferStatus {
	if s == OfferExpired {
		return OfferPublished
	}
	return s
}

// Offer is a job posting.
type Offer struct {
	ID             int64       `json:"id"`
	Title          string      `json:"titre"`
	Status         OfferStatus `json:"statut"`
	EntrepriseID   int64       `json:"entreprise_id"`
	OwnerID        int64       `json:"recruteur_id"`
	CategoryID     int64       `json:"categorie_id,omitempty"`
	PublishedAt    Timestamp   `json:"date_publication"`
	ExpiresAt      Timestamp   `json:"date_expiration"`
	SponsoredLevel int         `json:"sponsored_level"`
	FeaturedUntil  Timestamp   `json:"featured_until"`
	CreatedAt      Timestamp   `json:"created_at"`
	RejectionNote  string      `json:"motif_rejet,omitempty"`
}

// CandidatureStatus is the review status of an application.
type CandidatureStatus string

const (
	CandidaturePending  CandidatureStatus = "en_attente"
	CandidatureAccepted CandidatureStatus = "acceptee"
	CandidatureRejected CandidatureStatus = "refusee"
)

// Candidature is an application to an offer.
type Candidature struct {
	ID            int64             `json:"id"`
	OfferID       int64             `json:"offre_id"`
	CandidateID   int64             `json:"candidat_id,omitempty"`
	Status        CandidatureStatus `json:"statut"`
	StatusMessage string            `json:"message_statut,omitempty"`
	TrackingCode  string            `json:"code_suivi,omitempty"`
	AppliedAt     Timestamp         `json:"date_candidature"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp decodes the several date layouts the backend emits. The zero
// value means absent and encodes as null.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// IsSet reports whether a date is present.
func (t Timestamp) IsSet() bool {
	return !t.Time.IsZero()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, ok := ParseTimestamp(raw)
	if !ok {
		// unparseable dates are treated as absent
		t.Time = time.Time{}
		return nil
	}
	t.Time = parsed
	return nil
}

// ParseTimestamp tries each known layout.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
