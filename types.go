package jobboard

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Navigator performs UI navigation side effects.
type Navigator interface {
	CurrentLocation() string
	RedirectToLogin(ctx context.Context)
	RedirectToAccessDenied(ctx context.Context)
}

// CredentialSource provides the token for protected requests.
type CredentialSource interface {
	Token() (string, bool)
}

// SessionTerminator tears the session down after the backend rejected the
// credentials.
type SessionTerminator interface {
	Terminate(ctx context.Context) error
}

// RoleSource exposes the roles of the current identity.
type RoleSource interface {
	Is(role Role) bool
}

// LoginRequest holds the login form input.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"-"`
}

// AuthResult is what the backend returns after login, registration or a
// call to auth/me. Roles keep the backend's order.
type AuthResult struct {
	Token    string
	Identity Identity
	Roles    []string
}

// CandidateRegistration is the candidate sign up payload.
type CandidateRegistration struct {
	FirstName            string `json:"prenom"`
	LastName             string `json:"nom"`
	Email                string `json:"email"`
	Phone                string `json:"telephone,omitempty"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// RecruiterRegistration is the recruiter sign up payload.
type RecruiterRegistration struct {
	CandidateRegistration
	CompanyName string `json:"nom_entreprise"`
	CountryID   int64  `json:"pays_id,omitempty"`
}

// AuthBackend is the authentication surface of the backend.
type AuthBackend interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	RegisterCandidate(ctx context.Context, req CandidateRegistration) (*AuthResult, error)
	RegisterRecruiter(ctx context.Context, req RecruiterRegistration) (*AuthResult, error)
	Me(ctx context.Context) (*AuthResult, error)
}

// TenantLoader lists the organizations a community manager may act for.
type TenantLoader interface {
	ManagedTenants(ctx context.Context) ([]Tenant, error)
}

// OfferWorkflow is the backend surface for offer status changes. Returned
// offers may be nil when the backend answers without a body.
type OfferWorkflow interface {
	SubmitOffer(ctx context.Context, id int64) (*Offer, error)
	ValidateOffer(ctx context.Context, id int64) (*Offer, error)
	RejectOffer(ctx context.Context, id int64, reason string) (*Offer, error)
	PublishOffer(ctx context.Context, id int64) (*Offer, error)
	CloseOffer(ctx context.Context, id int64) (*Offer, error)
	FeatureOffer(ctx context.Context, id int64, req FeatureRequest) (*Offer, error)
	UnfeatureOffer(ctx context.Context, id int64) (*Offer, error)
}

// CandidatureWorkflow is the backend surface for candidature reviews.
type CandidatureWorkflow interface {
	UpdateCandidatureStatus(ctx context.Context, id int64, status CandidatureStatus, message string) (*Candidature, error)
}

// TenantReviewWorkflow is the backend surface for organization reviews.
// Returned organizations may be nil when the backend answers without a body.
type TenantReviewWorkflow interface {
	PendingTenants(ctx context.Context) ([]Tenant, error)
	ValidateTenant(ctx context.Context, id int64) (*Tenant, error)
	RejectTenant(ctx context.Context, id int64, reason string) (*Tenant, error)
	RevalidateTenant(ctx context.Context, id int64) (*Tenant, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] JOBBOARD "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] JOBBOARD "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] JOBBOARD "+newline(format), args...)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
