package jobboard_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-jobboard"
)

// MockAuthBackend implements jobboard.AuthBackend
type MockAuthBackend struct {
	mock.Mock
}

func (m *MockAuthBackend) Login(ctx context.Context, req jobboard.LoginRequest) (*jobboard.AuthResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*jobboard.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthBackend) RegisterCandidate(ctx context.Context, req jobboard.CandidateRegistration) (*jobboard.AuthResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*jobboard.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthBackend) RegisterRecruiter(ctx context.Context, req jobboard.RecruiterRegistration) (*jobboard.AuthResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*jobboard.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthBackend) Me(ctx context.Context) (*jobboard.AuthResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*jobboard.AuthResult)
	return res, args.Error(1)
}

// MockTenantLoader implements jobboard.TenantLoader
type MockTenantLoader struct {
	mock.Mock
}

func (m *MockTenantLoader) ManagedTenants(ctx context.Context) ([]jobboard.Tenant, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]jobboard.Tenant)
	return list, args.Error(1)
}

// MockOfferWorkflow implements jobboard.OfferWorkflow
type MockOfferWorkflow struct {
	mock.Mock
}

func (m *MockOfferWorkflow) offer(args mock.Arguments) (*jobboard.Offer, error) {
	o, _ := args.Get(0).(*jobboard.Offer)
	return o, args.Error(1)
}

func (m *MockOfferWorkflow) SubmitOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	return m.offer(m.Called(ctx, id))
}

func (m *MockOfferWorkflow) ValidateOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	return m.offer(m.Called(ctx, id))
}

func (m *MockOfferWorkflow) RejectOffer(ctx context.Context, id int64, reason string) (*jobboard.Offer, error) {
	return m.offer(m.Called(ctx, id, reason))
}

func (m *MockOfferWorkflow) PublishOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	return m.offer(m.Called(ctx, id))
}

func (m *MockOfferWorkflow) CloseOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	return m.offer(m.Called(ctx, id))
}

func (m *MockOfferWorkflow) FeatureOffer(ctx context.Context, id int64, req jobboard.FeatureRequest) (*jobboard.Offer, error) {
	return m.offer(m.Called(ctx, id, req))
}

func (m *MockOfferWorkflow) UnfeatureOffer(ctx context.Context, id int64) (*jobboard.Offer, error) {
	return m.offer(m.Called(ctx, id))
}

// MockCandidatureWorkflow implements jobboard.CandidatureWorkflow
type MockCandidatureWorkflow struct {
	mock.Mock
}

func (m *MockCandidatureWorkflow) UpdateCandidatureStatus(ctx context.Context, id int64, status jobboard.CandidatureStatus, message string) (*jobboard.Candidature, error) {
	args := m.Called(ctx, id, status, message)
	c, _ := args.Get(0).(*jobboard.Candidature)
	return c, args.Error(1)
}

// MockTenantReviewWorkflow implements jobboard.TenantReviewWorkflow
type MockTenantReviewWorkflow struct {
	mock.Mock
}

func (m *MockTenantReviewWorkflow) tenant(args mock.Arguments) (*jobboard.Tenant, error) {
	t, _ := args.Get(0).(*jobboard.Tenant)
	return t, args.Error(1)
}

func (m *MockTenantReviewWorkflow) PendingTenants(ctx context.Context) ([]jobboard.Tenant, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]jobboard.Tenant)
	return list, args.Error(1)
}

func (m *MockTenantReviewWorkflow) ValidateTenant(ctx context.Context, id int64) (*jobboard.Tenant, error) {
	return m.tenant(m.Called(ctx, id))
}

func (m *MockTenantReviewWorkflow) RejectTenant(ctx context.Context, id int64, reason string) (*jobboard.Tenant, error) {
	return m.tenant(m.Called(ctx, id, reason))
}

func (m *MockTenantReviewWorkflow) RevalidateTenant(ctx context.Context, id int64) (*jobboard.Tenant, error) {
	return m.tenant(m.Called(ctx, id))
}

// MockRoles implements jobboard.RoleSource
type MockRoles struct {
	mu    sync.Mutex
	roles []jobboard.Role
}

func (m *MockRoles) Set(roles ...jobboard.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles = roles
}

func (m *MockRoles) Is(role jobboard.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r == role {
			return true
		}
	}
	return false
}

type recordingSink struct {
	mu     sync.Mutex
	events []jobboard.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, e jobboard.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) Events() []jobboard.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]jobboard.ActivityEvent(nil), r.events...)
}

func (r *recordingSink) Types() []jobboard.ActivityEventType {
	var out []jobboard.ActivityEventType
	for _, e := range r.Events() {
		out = append(out, e.EventType)
	}
	return out
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Debug(format string, args ...any) { l.add("DBG", format, args...) }
func (l *recordingLogger) Info(format string, args ...any)  { l.add("INF", format, args...) }
func (l *recordingLogger) Error(format string, args ...any) { l.add("ERR", format, args...) }

func (l *recordingLogger) Contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func signedToken(sub string, exp time.Time) string {
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		panic(err)
	}
	return token
}

func int64Ptr(v int64) *int64 {
	return &v
}
