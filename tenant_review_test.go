package jobboard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-jobboard"
)

func newTestReview(backend jobboard.TenantReviewWorkflow, sink jobboard.ActivitySink, opts ...jobboard.TenantReviewOption) *jobboard.TenantReview {
	base := []jobboard.TenantReviewOption{
		jobboard.WithTenantReviewLogger(jobboard.NopLogger{}),
		jobboard.WithTenantReviewActivitySink(sink),
		jobboard.WithTenantReviewClock(fixedClock(testNow)),
	}
	return jobboard.NewTenantReview(backend, append(base, opts...)...)
}

func TestValidatePendingTenant(t *testing.T) {
	backend := new(MockTenantReviewWorkflow)
	backend.On("ValidateTenant", mock.Anything, int64(7)).Return(nil, nil).Once()
	sink := &recordingSink{}

	r := newTestReview(backend, sink)
	tenant := &jobboard.Tenant{ID: 7, Name: "Acme", Status: jobboard.TenantStatusPending}

	updated, err := r.Validate(context.Background(), adminActor(), tenant)
	require.NoError(t, err)
	assert.Same(t, tenant, updated)
	assert.Equal(t, jobboard.TenantStatusValidated, tenant.Status)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, jobboard.ActivityEventTenantStatusChanged, events[0].EventType)
	assert.Equal(t, "7", events[0].ResourceID)
	assert.Equal(t, "pending", events[0].FromStatus)
	assert.Equal(t, "validated", events[0].ToStatus)
	assert.Equal(t, testNow, events[0].OccurredAt)
	backend.AssertExpectations(t)
}

func TestRejectTenantRequiresReason(t *testing.T) {
	backend := new(MockTenantReviewWorkflow)
	r := newTestReview(backend, nil)
	tenant := &jobboard.Tenant{ID: 7, Status: jobboard.TenantStatusPending}

	_, err := r.Reject(context.Background(), adminActor(), tenant, "   ")
	require.Error(t, err)
	assert.True(t, jobboard.IsKind(err, jobboard.KindValidationFailed))
	assert.Contains(t, jobboard.FieldErrors(err), "motif")
	assert.Equal(t, jobboard.TenantStatusPending, tenant.Status)
	backend.AssertNotCalled(t, "RejectTenant", mock.Anything, mock.Anything, mock.Anything)
}

func TestRejectTenantRecordsReason(t *testing.T) {
	backend := new(MockTenantReviewWorkflow)
	backend.On("RejectTenant", mock.Anything, int64(7), "Documents manquants").Return(nil, nil).Once()
	sink := &recordingSink{}

	r := newTestReview(backend, sink)
	tenant := &jobboard.Tenant{ID: 7, Status: jobboard.TenantStatusPending}

	_, err := r.Reject(context.Background(), adminActor(), tenant, " Documents manquants ")
	require.NoError(t, err)
	assert.Equal(t, jobboard.TenantStatusRejected, tenant.Status)
	reason, ok := tenant.Rejection()
	assert.True(t, ok)
	assert.Equal(t, "Documents manquants", reason)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Documents manquants", events[0].Metadata["reason"])
	backend.AssertExpectations(t)
}

func TestRevalidateRejectedTenantClearsReason(t *testing.T) {
	backend := new(MockTenantReviewWorkflow)
	backend.On("RevalidateTenant", mock.Anything, int64(7)).
		Return(&jobboard.Tenant{ID: 7, Name: "Acme SA", Status: jobboard.TenantStatusValidated}, nil).Once()

	r := newTestReview(backend, nil)
	tenant := &jobboard.Tenant{ID: 7, Name: "Acme", Status: jobboard.TenantStatusRejected, RejectionReason: "doublon"}

	_, err := r.Revalidate(context.Background(), adminActor(), tenant)
	require.NoError(t, err)
	assert.Equal(t, jobboard.TenantStatusValidated, tenant.Status)
	assert.Equal(t, "Acme SA", tenant.Name)
	_, ok := tenant.Rejection()
	assert.False(t, ok)
	backend.AssertExpectations(t)
}

func TestTenantReviewRejectsIllegalMoves(t *testing.T) {
	backend := new(MockTenantReviewWorkflow)
	r := newTestReview(backend, nil)
	ctx := context.Background()

	validated := &jobboard.Tenant{ID: 7, Status: jobboard.TenantStatusValidated}
	_, err := r.Validate(ctx, adminActor(), validated)
	assert.True(t, jobboard.IsKind(err, jobboard.KindInvalidTransition))
	_, err = r.Reject(ctx, adminActor(), validated, "trop tard")
	assert.True(t, jobboard.IsKind(err, jobboard.KindInvalidTransition))
	_, err = r.Revalidate(ctx, adminActor(), validated)
	assert.True(t, jobboard.IsKind(err, jobboard.KindInvalidTransition))

	pending := &jobboard.Tenant{ID: 8, Status: jobboard.TenantStatusPending}
	_, err = r.Revalidate(ctx, adminActor(), pending)
	assert.True(t, jobboard.IsKind(err, jobboard.KindInvalidTransition))

	_, err = r.Validate(ctx, adminActor(), nil)
	assert.True(t, jobboard.IsKind(err, jobboard.KindInvalidTransition))

	backend.AssertNotCalled(t, "ValidateTenant", mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "RejectTenant", mock.Anything, mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "RevalidateTenant", mock.Anything, mock.Anything)
}

func TestTenantReviewIsAdminOnly(t *testing.T) {
	backend := new(MockTenantReviewWorkflow)
	r := newTestReview(backend, nil)
	ctx := context.Background()

	manager := jobboard.Actor{Roles: []jobboard.Role{jobboard.RoleCommunityManager}, TenantID: 7}
	tenant := &jobboard.Tenant{ID: 7, Status: jobboard.TenantStatusPending}

	_, err := r.Validate(ctx, manager, tenant)
	assert.True(t, jobboard.IsKind(err, jobboard.KindForbidden))
	_, err = r.Reject(ctx, recruiterOf(7), tenant, "non")
	assert.True(t, jobboard.IsKind(err, jobboard.KindForbidden))
	_, err = r.Pending(ctx, manager)
	assert.True(t, jobboard.IsKind(err, jobboard.KindForbidden))

	assert.Empty(t, r.AvailableActions(manager, tenant))
	assert.Equal(t, []jobboard.TenantReviewAction{jobboard.TenantActionValidate, jobboard.TenantActionReject},
		r.AvailableActions(adminActor(), tenant))
	assert.Equal(t, []jobboard.TenantReviewAction{jobboard.TenantActionRevalidate},
		r.AvailableActions(adminActor(), &jobboard.Tenant{ID: 7, Status: jobboard.TenantStatusRejected}))

	backend.AssertNotCalled(t, "PendingTenants", mock.Anything)
	assert.Equal(t, jobboard.TenantStatusPending, tenant.Status)
}

func TestPendingTenantsForAdmin(t *testing.T) {
	backend := new(MockTenantReviewWorkflow)
	backend.On("PendingTenants", mock.Anything).
		Return([]jobboard.Tenant{{ID: 3, Status: jobboard.TenantStatusPending}}, nil).Once()

	list, err := newTestReview(backend, nil).Pending(context.Background(), adminActor())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(3), list[0].ID)
	backend.AssertExpectations(t)
}

func TestTenantReviewHooks(t *testing.T) {
	backend := new(MockTenantReviewWorkflow)
	backend.On("ValidateTenant", mock.Anything, int64(7)).Return(nil, nil).Once()

	var calls []string
	r := newTestReview(backend, nil,
		jobboard.WithBeforeTenantReviewHook(func(_ context.Context, rc jobboard.TenantReviewContext) error {
			calls = append(calls, "before:"+string(rc.From)+">"+string(rc.To))
			return nil
		}),
		jobboard.WithAfterTenantReviewHook(func(_ context.Context, rc jobboard.TenantReviewContext) error {
			calls = append(calls, "after:"+string(rc.Tenant.Status))
			return nil
		}),
	)

	_, err := r.Validate(context.Background(), adminActor(), &jobboard.Tenant{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, []string{"before:>validated", "after:validated"}, calls)

	blocked := newTestReview(backend, nil,
		jobboard.WithBeforeTenantReviewHook(func(context.Context, jobboard.TenantReviewContext) error {
			return errors.New("locked")
		}),
	)
	tenant := &jobboard.Tenant{ID: 7, Status: jobboard.TenantStatusPending}
	_, err = blocked.Validate(context.Background(), adminActor(), tenant)
	assert.ErrorContains(t, err, "locked")
	assert.Equal(t, jobboard.TenantStatusPending, tenant.Status)
	backend.AssertExpectations(t)
}
