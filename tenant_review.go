package jobboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// TenantReviewAction names an organization review operation.
type TenantReviewAction string

const (
	TenantActionValidate   TenantReviewAction = "validate"
	TenantActionReject     TenantReviewAction = "reject"
	TenantActionRevalidate TenantReviewAction = "revalidate"
)

// TenantReviewContext is passed into hooks.
type TenantReviewContext struct {
	Action TenantReviewAction
	Actor  Actor
	Tenant *Tenant
	From   TenantStatus
	To     TenantStatus
	Reason string
}

// TenantReviewHook runs before or after the backend call.
type TenantReviewHook func(ctx context.Context, rc TenantReviewContext) error

// TenantReviewOption customizes the review manager.
type TenantReviewOption func(*TenantReview)

// WithTenantReviewClock injects a custom clock.
func WithTenantReviewClock(clock func() time.Time) TenantReviewOption {
	return func(r *TenantReview) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithTenantReviewActivitySink sets the sink receiving review events.
func WithTenantReviewActivitySink(sink ActivitySink) TenantReviewOption {
	return func(r *TenantReview) {
		r.activitySink = normalizeActivitySink(sink)
	}
}

// WithTenantReviewLogger overrides the logger used for sink failures.
func WithTenantReviewLogger(logger Logger) TenantReviewOption {
	return func(r *TenantReview) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBeforeTenantReviewHook adds a hook executed before the backend call.
// A hook error aborts the operation.
func WithBeforeTenantReviewHook(h TenantReviewHook) TenantReviewOption {
	return func(r *TenantReview) {
		if h != nil {
			r.beforeHooks = append(r.beforeHooks, h)
		}
	}
}

// WithAfterTenantReviewHook adds a hook executed once the backend accepted
// the change.
func WithAfterTenantReviewHook(h TenantReviewHook) TenantReviewOption {
	return func(r *TenantReview) {
		if h != nil {
			r.afterHooks = append(r.afterHooks, h)
		}
	}
}

type tenantEdge struct {
	from TenantStatus
	to   TenantStatus
}

// TenantReview is the administrator workflow of organizations: pending
// organizations are validated or rejected with a reason, rejected ones can
// be validated again. Every check runs before the backend is called.
type TenantReview struct {
	backend      TenantReviewWorkflow
	edges        map[TenantReviewAction]tenantEdge
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
	beforeHooks  []TenantReviewHook
	afterHooks   []TenantReviewHook
}

// NewTenantReview returns the manager backed by the provided workflow.
func NewTenantReview(backend TenantReviewWorkflow, opts ...TenantReviewOption) *TenantReview {
	r := &TenantReview{
		backend: backend,
		edges: map[TenantReviewAction]tenantEdge{
			TenantActionValidate:   {from: TenantStatusPending, to: TenantStatusValidated},
			TenantActionReject:     {from: TenantStatusPending, to: TenantStatusRejected},
			TenantActionRevalidate: {from: TenantStatusRejected, to: TenantStatusValidated},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Pending lists the organizations waiting for review.
func (r *TenantReview) Pending(ctx context.Context, actor Actor) ([]Tenant, error) {
	if !actor.Is(RoleAdmin) {
		return nil, NewKindError(ErrForbidden, 0, nil, map[string]any{
			"action": "pending",
		})
	}
	return r.backend.PendingTenants(ctx)
}

// AvailableActions lists the review operations actor may run on tenant.
func (r *TenantReview) AvailableActions(actor Actor, tenant *Tenant) []TenantReviewAction {
	var out []TenantReviewAction
	for _, action := range []TenantReviewAction{TenantActionValidate, TenantActionReject, TenantActionRevalidate} {
		if r.check(action, actor, tenant) == nil {
			out = append(out, action)
		}
	}
	return out
}

// Validate approves a pending organization.
func (r *TenantReview) Validate(ctx context.Context, actor Actor, tenant *Tenant) (*Tenant, error) {
	return r.transition(ctx, TenantActionValidate, actor, tenant, "", func() (*Tenant, error) {
		return r.backend.ValidateTenant(ctx, tenant.ID)
	})
}

// Reject refuses a pending organization. reason is required.
func (r *TenantReview) Reject(ctx context.Context, actor Actor, tenant *Tenant, reason string) (*Tenant, error) {
	reason = strings.TrimSpace(reason)
	return r.transition(ctx, TenantActionReject, actor, tenant, reason, func() (*Tenant, error) {
		return r.backend.RejectTenant(ctx, tenant.ID, reason)
	})
}

// Revalidate approves an organization that was rejected.
func (r *TenantReview) Revalidate(ctx context.Context, actor Actor, tenant *Tenant) (*Tenant, error) {
	return r.transition(ctx, TenantActionRevalidate, actor, tenant, "", func() (*Tenant, error) {
		return r.backend.RevalidateTenant(ctx, tenant.ID)
	})
}

func (r *TenantReview) transition(ctx context.Context, action TenantReviewAction, actor Actor, tenant *Tenant, reason string, call func() (*Tenant, error)) (*Tenant, error) {
	if err := r.check(action, actor, tenant); err != nil {
		return nil, err
	}
	if action == TenantActionReject {
		if err := validation.Validate(reason, validation.Required); err != nil {
			return nil, NewValidationError("a rejection reason is required", map[string][]string{
				"motif": {err.Error()},
			})
		}
	}

	edge := r.edges[action]
	rc := TenantReviewContext{
		Action: action,
		Actor:  actor,
		Tenant: tenant,
		From:   tenant.Status,
		To:     edge.to,
		Reason: reason,
	}

	if err := runTenantReviewHooks(ctx, r.beforeHooks, rc); err != nil {
		return nil, err
	}

	updated, err := call()
	if err != nil {
		return nil, err
	}
	applyTenantUpdate(tenant, updated, edge.to)
	switch action {
	case TenantActionReject:
		tenant.RejectionReason = reason
	case TenantActionValidate, TenantActionRevalidate:
		tenant.RejectionReason = ""
	}

	if err := runTenantReviewHooks(ctx, r.afterHooks, rc); err != nil {
		return nil, err
	}

	meta := map[string]any{"action": string(action)}
	if reason != "" {
		meta["reason"] = reason
	}
	recordActivity(ctx, r.activitySink, r.logger, r.now, ActivityEvent{
		EventType:  ActivityEventTenantStatusChanged,
		Actor:      actor.Ref,
		ResourceID: strconv.FormatInt(tenant.ID, 10),
		TenantID:   tenant.ID,
		FromStatus: string(rc.From),
		ToStatus:   string(tenant.Status),
		Metadata:   meta,
	})
	return tenant, nil
}

func (r *TenantReview) check(action TenantReviewAction, actor Actor, tenant *Tenant) error {
	edge, ok := r.edges[action]
	if !ok {
		return NewKindError(ErrInvalidTransition, 0, nil, map[string]any{
			"action": string(action),
			"reason": "unknown action",
		})
	}
	if tenant == nil {
		return NewKindError(ErrInvalidTransition, 0, nil, map[string]any{
			"action": string(action),
			"reason": "organization is nil",
		})
	}

	from := tenant.Status
	if from == "" {
		from = TenantStatusPending
	}
	if from != edge.from {
		return NewKindError(ErrInvalidTransition, 0, nil, map[string]any{
			"action": string(action),
			"from":   string(tenant.Status),
			"to":     string(edge.to),
		})
	}

	if !actor.Is(RoleAdmin) {
		return NewKindError(ErrForbidden, 0, nil, map[string]any{
			"action":        string(action),
			"entreprise_id": tenant.ID,
		})
	}
	return nil
}

func runTenantReviewHooks(ctx context.Context, hooks []TenantReviewHook, rc TenantReviewContext) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, rc); err != nil {
			return fmt.Errorf("organization %s hook: %w", rc.Action, err)
		}
	}
	return nil
}

// applyTenantUpdate merges the backend answer, keeping current fields when
// the answer is partial or empty.
func applyTenantUpdate(tenant, updated *Tenant, target TenantStatus) {
	tenant.Status = target
	if updated == nil {
		return
	}
	if updated.Status != "" {
		tenant.Status = updated.Status
	}
	if updated.Name != "" {
		tenant.Name = updated.Name
	}
	if updated.OwnerID != 0 {
		tenant.OwnerID = updated.OwnerID
	}
}
