package jobboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// OfferAction names a workflow operation.
type OfferAction string

const (
	OfferActionSubmit    OfferAction = "submit"
	OfferActionValidate  OfferAction = "validate"
	OfferActionReject    OfferAction = "reject"
	OfferActionPublish   OfferAction = "publish"
	OfferActionClose     OfferAction = "close"
	OfferActionFeature   OfferAction = "feature"
	OfferActionUnfeature OfferAction = "unfeature"
)

// Actor is who performs a workflow operation. TenantID is the effective
// tenant: the active tenant for a community manager, the identity's own
// organization for a recruiter, zero otherwise.
type Actor struct {
	Ref      ActorRef
	Roles    []Role
	TenantID int64
}

// Is reports whether the actor holds role.
func (a Actor) Is(role Role) bool {
	return containsRole(a.Roles, role)
}

// ManagesTenant reports whether a recruiter or community manager acts for
// tenantID.
func (a Actor) ManagesTenant(tenantID int64) bool {
	if tenantID == 0 || a.TenantID != tenantID {
		return false
	}
	return a.Is(RoleRecruiter) || a.Is(RoleCommunityManager)
}

// ActiveTenantSource exposes the active tenant selection.
type ActiveTenantSource interface {
	ActiveTenantID() (int64, bool)
}

// ActorFromSession derives the acting identity and its effective tenant.
func ActorFromSession(session Session, tenants ActiveTenantSource) Actor {
	roles := append([]Role(nil), session.Roles...)
	if len(roles) == 0 {
		if role, ok := session.PrimaryRole(); ok {
			roles = []Role{role}
		}
	}

	actor := Actor{Ref: actorOf(session.Identity), Roles: roles}
	switch {
	case containsRole(roles, RoleCommunityManager):
		if tenants != nil {
			if id, ok := tenants.ActiveTenantID(); ok {
				actor.TenantID = id
			}
		}
	case containsRole(roles, RoleRecruiter):
		if session.Identity.EntrepriseID != nil {
			actor.TenantID = *session.Identity.EntrepriseID
		}
	}
	return actor
}

// OfferTransitionContext is passed into hooks.
type OfferTransitionContext struct {
	Action OfferAction
	Actor  Actor
	Offer  *Offer
	From   OfferStatus
	To     OfferStatus
	Reason string
}

// OfferHook runs before or after the backend call.
type OfferHook func(ctx context.Context, tc OfferTransitionContext) error

// OfferOption customizes the lifecycle manager.
type OfferOption func(*OfferLifecycle)

// WithOfferClock injects a custom clock (useful for tests).
func WithOfferClock(clock func() time.Time) OfferOption {
	return func(l *OfferLifecycle) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithOfferActivitySink sets the ActivitySink used to publish lifecycle events.
func WithOfferActivitySink(sink ActivitySink) OfferOption {
	return func(l *OfferLifecycle) {
		l.activitySink = normalizeActivitySink(sink)
	}
}

// WithOfferLogger overrides the logger used for sink failures.
func WithOfferLogger(logger Logger) OfferOption {
	return func(l *OfferLifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithBeforeOfferHook adds a hook executed before the backend call. A hook
// error aborts the operation.
func WithBeforeOfferHook(h OfferHook) OfferOption {
	return func(l *OfferLifecycle) {
		if h != nil {
			l.beforeHooks = append(l.beforeHooks, h)
		}
	}
}

// WithAfterOfferHook adds a hook executed after the backend accepted the
// change.
func WithAfterOfferHook(h OfferHook) OfferOption {
	return func(l *OfferLifecycle) {
		if h != nil {
			l.afterHooks = append(l.afterHooks, h)
		}
	}
}

type offerGate int

const (
	gateManager offerGate = iota
	gateAdmin
	gateManagerOrAdmin
)

type offerEdge struct {
	from []OfferStatus
	to   OfferStatus
	gate offerGate
}

// OfferLifecycle is the role gated state machine of job offers. Every
// precondition is checked before the backend is called.
type OfferLifecycle struct {
	backend      OfferWorkflow
	edges        map[OfferAction]offerEdge
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
	beforeHooks  []OfferHook
	afterHooks   []OfferHook
}

// NewOfferLifecycle returns the manager backed by the provided workflow.
func NewOfferLifecycle(backend OfferWorkflow, opts ...OfferOption) *OfferLifecycle {
	l := &OfferLifecycle{
		backend: backend,
		edges: map[OfferAction]offerEdge{
			OfferActionSubmit: {
				from: []OfferStatus{OfferDraft, OfferRejected},
				to:   OfferPendingValidation,
				gate: gateManager,
			},
			OfferActionValidate: {
				from: []OfferStatus{OfferPendingValidation},
				to:   OfferValidated,
				gate: gateAdmin,
			},
			OfferActionReject: {
				from: []OfferStatus{OfferPendingValidation},
				to:   OfferRejected,
				gate: gateAdmin,
			},
			OfferActionPublish: {
				from: []OfferStatus{OfferValidated},
				to:   OfferPublished,
				gate: gateManager,
			},
			OfferActionClose: {
				from: []OfferStatus{OfferPublished},
				to:   OfferClosed,
				gate: gateManagerOrAdmin,
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// CanTransition reports whether from -> to is an edge of the graph.
func (l *OfferLifecycle) CanTransition(from, to OfferStatus) bool {
	from = from.Lifecycle()
	for _, edge := range l.edges {
		if edge.to != to {
			continue
		}
		for _, f := range edge.from {
			if f == from {
				return true
			}
		}
	}
	return false
}

// AvailableActions lists the status operations actor may run on offer.
func (l *OfferLifecycle) AvailableActions(actor Actor, offer *Offer) []OfferAction {
	if offer == nil {
		return nil
	}
	order := []OfferAction{
		OfferActionSubmit,
		OfferActionValidate,
		OfferActionReject,
		OfferActionPublish,
		OfferActionClose,
	}
	var out []OfferAction
	for _, action := range order {
		if l.check(action, actor, offer) == nil {
			out = append(out, action)
		}
	}
	if actor.Is(RoleAdmin) {
		out = append(out, OfferActionFeature, OfferActionUnfeature)
	}
	return out
}

// Submit sends a draft or rejected offer to validation.
func (l *OfferLifecycle) Submit(ctx context.Context, actor Actor, offer *Offer) (*Offer, error) {
	return l.transition(ctx, OfferActionSubmit, actor, offer, "", func() (*Offer, error) {
		return l.backend.SubmitOffer(ctx, offer.ID)
	})
}

// Validate approves a pending offer.
func (l *OfferLifecycle) Validate(ctx context.Context, actor Actor, offer *Offer) (*Offer, error) {
	return l.transition(ctx, OfferActionValidate, actor, offer, "", func() (*Offer, error) {
		return l.backend.ValidateOffer(ctx, offer.ID)
	})
}

// Reject refuses a pending offer. reason is required.
func (l *OfferLifecycle) Reject(ctx context.Context, actor Actor, offer *Offer, reason string) (*Offer, error) {
	reason = strings.TrimSpace(reason)
	return l.transition(ctx, OfferActionReject, actor, offer, reason, func() (*Offer, error) {
		return l.backend.RejectOffer(ctx, offer.ID, reason)
	})
}

// Publish makes a validated offer visible.
func (l *OfferLifecycle) Publish(ctx context.Context, actor Actor, offer *Offer) (*Offer, error) {
	return l.transition(ctx, OfferActionPublish, actor, offer, "", func() (*Offer, error) {
		return l.backend.PublishOffer(ctx, offer.ID)
	})
}

// Close ends a published offer.
func (l *OfferLifecycle) Close(ctx context.Context, actor Actor, offer *Offer) (*Offer, error) {
	return l.transition(ctx, OfferActionClose, actor, offer, "", func() (*Offer, error) {
		return l.backend.CloseOffer(ctx, offer.ID)
	})
}

func (l *OfferLifecycle) transition(ctx context.Context, action OfferAction, actor Actor, offer *Offer, reason string, call func() (*Offer, error)) (*Offer, error) {
	if err := l.check(action, actor, offer); err != nil {
		return nil, err
	}
	if action == OfferActionReject {
		if err := validation.Validate(reason, validation.Required); err != nil {
			return nil, NewValidationError("a rejection reason is required", map[string][]string{
				"motif_rejet": {err.Error()},
			})
		}
	}

	edge := l.edges[action]
	tc := OfferTransitionContext{
		Action: action,
		Actor:  actor,
		Offer:  offer,
		From:   offer.Status,
		To:     edge.to,
		Reason: reason,
	}

	if err := runOfferHooks(ctx, l.beforeHooks, tc); err != nil {
		return nil, err
	}

	updated, err := call()
	if err != nil {
		return nil, err
	}
	applyOfferUpdate(offer, updated, edge.to)
	if action == OfferActionReject {
		offer.RejectionNote = reason
	}

	if err := runOfferHooks(ctx, l.afterHooks, tc); err != nil {
		return nil, err
	}

	meta := map[string]any{"action": string(action)}
	if reason != "" {
		meta["reason"] = reason
	}
	l.record(ctx, ActivityEvent{
		EventType:  ActivityEventOfferStatusChanged,
		Actor:      actor.Ref,
		ResourceID: strconv.FormatInt(offer.ID, 10),
		TenantID:   offer.EntrepriseID,
		FromStatus: string(tc.From),
		ToStatus:   string(offer.Status),
		Metadata:   meta,
	})
	return offer, nil
}

// check runs the graph and permission checks for a status operation.
func (l *OfferLifecycle) check(action OfferAction, actor Actor, offer *Offer) error {
	edge, ok := l.edges[action]
	if !ok {
		return NewKindError(ErrInvalidTransition, 0, nil, map[string]any{
			"action": string(action),
			"reason": "unknown action",
		})
	}
	if offer == nil {
		return NewKindError(ErrInvalidTransition, 0, nil, map[string]any{
			"action": string(action),
			"reason": "offer is nil",
		})
	}

	from := offer.Status.Lifecycle()
	legal := false
	for _, f := range edge.from {
		if f == from {
			legal = true
			break
		}
	}
	if !legal {
		return NewKindError(ErrInvalidTransition, 0, nil, map[string]any{
			"action": string(action),
			"from":   string(offer.Status),
			"to":     string(edge.to),
		})
	}

	if !permitted(edge.gate, actor, offer.EntrepriseID) {
		return NewKindError(ErrForbidden, 0, nil, map[string]any{
			"action":        string(action),
			"entreprise_id": offer.EntrepriseID,
		})
	}
	return nil
}

func permitted(gate offerGate, actor Actor, tenantID int64) bool {
	switch gate {
	case gateAdmin:
		return actor.Is(RoleAdmin)
	case gateManagerOrAdmin:
		return actor.Is(RoleAdmin) || actor.ManagesTenant(tenantID)
	default:
		return actor.ManagesTenant(tenantID)
	}
}

func runOfferHooks(ctx context.Context, hooks []OfferHook, tc OfferTransitionContext) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, tc); err != nil {
			return fmt.Errorf("offer %s hook: %w", tc.Action, err)
		}
	}
	return nil
}

// applyOfferUpdate merges what the backend returned, falling back to the
// expected target status when the answer has no body. Fields missing from a
// partial answer keep their current value.
func applyOfferUpdate(offer, updated *Offer, target OfferStatus) {
	offer.Status = target
	if updated == nil {
		return
	}
	if updated.Status != "" {
		offer.Status = updated.Status
	}
	if updated.Title != "" {
		offer.Title = updated.Title
	}
	if updated.EntrepriseID != 0 {
		offer.EntrepriseID = updated.EntrepriseID
	}
	if updated.OwnerID != 0 {
		offer.OwnerID = updated.OwnerID
	}
	if updated.PublishedAt.IsSet() {
		offer.PublishedAt = updated.PublishedAt
	}
	if updated.ExpiresAt.IsSet() {
		offer.ExpiresAt = updated.ExpiresAt
	}
	if updated.RejectionNote != "" {
		offer.RejectionNote = updated.RejectionNote
	}
}

func (l *OfferLifecycle) record(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, l.activitySink, l.logger, l.now, event)
}
