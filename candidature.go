package jobboard

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ParseCandidatureStatus accepts the spellings used by the backend.
func ParseCandidatureStatus(s string) (CandidatureStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en_attente", "en attente", "pending":
		return CandidaturePending, true
	case "acceptee", "acceptée", "accepted":
		return CandidatureAccepted, true
	case "refusee", "refusée", "rejetee", "rejected":
		return CandidatureRejected, true
	}
	return "", false
}

// UnmarshalJSON normalizes the wire value. Unknown values are kept lower
// cased so they never match a known status.
func (s *CandidatureStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if status, ok := ParseCandidatureStatus(raw); ok {
		*s = status
		return nil
	}
	*s = CandidatureStatus(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

// CandidatureManager reviews applications. Only pending applications can be
// accepted or rejected, by a recruiter or community manager of the offer's
// tenant or by an administrator.
type CandidatureManager struct {
	backend      CandidatureWorkflow
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

// CandidatureOption customizes the manager.
type CandidatureOption func(*CandidatureManager)

// WithCandidatureActivitySink sets the sink receiving review events.
func WithCandidatureActivitySink(sink ActivitySink) CandidatureOption {
	return func(m *CandidatureManager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithCandidatureLogger sets the logger.
func WithCandidatureLogger(logger Logger) CandidatureOption {
	return func(m *CandidatureManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewCandidatureManager returns a manager backed by backend.
func NewCandidatureManager(backend CandidatureWorkflow, opts ...CandidatureOption) *CandidatureManager {
	m := &CandidatureManager{
		backend:      backend,
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// UpdateStatus moves a pending application to accepted or rejected.
// offerTenantID is the organization owning the offer applied to.
func (m *CandidatureManager) UpdateStatus(ctx context.Context, actor Actor, c *Candidature, offerTenantID int64, target CandidatureStatus, message string) (*Candidature, error) {
	if c == nil {
		return nil, NewKindError(ErrInvalidTransition, 0, nil, map[string]any{
			"reason": "candidature is nil",
		})
	}

	from := c.Status
	if from == "" {
		from = CandidaturePending
	}
	if from != CandidaturePending || (target != CandidatureAccepted && target != CandidatureRejected) {
		return nil, NewKindError(ErrInvalidTransition, 0, nil, map[string]any{
			"from": string(from),
			"to":   string(target),
		})
	}

	if !actor.Is(RoleAdmin) && !actor.ManagesTenant(offerTenantID) {
		return nil, NewKindError(ErrForbidden, 0, nil, map[string]any{
			"entreprise_id": offerTenantID,
		})
	}

	message = strings.TrimSpace(message)
	updated, err := m.backend.UpdateCandidatureStatus(ctx, c.ID, target, message)
	if err != nil {
		return nil, err
	}

	c.Status = target
	c.StatusMessage = message
	if updated != nil && updated.Status != "" {
		c.Status = updated.Status
	}

	recordActivity(ctx, m.activitySink, m.logger, m.now, ActivityEvent{
		EventType:  ActivityEventCandidatureStatusChanged,
		Actor:      actor.Ref,
		ResourceID: strconv.FormatInt(c.ID, 10),
		TenantID:   offerTenantID,
		FromStatus: string(from),
		ToStatus:   string(c.Status),
	})
	return c, nil
}
