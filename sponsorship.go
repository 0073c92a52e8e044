package jobboard

import (
	"context"
	"sort"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// MaxSponsoredLevel is the highest sponsorship level.
const MaxSponsoredLevel = 3

// FeatureRequest puts an offer forward. Either DurationDays or Until may
// bound the window; with neither the offer stays featured until removed.
type FeatureRequest struct {
	Level        int        `json:"sponsored_level"`
	DurationDays int        `json:"duration_days,omitempty"`
	Until        *Timestamp `json:"featured_until,omitempty"`
}

// Validate will run validation rules
func (r FeatureRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Level, validation.Required, validation.Min(1), validation.Max(MaxSponsoredLevel)),
		validation.Field(&r.DurationDays, validation.Min(0), validation.Max(365)),
	)
}

// IsExpired reports whether the expiration date is past. It is independent
// of the stored status.
func (o Offer) IsExpired(now time.Time) bool {
	return o.ExpiresAt.IsSet() && o.ExpiresAt.Time.Before(now)
}

// IsFeaturedActive reports level > 0 with no window end or a window ending
// after now.
func (o Offer) IsFeaturedActive(now time.Time) bool {
	if o.SponsoredLevel <= 0 {
		return false
	}
	return !o.FeaturedUntil.IsSet() || o.FeaturedUntil.Time.After(now)
}

// EffectiveStatus is the status to display: a published offer whose date
// elapsed reads as expired, a stored "expiree" whose date has not elapsed
// reads as published.
func (o Offer) EffectiveStatus(now time.Time) OfferStatus {
	status := o.Status.Lifecycle()
	if status == OfferPublished && o.IsExpired(now) {
		return OfferExpired
	}
	return status
}

// AcceptsApplications reports whether candidates may still apply.
func (o Offer) AcceptsApplications(now time.Time) bool {
	return o.Status.Lifecycle() == OfferPublished && !o.IsExpired(now)
}

// EffectiveLevel is the sponsorship level while featured-active, zero once
// the window elapsed.
func (o Offer) EffectiveLevel(now time.Time) int {
	if !o.IsFeaturedActive(now) {
		return 0
	}
	return o.SponsoredLevel
}

// SortForListing orders offers in place: featured-active first, then by
// effective level descending, then newest first. Ties keep input order.
func SortForListing(offers []Offer, now time.Time) {
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		fa, fb := a.IsFeaturedActive(now), b.IsFeaturedActive(now)
		if fa != fb {
			return fa
		}
		la, lb := a.EffectiveLevel(now), b.EffectiveLevel(now)
		if la != lb {
			return la > lb
		}
		if !a.CreatedAt.Time.Equal(b.CreatedAt.Time) {
			return a.CreatedAt.Time.After(b.CreatedAt.Time)
		}
		return false
	})
}

// Feature sets the sponsorship level of an offer. Admin only.
func (l *OfferLifecycle) Feature(ctx context.Context, actor Actor, offer *Offer, req FeatureRequest) (*Offer, error) {
	if err := l.checkSponsorship(OfferActionFeature, actor, offer); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, AsValidationFailure(err)
	}

	updated, err := l.backend.FeatureOffer(ctx, offer.ID, req)
	if err != nil {
		return nil, err
	}

	offer.SponsoredLevel = req.Level
	switch {
	case updated != nil && updated.FeaturedUntil.IsSet():
		offer.FeaturedUntil = updated.FeaturedUntil
	case req.Until != nil:
		offer.FeaturedUntil = *req.Until
	case req.DurationDays > 0:
		offer.FeaturedUntil = NewTimestamp(l.now().AddDate(0, 0, req.DurationDays))
	default:
		offer.FeaturedUntil = Timestamp{}
	}
	if updated != nil && updated.SponsoredLevel > 0 {
		offer.SponsoredLevel = updated.SponsoredLevel
	}

	l.record(ctx, ActivityEvent{
		EventType:  ActivityEventOfferFeatured,
		Actor:      actor.Ref,
		ResourceID: strconv.FormatInt(offer.ID, 10),
		TenantID:   offer.EntrepriseID,
		Metadata:   map[string]any{"sponsored_level": offer.SponsoredLevel},
	})
	return offer, nil
}

// Unfeature resets the sponsorship of an offer. Admin only.
func (l *OfferLifecycle) Unfeature(ctx context.Context, actor Actor, offer *Offer) (*Offer, error) {
	if err := l.checkSponsorship(OfferActionUnfeature, actor, offer); err != nil {
		return nil, err
	}
	if _, err := l.backend.UnfeatureOffer(ctx, offer.ID); err != nil {
		return nil, err
	}

	offer.SponsoredLevel = 0
	offer.FeaturedUntil = Timestamp{}

	l.record(ctx, ActivityEvent{
		EventType:  ActivityEventOfferUnfeatured,
		Actor:      actor.Ref,
		ResourceID: strconv.FormatInt(offer.ID, 10),
		TenantID:   offer.EntrepriseID,
	})
	return offer, nil
}

func (l *OfferLifecycle) checkSponsorship(action OfferAction, actor Actor, offer *Offer) error {
	if offer == nil {
		return NewKindError(ErrInvalidTransition, 0, nil, map[string]any{
			"action": string(action),
			"reason": "offer is nil",
		})
	}
	if !actor.Is(RoleAdmin) {
		return NewKindError(ErrForbidden, 0, nil, map[string]any{
			"action":        string(action),
			"entreprise_id": offer.EntrepriseID,
		})
	}
	return nil
}
