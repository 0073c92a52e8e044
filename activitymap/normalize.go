// Package activitymap flattens jobboard activity events into a transport
// agnostic record for audit logs and downstream consumers.
package activitymap

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-jobboard"
)

const (
	// MetadataKeyActorType stores the actor type derived from jobboard.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyFromStatus stores the source status of a transition.
	MetadataKeyFromStatus = "from_status"
	// MetadataKeyToStatus stores the target status of a transition.
	MetadataKeyToStatus = "to_status"
	// MetadataKeyTenantID stores the organization the action was scoped to.
	MetadataKeyTenantID = "entreprise_id"
)

const (
	defaultChannel = "jobboard"
	defaultActorID = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	actorFallback string
	now           func() time.Time
}

// Normalize converts a jobboard.ActivityEvent into a Normalized record. The
// object type is the first segment of the event type: "offer" for
// "offer.status.changed", "tenant" for "tenant.selected".
func Normalize(event jobboard.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.Actor.ID), options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: objectType(event.EventType),
		ObjectID:   objectID(event),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel of normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback sets the actor id used when the event carries none.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the time source for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// ZapSink returns an ActivitySink writing one structured entry per event.
func ZapSink(logger *zap.Logger, opts ...Option) jobboard.ActivitySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return jobboard.ActivitySinkFunc(func(_ context.Context, event jobboard.ActivityEvent) error {
		n := Normalize(event, opts...)
		fields := []zap.Field{
			zap.String("actor_id", n.ActorID),
			zap.String("object_type", n.ObjectType),
			zap.String("object_id", n.ObjectID),
			zap.String("channel", n.Channel),
			zap.Time("occurred_at", n.OccurredAt),
		}
		if len(n.Metadata) > 0 {
			fields = append(fields, zap.Any("metadata", n.Metadata))
		}
		logger.Info(n.Verb, fields...)
		return nil
	})
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func objectType(t jobboard.ActivityEventType) string {
	s := string(t)
	if i := strings.IndexByte(s, '.'); i > 0 {
		s = s[:i]
	}
	if s == "auth" {
		return "session"
	}
	return s
}

func objectID(event jobboard.ActivityEvent) string {
	if id := strings.TrimSpace(event.ResourceID); id != "" {
		return id
	}
	if event.EventType == jobboard.ActivityEventTenantSelected && event.TenantID != 0 {
		return strconv.FormatInt(event.TenantID, 10)
	}
	return ""
}

func normalizeMetadata(event jobboard.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if _, exists := metadata[MetadataKeyActorType]; !exists {
			set(MetadataKeyActorType, actorType)
		}
	}
	if event.FromStatus != "" {
		set(MetadataKeyFromStatus, event.FromStatus)
	}
	if event.ToStatus != "" {
		set(MetadataKeyToStatus, event.ToStatus)
	}
	if event.TenantID != 0 {
		set(MetadataKeyTenantID, event.TenantID)
	}
	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
