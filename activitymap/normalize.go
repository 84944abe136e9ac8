// Package activitymap turns dashboard auth events into a flat record that
// log shippers and audit stores can index.
package activitymap

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-dashboard"
)

const (
	// MetadataKeyEmail stores the email the event was about
	MetadataKeyEmail = "email"
	// MetadataKeyOutcome is "success" or "failure"
	MetadataKeyOutcome = "outcome"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
)

// Normalized is a transport agnostic activity record
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
	redactEmail   bool
	now           func() time.Time
}

// Normalize converts a dashboard.ActivityEvent into a Normalized record.
// Events without a user id are attributed to the actor fallback and keep
// the email as the object id so failed sign ins stay traceable.
func Normalize(event dashboard.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	userID := strings.TrimSpace(event.UserID)
	email := strings.TrimSpace(event.Email)
	if options.redactEmail {
		email = RedactEmail(email)
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now()
	}

	return Normalized{
		ActorID:    firstNonEmpty(userID, options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   firstNonEmpty(userID, email),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event, email),
		OccurredAt: occurredAt.UTC(),
	}
}

// Sink adapts fn into a dashboard.ActivitySink that receives normalized
// records
func Sink(fn func(context.Context, Normalized) error, opts ...Option) dashboard.ActivitySink {
	return dashboard.ActivitySinkFunc(func(ctx context.Context, event dashboard.ActivityEvent) error {
		return fn(ctx, Normalize(event, opts...))
	})
}

// WithDefaultChannel sets the channel of normalized records
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type of normalized records
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used for anonymous events
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithRedactedEmail masks the local part of email addresses
func WithRedactedEmail(enabled bool) Option {
	return func(opts *normalizeOptions) {
		opts.redactEmail = enabled
	}
}

// WithClock sets the time used for events without a timestamp
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// RedactEmail keeps the first character of the local part and the domain
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	return email[:1] + "***" + email[at:]
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func normalizeMetadata(event dashboard.ActivityEvent, email string) map[string]any {
	metadata := make(map[string]any, len(event.Metadata)+2)
	maps.Copy(metadata, event.Metadata)

	if email != "" {
		if _, exists := metadata[MetadataKeyEmail]; !exists {
			metadata[MetadataKeyEmail] = email
		}
	}

	metadata[MetadataKeyOutcome] = OutcomeFailure
	if event.Success {
		metadata[MetadataKeyOutcome] = OutcomeSuccess
	}

	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
