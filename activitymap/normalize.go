package activitymap

import (
	"fmt"
	"maps"
	"strings"
	"time"

	auth "github.com/islamicmasterclass/go-imc-auth"
)

const (
	// MetadataKeyActorRole stores the role of the session that acted.
	MetadataKeyActorRole = "actor_role"
	// MetadataKeyEventID keeps the original event id.
	MetadataKeyEventID = "event_id"
)

const (
	defaultChannel = "session"
	defaultActorID = "anonymous"
)

// Normalized is the flat record shape persisted by the activity log and
// printed by the CLI.
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
	objectTypes   map[auth.ActivityEventType]string
}

// Normalize converts an auth.ActivityEvent into a Normalized record.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.Actor.ID),
			strings.TrimSpace(event.UserID),
			options.actorFallback,
		),
		Verb:       string(event.EventType),
		ObjectType: objectType(event.EventType, options.objectTypes),
		ObjectID:   objectID(event),
		Channel:    channelFor(event.EventType, options.channel),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel used for non admin events.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback sets the actor id used when neither the actor nor the
// subject user is known, for example a failed login.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithObjectType overrides the object type recorded for one event type.
func WithObjectType(kind auth.ActivityEventType, objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectTypes[kind] = strings.TrimSpace(objectType)
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		objectTypes: map[auth.ActivityEventType]string{
			auth.ActivityEventCourseChanged:  "course",
			auth.ActivityEventChapterCreated: "chapter",
		},
	}
}

func objectType(kind auth.ActivityEventType, overrides map[auth.ActivityEventType]string) string {
	if v, ok := overrides[kind]; ok {
		return v
	}
	return "user"
}

// objectID prefers an explicit id in the metadata (course_id, chapter_id)
// over the subject user.
func objectID(event auth.ActivityEvent) string {
	for _, key := range []string{"course_id", "chapter_id"} {
		if v, ok := event.Metadata[key]; ok {
			if s := strings.TrimSpace(toString(v)); s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(event.UserID)
}

func channelFor(kind auth.ActivityEventType, fallback string) string {
	if strings.HasPrefix(string(kind), "admin.") {
		return "admin"
	}
	return fallback
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := maps.Clone(event.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	if role := strings.TrimSpace(event.Actor.Role); role != "" {
		if _, exists := metadata[MetadataKeyActorRole]; !exists {
			metadata[MetadataKeyActorRole] = role
		}
	}
	if event.ID != "" {
		metadata[MetadataKeyEventID] = event.ID
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
