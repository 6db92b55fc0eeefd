package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventSignup            ActivityEventType = "auth.signup.success"
	ActivityEventOAuthLogin        ActivityEventType = "auth.oauth.login"
	ActivityEventLogout            ActivityEventType = "auth.logout"
	ActivityEventPreviewStarted    ActivityEventType = "auth.preview.started"
	ActivityEventPreviewFailure    ActivityEventType = "auth.preview.failure"
	ActivityEventPreviewEnded      ActivityEventType = "auth.preview.ended"
	ActivityEventUserActiveToggled ActivityEventType = "admin.user.active_toggled"
	ActivityEventCourseChanged     ActivityEventType = "admin.course.changed"
	ActivityEventChapterCreated    ActivityEventType = "admin.chapter.created"
)

// ActorRef identifies who triggered an event.
type ActorRef struct {
	ID   string
	Role string
}

// ActivityEvent captures audit-friendly information about an action.
// UserID is the account the action is about, it differs from the actor
// when a parent previews a child.
type ActivityEvent struct {
	ID         string
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// NewActivityEvent stamps an event with an id and the current time
func NewActivityEvent(kind ActivityEventType, actor ActorRef, userID string, metadata map[string]any) ActivityEvent {
	return ActivityEvent{
		ID:         uuid.NewString(),
		EventType:  kind,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	}
}

// ActorFromSession describes the owner of a session
func ActorFromSession(session Session) ActorRef {
	ref := ActorRef{Role: session.Role()}
	if claims := session.Claims(); claims != nil {
		ref.ID = claims.UserID()
	}
	if ref.ID == "" && session.User != nil {
		ref.ID = session.User.UserID.String()
	}
	return ref
}

// emitActivity records an event, failures are only logged.
func emitActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if err := sink.Record(ctx, event); err != nil {
		logger.Error("failed to record activity %s: %v", event.EventType, err)
	}
}
