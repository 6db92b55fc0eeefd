package activitymap_test

import (
	"testing"
	"time"

	auth "github.com/islamicmasterclass/go-imc-auth"
	"github.com/islamicmasterclass/go-imc-auth/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		ID:        "evt-1",
		EventType: auth.ActivityEventPreviewStarted,
		Actor:     auth.ActorRef{ID: "7", Role: "parent"},
		UserID:    "12",
		Metadata: map[string]any{
			"child_id": "12",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "7" {
		t.Fatalf("expected actor_id 7, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventPreviewStarted) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventPreviewStarted, out.Verb)
	}
	if out.ObjectType != "user" {
		t.Fatalf("expected object_type user, got %q", out.ObjectType)
	}
	if out.ObjectID != "12" {
		t.Fatalf("expected object_id 12, got %q", out.ObjectID)
	}
	if out.Channel != "session" {
		t.Fatalf("expected channel session, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata[activitymap.MetadataKeyActorRole] != "parent" {
		t.Fatalf("expected actor_role parent, got %#v", out.Metadata[activitymap.MetadataKeyActorRole])
	}
	if out.Metadata[activitymap.MetadataKeyEventID] != "evt-1" {
		t.Fatalf("expected event_id evt-1, got %#v", out.Metadata[activitymap.MetadataKeyEventID])
	}
	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeAdminEvents(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventCourseChanged,
		Actor:     auth.ActorRef{ID: "1", Role: "admin"},
		Metadata: map[string]any{
			"course_id":                      auth.ID("42"),
			activitymap.MetadataKeyActorRole: "existing",
		},
	}

	out := activitymap.Normalize(event, activitymap.WithDefaultChannel("web"))

	if out.Channel != "admin" {
		t.Fatalf("expected channel admin, got %q", out.Channel)
	}
	if out.ObjectType != "course" {
		t.Fatalf("expected object_type course, got %q", out.ObjectType)
	}
	if out.ObjectID != "42" {
		t.Fatalf("expected object_id 42, got %q", out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyActorRole] != "existing" {
		t.Fatalf("expected existing actor_role preserved, got %#v", out.Metadata[activitymap.MetadataKeyActorRole])
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}

	login := activitymap.Normalize(auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess}, activitymap.WithDefaultChannel("web"))
	if login.Channel != "web" {
		t.Fatalf("expected channel web, got %q", login.Channel)
	}
	if login.Metadata != nil {
		t.Fatalf("expected nil metadata, got %+v", login.Metadata)
	}
}

func TestNormalizeObjectTypeOverride(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(
		auth.ActivityEvent{EventType: auth.ActivityEventUserActiveToggled, UserID: "5"},
		activitymap.WithObjectType(auth.ActivityEventUserActiveToggled, "account"),
	)
	if out.ObjectType != "account" {
		t.Fatalf("expected object_type account, got %q", out.ObjectType)
	}
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  auth.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  auth.ActivityEvent{Actor: auth.ActorRef{ID: "actor-1"}, UserID: "user-1"},
			expect: "actor-1",
		},
		{
			name:   "uses user id when actor id missing",
			event:  auth.ActivityEvent{UserID: "user-2"},
			expect: "user-2",
		},
		{
			name:   "uses default fallback when actor and user missing",
			event:  auth.ActivityEvent{},
			expect: "anonymous",
		},
		{
			name:   "uses configured fallback when actor and user missing",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("cli")},
			expect: "cli",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}
