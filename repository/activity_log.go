package repository

import (
	"context"
	"time"

	auth "github.com/islamicmasterclass/go-imc-auth"
	"github.com/islamicmasterclass/go-imc-auth/activitymap"
	"github.com/uptrace/bun"
)

// ActivityRecordModel is the Bun model for a persisted activity event.
type ActivityRecordModel struct {
	bun.BaseModel `bun:"table:activity_log"`

	ID         int64          `bun:"id,pk,autoincrement"`
	ActorID    string         `bun:"actor_id,notnull"`
	Verb       string         `bun:"verb,notnull"`
	ObjectType string         `bun:"object_type"`
	ObjectID   string         `bun:"object_id"`
	Channel    string         `bun:"channel"`
	Metadata   map[string]any `bun:"metadata,type:json"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
}

// ActivityLog is an auth.ActivitySink that stores normalized events.
type ActivityLog struct {
	db   bun.IDB
	opts []activitymap.Option
}

// NewActivityLog creates a new activity log, opts are passed to
// activitymap.Normalize for every event.
func NewActivityLog(db bun.IDB, opts ...activitymap.Option) *ActivityLog {
	return &ActivityLog{db: db, opts: opts}
}

// Record implements auth.ActivitySink.
func (l *ActivityLog) Record(ctx context.Context, event auth.ActivityEvent) error {
	model := fromNormalized(activitymap.Normalize(event, l.opts...))
	_, err := l.db.NewInsert().Model(model).Exec(ctx)
	return err
}

// Recent returns up to limit records, newest first.
func (l *ActivityLog) Recent(ctx context.Context, limit int) ([]activitymap.Normalized, error) {
	if limit <= 0 {
		limit = 20
	}

	var models []ActivityRecordModel
	err := l.db.NewSelect().
		Model(&models).
		Order("occurred_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]activitymap.Normalized, len(models))
	for i := range models {
		out[i] = toNormalized(&models[i])
	}
	return out, nil
}

func fromNormalized(n activitymap.Normalized) *ActivityRecordModel {
	return &ActivityRecordModel{
		ActorID:    n.ActorID,
		Verb:       n.Verb,
		ObjectType: n.ObjectType,
		ObjectID:   n.ObjectID,
		Channel:    n.Channel,
		Metadata:   n.Metadata,
		OccurredAt: n.OccurredAt.UTC(),
	}
}

func toNormalized(m *ActivityRecordModel) activitymap.Normalized {
	return activitymap.Normalized{
		ActorID:    m.ActorID,
		Verb:       m.Verb,
		ObjectType: m.ObjectType,
		ObjectID:   m.ObjectID,
		Channel:    m.Channel,
		Metadata:   m.Metadata,
		OccurredAt: m.OccurredAt,
	}
}
