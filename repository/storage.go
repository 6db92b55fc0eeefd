package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// StorageEntryModel is the Bun model for one stored key.
type StorageEntryModel struct {
	bun.BaseModel `bun:"table:storage_entries"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// StorageRepository implements auth.Storage on top of a SQL table so the
// CLI session survives restarts.
type StorageRepository struct {
	db bun.IDB
}

// NewStorageRepository creates a new repository.
func NewStorageRepository(db bun.IDB) *StorageRepository {
	return &StorageRepository{db: db}
}

// Get implements auth.Storage.
func (r *StorageRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var model StorageEntryModel
	err := r.db.NewSelect().
		Model(&model).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return model.Value, true, nil
}

// Set implements auth.Storage.
func (r *StorageRepository) Set(ctx context.Context, key, value string) error {
	model := &StorageEntryModel{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// Delete implements auth.Storage.
func (r *StorageRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.NewDelete().
		Model((*StorageEntryModel)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

// Keys lists every stored key, oldest write first.
func (r *StorageRepository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.NewSelect().
		Model((*StorageEntryModel)(nil)).
		Column("key").
		Order("updated_at ASC", "key ASC").
		Scan(ctx, &keys)
	if err != nil {
		return nil, err
	}
	return keys, nil
}
