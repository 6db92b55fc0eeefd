package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const memoryDSN = "file::memory:?cache=shared"

// OpenSQLite opens (or creates) the SQLite database at path and makes sure
// the tables exist. An empty path or ":memory:" opens a shared in-memory
// database.
func OpenSQLite(ctx context.Context, path string) (*bun.DB, error) {
	dsn := memoryDSN
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = "file:" + path
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection serializes writers, sqlite allows only one anyway
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables used by the CLI store when missing.
func Migrate(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*StorageEntryModel)(nil),
		(*ActivityRecordModel)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	_, err := db.NewCreateIndex().
		Model((*ActivityRecordModel)(nil)).
		Index("idx_activity_log_occurred_at").
		IfNotExists().
		Column("occurred_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}
