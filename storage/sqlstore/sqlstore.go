// Package sqlstore persists key-value entries in a SQL table through Bun.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-jobboard/storage"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var _ storage.Store = (*Store)(nil)
var _ storage.Lister = (*Store)(nil)

// EntryModel is the Bun model for a persisted entry.
type EntryModel struct {
	bun.BaseModel `bun:"table:jobboard_entries"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Store implements storage.Store using Bun.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

// New wraps an existing Bun database. Call Migrate before first use.
func New(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// OpenSQLite opens a sqlite database at dsn, creates the entries table and
// returns the store. ":memory:" is accepted for tests.
func OpenSQLite(ctx context.Context, dsn string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; a single connection also keeps an
	// in-memory database alive between calls
	sqldb.SetMaxOpenConns(1)

	s := New(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the entries table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*EntryModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var model EntryModel
	err := s.db.NewSelect().
		Model(&model).
		Where(`"key" = ?`, key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return model.Value, true, nil
}

// Set implements storage.Store.
func (s *Store) Set(ctx context.Context, key, value string) error {
	model := &EntryModel{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now(),
	}
	_, err := s.db.NewInsert().
		Model(model).
		On(`CONFLICT ("key") DO UPDATE`).
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// Delete implements storage.Store.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.NewDelete().
		Model((*EntryModel)(nil)).
		Where(`"key" IN (?)`, bun.In(keys)).
		Exec(ctx)
	return err
}

// Clear implements storage.Store.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*EntryModel)(nil)).
		Where("1 = 1").
		Exec(ctx)
	return err
}

// Keys implements storage.Lister.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.NewSelect().
		Model((*EntryModel)(nil)).
		Column("key").
		OrderExpr(`"key" ASC`).
		Scan(ctx, &keys)
	if err != nil {
		return nil, err
	}
	return keys, nil
}
