package asset

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/dialogue/db"
	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/logger"
)

// Record is the stored metadata of an asset.
type Record struct {
	Handle    Handle    `json:"handle"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SQLiteStore persists assets in the dialogue_assets table. Get is served
// from an in-memory cache filled by Save, Load and LoadAll, so runners never
// touch the database.
type SQLiteStore struct {
	db    *sql.DB
	cache *MemoryStore
	log   *zap.SugaredLogger
}

// NewSQLiteStore creates a store over a migrated database.
func NewSQLiteStore(db *sql.DB, log *zap.SugaredLogger) *SQLiteStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SQLiteStore{db: db, cache: NewMemoryStore(), log: log}
}

func (s *SQLiteStore) Get(h Handle) (*Asset, bool) {
	return s.cache.Get(h)
}

// Save creates or updates the asset stored under h and caches it.
func (s *SQLiteStore) Save(ctx context.Context, h Handle, a *Asset) error {
	doc, err := a.MarshalJSON()
	if err != nil {
		return errors.Wrapf(err, "failed to encode asset %s", h)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := `
		INSERT INTO dialogue_assets (handle, name, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			name = excluded.name,
			document = excluded.document,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, string(h), a.Name(), string(doc), now, now); err != nil {
		return storeError(err, "failed to save asset %s", h)
	}

	s.cache.Put(h, a)
	s.log.Debugw("Saved dialogue asset", logger.FieldAsset, h, logger.FieldName, a.Name())
	return nil
}

// Load reads the asset stored under h, caches it and returns it.
func (s *SQLiteStore) Load(ctx context.Context, h Handle) (*Asset, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM dialogue_assets WHERE handle = ?`, string(h)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrAssetNotFound, "asset %s", h)
	}
	if err != nil {
		return nil, storeError(err, "failed to load asset %s", h)
	}

	a, err := Parse([]byte(doc))
	if err != nil {
		return nil, errors.Wrapf(err, "asset %s", h)
	}

	s.cache.Put(h, a)
	return a, nil
}

// LoadAll caches every stored asset and returns how many were loaded.
// Documents that fail to decode are logged and skipped.
func (s *SQLiteStore) LoadAll(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT handle, document FROM dialogue_assets ORDER BY created_at ASC`)
	if err != nil {
		return 0, storeError(err, "failed to list assets")
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var h, doc string
		if err := rows.Scan(&h, &doc); err != nil {
			return loaded, errors.Wrap(err, "failed to scan asset")
		}
		a, err := Parse([]byte(doc))
		if err != nil {
			s.log.Warnw("Skipping undecodable dialogue asset", logger.FieldAsset, h, logger.FieldError, err)
			continue
		}
		s.cache.Put(Handle(h), a)
		loaded++
	}
	if err := rows.Err(); err != nil {
		return loaded, errors.Wrap(err, "failed to iterate assets")
	}

	s.log.Infow("Loaded dialogue assets", logger.FieldCount, loaded)
	return loaded, nil
}

// List returns stored asset metadata, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT handle, name, created_at, updated_at FROM dialogue_assets ORDER BY created_at ASC`)
	if err != nil {
		return nil, storeError(err, "failed to list assets")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var h, createdAt, updatedAt string
		if err := rows.Scan(&h, &r.Name, &createdAt, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan asset")
		}
		r.Handle = Handle(h)
		var err error
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, errors.Wrapf(err, "invalid created_at for asset %s", h)
		}
		if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, errors.Wrapf(err, "invalid updated_at for asset %s", h)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate assets")
	}
	return records, nil
}

// Delete removes h from the database and the cache.
func (s *SQLiteStore) Delete(ctx context.Context, h Handle) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM dialogue_assets WHERE handle = ?`, string(h))
	if err != nil {
		return storeError(err, "failed to delete asset %s", h)
	}

	s.cache.Remove(h)

	n, _ := result.RowsAffected()
	if n == 0 {
		return errors.Wrapf(ErrAssetNotFound, "asset %s", h)
	}
	return nil
}

// storeError wraps a database failure. A closed database is reported as
// db.ErrDatabaseClosed so callers shutting down can tell it apart.
func storeError(err error, format string, args ...interface{}) error {
	if db.IsDatabaseClosed(err) && !errors.Is(err, db.ErrDatabaseClosed) {
		return errors.WithDetail(errors.Wrapf(db.ErrDatabaseClosed, format, args...), err.Error())
	}
	return errors.Wrapf(err, format, args...)
}
