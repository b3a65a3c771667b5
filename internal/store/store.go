// Package store persists site options and transients in SQLite.
//
// Options are named JSON values that live until they are replaced or
// deleted (subscriber lists, for example). Transients are JSON values with an
// expiry; reads treat expired rows as missing and delete them on the way.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"recruitpro/internal/store/migrations"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Delete operations when nothing matched.
var ErrNotFound = errors.New("not found")

// Store provides SQLite-backed option and transient storage.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens and migrates the store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time keeps read-modify-write option updates serial
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logrus.WithField("path", path).Info("Site store opened")
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SetClock overrides the time source used for transient expiry.
func (s *Store) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// GetOption decodes the named option into dst. It reports false when the
// option does not exist.
func (s *Store) GetOption(ctx context.Context, name string, dst any) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	name, err := cleanKey("option name", name)
	if err != nil {
		return false, err
	}

	var raw []byte
	err = s.sqlDB.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get option %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode option %s: %w", name, err)
	}
	return true, nil
}

// UpdateOption stores value under name, replacing any previous value.
func (s *Store) UpdateOption(ctx context.Context, name string, value any) error {
	if err := s.ready(); err != nil {
		return err
	}
	name, err := cleanKey("option name", name)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode option %s: %w", name, err)
	}
	if err := upsertOption(ctx, s.sqlDB, name, payload, s.now()); err != nil {
		return err
	}
	return nil
}

// UpdateOptionFunc reads the current raw value of name (nil when missing),
// passes it to fn and stores whatever fn returns, all inside one
// transaction. When fn returns an error nothing is written and the error is
// returned unchanged.
func (s *Store) UpdateOptionFunc(ctx context.Context, name string, fn func(current []byte) (any, error)) error {
	if err := s.ready(); err != nil {
		return err
	}
	name, err := cleanKey("option name", name)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin option update %s: %w", name, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current []byte
	err = tx.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read option %s: %w", name, err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode option %s: %w", name, err)
	}
	if err := upsertOption(ctx, tx, name, payload, s.now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit option update %s: %w", name, err)
	}
	return nil
}

// DeleteOption removes the named option.
func (s *Store) DeleteOption(ctx context.Context, name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	name, err := cleanKey("option name", name)
	if err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM options WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete option %s: %w", name, err)
	}
	return affectedOrNotFound(res)
}

// GetTransient decodes a live transient into dst. Missing and expired
// transients both report false.
func (s *Store) GetTransient(ctx context.Context, key string, dst any) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	key, err := cleanKey("transient key", key)
	if err != nil {
		return false, err
	}

	var raw []byte
	var expiresAt int64
	err = s.sqlDB.QueryRowContext(ctx, `SELECT value, expires_at FROM transients WHERE key = ?`, key).Scan(&raw, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get transient %s: %w", key, err)
	}

	if expiresAt <= s.now().UTC().UnixMilli() {
		if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM transients WHERE key = ? AND expires_at = ?`, key, expiresAt); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to delete expired transient")
		}
		return false, nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode transient %s: %w", key, err)
	}
	return true, nil
}

// SetTransient stores value under key for ttl.
func (s *Store) SetTransient(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := s.ready(); err != nil {
		return err
	}
	key, err := cleanKey("transient key", key)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return fmt.Errorf("transient ttl must be positive")
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode transient %s: %w", key, err)
	}

	expiresAt := s.now().UTC().Add(ttl).UnixMilli()
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO transients (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		    value = excluded.value,
		    expires_at = excluded.expires_at`,
		key,
		payload,
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("set transient %s: %w", key, err)
	}
	return nil
}

// DeleteTransient removes a transient.
func (s *Store) DeleteTransient(ctx context.Context, key string) error {
	if err := s.ready(); err != nil {
		return err
	}
	key, err := cleanKey("transient key", key)
	if err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM transients WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete transient %s: %w", key, err)
	}
	return affectedOrNotFound(res)
}

// PurgeExpiredTransients deletes every expired transient and returns how
// many rows went.
func (s *Store) PurgeExpiredTransients(ctx context.Context) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM transients WHERE expires_at <= ?`, s.now().UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge transients: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge transients: %w", err)
	}
	return n, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertOption(ctx context.Context, db execer, name string, payload []byte, now time.Time) error {
	_, err := db.ExecContext(
		ctx,
		`INSERT INTO options (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		    value = excluded.value,
		    updated_at = excluded.updated_at`,
		name,
		payload,
		now.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("update option %s: %w", name, err)
	}
	return nil
}

func (s *Store) ready() error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func cleanKey(what, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return value, nil
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
