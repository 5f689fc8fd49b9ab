package sys

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the bot's SQLite file. Application state lives in whole-document
// collections; every read returns the entire collection and every write
// replaces it.
type Database struct {
	db *sql.DB
}

// --- Connection & Lifecycle ---

func OpenDatabase(ctx context.Context, path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// A single connection keeps the pragmas below in effect and serializes
	// every collection transaction.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := db.ExecContext(initCtx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, q := range tableQueries {
		if _, err := db.ExecContext(initCtx, q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// --- Collections ---

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func loadCollection(ctx context.Context, q queryer, name string, v any) error {
	var body string
	err := q.QueryRowContext(ctx, "SELECT body FROM collections WHERE name = ?", name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read collection %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode collection %s: %w", name, err)
	}
	return nil
}

func saveCollection(ctx context.Context, q queryer, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", name, err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO collections (name, body) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`, name, string(body))
	if err != nil {
		return fmt.Errorf("write collection %s: %w", name, err)
	}
	return nil
}

// LoadCollection decodes the whole named collection into v. A collection that
// was never written leaves v untouched.
func (d *Database) LoadCollection(ctx context.Context, name string, v any) error {
	return loadCollection(ctx, d.db, name, v)
}

// UpdateCollection reads the named collection into a fresh T, lets fn modify
// it and writes it back, all in one transaction. Returning an error from fn
// aborts without writing.
func UpdateCollection[T any](ctx context.Context, d *Database, name string, fn func(*T) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s update: %w", name, err)
	}
	defer tx.Rollback()

	var value T
	if err := loadCollection(ctx, tx, name, &value); err != nil {
		return err
	}
	if err := fn(&value); err != nil {
		return err
	}
	if err := saveCollection(ctx, tx, name, &value); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s update: %w", name, err)
	}
	return nil
}

// --- Bot Bookkeeping ---

func (d *Database) GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (d *Database) SetBotConfig(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}
