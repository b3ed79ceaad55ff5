// Package sqlite provides a local SQLite-backed index callback and
// failure sink so a crawl is runnable end to end without an external
// search backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"github.com/custodia-labs/m365-crawler/internal/crawler"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	url            TEXT PRIMARY KEY,
	title          TEXT NOT NULL DEFAULT '',
	content        TEXT NOT NULL DEFAULT '',
	mimetype       TEXT NOT NULL DEFAULT '',
	filetype       TEXT NOT NULL DEFAULT '',
	created        TEXT NOT NULL DEFAULT '',
	last_modified  TEXT NOT NULL DEFAULT '',
	content_length INTEGER NOT NULL DEFAULT 0,
	roles          TEXT NOT NULL DEFAULT '[]',
	sender         TEXT NOT NULL DEFAULT '',
	parent_id      TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	stored_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS failures (
	url         TEXT NOT NULL,
	cause       TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL
);
`

// Store is a crawler callback and failure sink over one SQLite file.
// Writes are serialised on a single connection; SQLite does the rest.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open creates or opens the index database at path and ensures the
// schema exists.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?%s", path, url.Values{
		"_pragma": []string{"busy_timeout(5000)", "journal_mode(WAL)"},
	}.Encode())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise index schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Store upserts one crawled document keyed by URL.
func (s *Store) Store(ctx context.Context, doc crawler.Document) error {
	rolesJSON, err := json.Marshal(docRoles(doc))
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents
			(url, title, content, mimetype, filetype, created, last_modified,
			 content_length, roles, sender, parent_id, description, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title          = excluded.title,
			content        = excluded.content,
			mimetype       = excluded.mimetype,
			filetype       = excluded.filetype,
			created        = excluded.created,
			last_modified  = excluded.last_modified,
			content_length = excluded.content_length,
			roles          = excluded.roles,
			sender         = excluded.sender,
			parent_id      = excluded.parent_id,
			description    = excluded.description,
			stored_at      = excluded.stored_at`,
		str(doc, crawler.FieldURL),
		str(doc, crawler.FieldTitle),
		str(doc, crawler.FieldContent),
		str(doc, crawler.FieldMimetype),
		str(doc, crawler.FieldFiletype),
		str(doc, crawler.FieldCreated),
		str(doc, crawler.FieldModified),
		num(doc, crawler.FieldSize),
		string(rolesJSON),
		str(doc, crawler.FieldSender),
		str(doc, crawler.FieldParentID),
		str(doc, crawler.FieldDescription),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	return nil
}

// Record appends one failure record. Recording must never fail a crawl,
// so errors are logged and swallowed.
func (s *Store) Record(ctx context.Context, url, cause string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	_, dbErr := s.db.ExecContext(ctx,
		`INSERT INTO failures (url, cause, error, recorded_at) VALUES (?, ?, ?, ?)`,
		url, cause, msg, time.Now().UTC().Format(time.RFC3339))
	if dbErr != nil {
		s.log.Error("failed to record crawl failure", "url", url, "error", dbErr)
	}
}

// DocumentCount returns the number of stored documents.
func (s *Store) DocumentCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// FailureCount returns the number of recorded failures.
func (s *Store) FailureCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM failures`).Scan(&n)
	return n, err
}

func docRoles(doc crawler.Document) []string {
	if r, ok := doc[crawler.FieldRoles].([]string); ok && r != nil {
		return r
	}
	return []string{}
}

func str(doc crawler.Document, field string) string {
	if v, ok := doc[field].(string); ok {
		return v
	}
	return ""
}

func num(doc crawler.Document, field string) int64 {
	if v, ok := doc[field].(int64); ok {
		return v
	}
	return 0
}
