// Package storage keeps a local history of share links, the CLI's counterpart of the
// browser history that share tokens are pushed into.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"fire/internal/codec"

	_ "modernc.org/sqlite"
)

// Entry is one pushed share link.
type Entry struct {
	ID        int64
	Token     string
	Codec     string
	URL       string
	CreatedAt time.Time
}

// History stores pushed tokens in SQLite. The newest entry is the current location.
type History struct {
	db    *sql.DB
	base  *url.URL
	param string
}

// OpenHistory opens (creating if needed) the database at dbPath. Links are built from
// pageURL with the token in query parameter param.
func OpenHistory(dbPath, pageURL, param string) (*History, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := upgradeSchema(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Share history ready", "component", "storage", "path", dbPath, "schema_version", version)

	return &History{db: db, base: base, param: param}, nil
}

func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// Link builds the share URL for token.
func (h *History) Link(token string) string {
	u := *h.base
	q := u.Query()
	q.Set(h.param, token)
	u.RawQuery = q.Encode()
	return u.String()
}

// Current implements autosave.Location.
func (h *History) Current(ctx context.Context) (string, bool, error) {
	var token string
	err := h.db.QueryRowContext(ctx,
		`SELECT token FROM share_history ORDER BY id DESC LIMIT 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read current token: %w", err)
	}
	return token, true, nil
}

// Push implements autosave.Location.
func (h *History) Push(ctx context.Context, token string) error {
	name, _ := codec.FormatOf(token)
	link := h.Link(token)
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO share_history (token, codec, url, created_at) VALUES (?, ?, ?, ?)`,
		token, name, link, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert share history: %w", err)
	}
	id, _ := res.LastInsertId()
	slog.DebugContext(ctx, "Share link recorded", "component", "storage", "id", id, "codec", name)
	return nil
}

// Navigate records the token found in rawURL as the current location, the way opening a
// share link would. It reports whether the URL carried a token.
func (h *History) Navigate(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse share url: %w", err)
	}
	token := u.Query().Get(h.param)
	if token == "" {
		return false, nil
	}
	if err := h.Push(ctx, token); err != nil {
		return false, err
	}
	return true, nil
}

// List returns up to limit entries, newest first.
func (h *History) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, token, codec, url, created_at FROM share_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list share history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Token, &e.Codec, &e.URL, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan share history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate share history: %w", err)
	}
	return entries, nil
}
