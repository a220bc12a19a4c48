// Package sqlite persists song requests in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/osa030/vibeq/internal/domain/request"
)

const schema = `
CREATE TABLE IF NOT EXISTS requests (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	artist      TEXT NOT NULL,
	artwork_url TEXT NOT NULL DEFAULT '',
	track_ref   TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	explicit    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	ord         INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
`

// RequestRepo stores requests in SQLite.
type RequestRepo struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*RequestRepo, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return &RequestRepo{db: db}, nil
}

// Close closes the database connection.
func (r *RequestRepo) Close() error {
	return r.db.Close()
}

// LoadAll returns every persisted request.
func (r *RequestRepo) LoadAll(ctx context.Context) ([]request.Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, artist, artwork_url, track_ref, duration_ms, explicit, status, ord, created_at
		FROM requests ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query requests")
	}
	defer rows.Close()

	var result []request.Request
	for rows.Next() {
		var (
			req        request.Request
			durationMs int64
			explicit   int
			status     string
			createdAt  time.Time
		)
		if err := rows.Scan(&req.ID, &req.Title, &req.Artist, &req.ArtworkURL, &req.TrackRef,
			&durationMs, &explicit, &status, &req.Order, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan request row")
		}
		req.Duration = time.Duration(durationMs) * time.Millisecond
		req.Explicit = explicit != 0
		req.Status = request.Status(status)
		req.CreatedAt = createdAt
		if !req.Status.Valid() {
			return nil, errors.Newf("invalid status in database: id=%s status=%s", req.ID, status)
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

// Save inserts or updates a request.
func (r *RequestRepo) Save(ctx context.Context, req request.Request) error {
	explicit := 0
	if req.Explicit {
		explicit = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO requests
		(id, title, artist, artwork_url, track_ref, duration_ms, explicit, status, ord, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.Title, req.Artist, req.ArtworkURL, req.TrackRef,
		req.Duration.Milliseconds(), explicit, string(req.Status), req.Order, req.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "failed to save request %s", req.ID)
	}
	return nil
}

// DeleteAll removes every persisted request.
func (r *RequestRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM requests`); err != nil {
		return errors.Wrap(err, "failed to delete requests")
	}
	return nil
}
