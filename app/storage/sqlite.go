package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	e "nuclight.org/tgweb/pkg/entities"
)

// ErrNotFound is returned when a journal row does not exist.
var ErrNotFound = errors.New("request not found")

// SQLite is the request journal. Every request sent to the engine gets a row which
// is completed when the request settles.
type SQLite struct {
	db *sql.DB

	// Now is the clock used for timestamps.
	Now func() time.Time
}

func NewSQLite(ctx context.Context, filePath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite3 database: %w", err)
	}

	client := &SQLite{
		db:  db,
		Now: time.Now,
	}

	err = client.init(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing sqlite3 database: %w", err)
	}

	return client, nil
}

func (c *SQLite) Close() error {
	return c.db.Close()
}

func (c *SQLite) SaveRequest(ctx context.Context, reqType string) (int64, error) {
	result, err := c.db.ExecContext(
		ctx,
		`INSERT INTO requests (type, sent_at) VALUES (?, ?)`,
		reqType, c.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return id, nil
}

func (c *SQLite) SaveResult(ctx context.Context, id int64, resultType string) error {
	result, err := c.db.ExecContext(
		ctx,
		`UPDATE requests SET settled_at = ?, result_type = ? WHERE id = ?`,
		c.Now().UnixMilli(), resultType, id,
	)
	if err != nil {
		return fmt.Errorf("updating request: %w", err)
	}

	return expectRow(result)
}

func (c *SQLite) SaveError(ctx context.Context, id int64, code int32, message string, fatal bool) error {
	result, err := c.db.ExecContext(
		ctx,
		`UPDATE requests
			SET settled_at = ?, error_code = ?, error_message = ?, fatal = ?
			WHERE id = ?`,
		c.Now().UnixMilli(), code, message, fatal, id,
	)
	if err != nil {
		return fmt.Errorf("updating request: %w", err)
	}

	return expectRow(result)
}

// ListRequests returns the latest requests, newest first.
func (c *SQLite) ListRequests(ctx context.Context, limit int) ([]e.Request, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT id, type, sent_at, settled_at, result_type, error_code, error_message, fatal
			FROM requests ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying requests: %w", err)
	}
	defer rows.Close()

	var out []e.Request
	for rows.Next() {
		var (
			r         e.Request
			sentAt    int64
			settledAt sql.NullInt64
			result    sql.NullString
			code      sql.NullInt32
			message   sql.NullString
		)

		err := rows.Scan(&r.ID, &r.Type, &sentAt, &settledAt, &result, &code, &message, &r.Fatal)
		if err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}

		r.SentAt = time.UnixMilli(sentAt)
		if settledAt.Valid {
			t := time.UnixMilli(settledAt.Int64)
			r.SettledAt = &t
		}
		if result.Valid {
			r.ResultType = &result.String
		}
		if code.Valid {
			r.ErrorCode = &code.Int32
		}
		if message.Valid {
			r.ErrorMessage = &message.String
		}

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating requests: %w", err)
	}

	return out, nil
}

// Stats aggregates the whole journal by request type, ordered by type.
func (c *SQLite) Stats(ctx context.Context) ([]e.TypeStats, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT
			type,
			COUNT(*),
			SUM(CASE WHEN settled_at IS NOT NULL AND error_message IS NULL THEN 1 ELSE 0 END),
			SUM(CASE WHEN error_message IS NOT NULL AND fatal = 0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN settled_at IS NOT NULL AND fatal = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN settled_at IS NULL THEN 1 ELSE 0 END)
		FROM requests GROUP BY type ORDER BY type`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	var out []e.TypeStats
	for rows.Next() {
		var s e.TypeStats
		if err := rows.Scan(&s.Type, &s.Total, &s.Ok, &s.Errors, &s.Fatal, &s.Pending); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stats: %w", err)
	}

	return out, nil
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

//go:embed init.sql
var initQuery string

func (c *SQLite) init(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, initQuery)
	return err
}
