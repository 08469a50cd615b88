// Package audit persists one access log record per authorized request.
package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is a single access log record. UserID is nil for anonymous requests.
type Entry struct {
	IP       string
	Action   string
	Platform string
	Request  string
	Version  int
	UserID   *int64
}

// Recorder persists audit entries and returns the generated log id.
type Recorder interface {
	Record(ctx context.Context, entry Entry) (int64, error)
}

// PgRecorder writes access logs to PostgreSQL.
type PgRecorder struct {
	pool *pgxpool.Pool
}

// NewPgRecorder constructs a PgRecorder.
func NewPgRecorder(pool *pgxpool.Pool) *PgRecorder {
	return &PgRecorder{pool: pool}
}

// Record inserts the entry into access_logs. Version is clamped to at least 1.
func (r *PgRecorder) Record(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO access_logs (ip, action, platform, request, version, user_id, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`,
		entry.IP, entry.Action, entry.Platform, entry.Request, clampVersion(entry.Version), entry.UserID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func clampVersion(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
