package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresAdminStore persists back-office accounts.
type PostgresAdminStore struct {
	pool DBPool
}

func NewPostgresAdminStore(pool DBPool) *PostgresAdminStore {
	return &PostgresAdminStore{pool: pool}
}

func (s *PostgresAdminStore) FindByEmail(ctx context.Context, email string) (Admin, error) {
	var a Admin
	row := s.pool.QueryRow(ctx, `SELECT id, forename, email, password_hash FROM admins WHERE email=$1`, email)
	if err := row.Scan(&a.ID, &a.Forename, &a.Email, &a.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Admin{}, ErrAdminNotFound
		}
		return Admin{}, fmt.Errorf("select admin: %w", err)
	}
	return a, nil
}

func (s *PostgresAdminStore) Create(ctx context.Context, a Admin) (Admin, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO admins (forename, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`, a.Forename, a.Email, a.PasswordHash)
	if err := row.Scan(&a.ID); err != nil {
		return Admin{}, fmt.Errorf("insert admin: %w", err)
	}
	return a, nil
}

// PostgresWindowStore keeps at most one attempt window per (admin, source
// address) pair; the primary key enforces it and single-statement upserts
// keep concurrent increments from losing updates.
type PostgresWindowStore struct {
	pool DBPool
}

func NewPostgresWindowStore(pool DBPool) *PostgresWindowStore {
	return &PostgresWindowStore{pool: pool}
}

func (s *PostgresWindowStore) Current(ctx context.Context, adminID int64, sourceAddr string, oldest time.Time) (Window, bool, error) {
	var w Window
	row := s.pool.QueryRow(ctx, `
		SELECT admin_id, source_addr, window_start, attempts
		FROM login_windows
		WHERE admin_id=$1 AND source_addr=$2 AND window_start >= $3
	`, adminID, sourceAddr, oldest)
	if err := row.Scan(&w.AdminID, &w.SourceAddr, &w.WindowStart, &w.Attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Window{}, false, nil
		}
		return Window{}, false, fmt.Errorf("select window: %w", err)
	}
	return w, true, nil
}

func (s *PostgresWindowStore) RecordFailure(ctx context.Context, adminID int64, sourceAddr string, now, oldest time.Time) (int, error) {
	// One statement: a stored but stale window is overwritten with a fresh
	// one, a current window is incremented.
	var attempts int
	row := s.pool.QueryRow(ctx, `
		INSERT INTO login_windows (admin_id, source_addr, window_start, attempts)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (admin_id, source_addr) DO UPDATE SET
			attempts = CASE WHEN login_windows.window_start >= $4 THEN login_windows.attempts + 1 ELSE 1 END,
			window_start = CASE WHEN login_windows.window_start >= $4 THEN login_windows.window_start ELSE $3 END
		RETURNING attempts
	`, adminID, sourceAddr, now, oldest)
	if err := row.Scan(&attempts); err != nil {
		return 0, fmt.Errorf("record failure: %w", err)
	}
	return attempts, nil
}

func (s *PostgresWindowStore) ResetAttempts(ctx context.Context, adminID int64, sourceAddr string, oldest time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE login_windows
		SET attempts = 0
		WHERE admin_id=$1 AND source_addr=$2 AND window_start >= $3
	`, adminID, sourceAddr, oldest)
	if err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

func (s *PostgresWindowStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM login_windows WHERE window_start < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge windows: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PostgresAuditStore appends login events; rows are never updated or
// deleted.
type PostgresAuditStore struct {
	pool DBPool
}

func NewPostgresAuditStore(pool DBPool) *PostgresAuditStore {
	return &PostgresAuditStore{pool: pool}
}

func (s *PostgresAuditStore) Record(ctx context.Context, e Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO login_events (admin_id, ts, source_addr, outcome, severity)
		VALUES ($1, $2, $3, $4, $5)
	`, e.AdminID, e.Timestamp, e.SourceAddr, e.Outcome, e.Severity)
	if err != nil {
		return fmt.Errorf("insert login event: %w", err)
	}
	return nil
}

// RecentEvents lists audit events since a cutoff, newest first, for the
// back-office dashboard.
func (s *PostgresAuditStore) RecentEvents(ctx context.Context, since time.Time) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT admin_id, ts, source_addr, outcome, severity
		FROM login_events
		WHERE ts >= $1
		ORDER BY ts DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("select login events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.AdminID, &e.Timestamp, &e.SourceAddr, &e.Outcome, &e.Severity); err != nil {
			return nil, fmt.Errorf("scan login event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return events, nil
}
