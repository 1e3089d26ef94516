package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/slimecraft/shop/internal/validate"
)

// Defaults for the brute-force protection policy.
const (
	DefaultWindowLength  = 10 * time.Minute
	DefaultLockThreshold = 5
)

// AdminStore looks up and creates back-office accounts.
type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (Admin, error)
	Create(ctx context.Context, a Admin) (Admin, error)
}

// WindowStore tracks failed-attempt windows per (admin, source address)
// pair. Mutations must be atomic with respect to concurrent attempts on the
// same key.
type WindowStore interface {
	// Current returns the window for the key whose start is not before
	// oldest, if one exists.
	Current(ctx context.Context, adminID int64, sourceAddr string, oldest time.Time) (Window, bool, error)
	// RecordFailure increments a current window or opens a fresh one with a
	// single attempt, atomically, and returns the resulting attempt count.
	RecordFailure(ctx context.Context, adminID int64, sourceAddr string, now, oldest time.Time) (int, error)
	// ResetAttempts zeroes the attempt count of a current window; when no
	// current window exists nothing is recorded.
	ResetAttempts(ctx context.Context, adminID int64, sourceAddr string, oldest time.Time) error
	// PurgeBefore deletes windows whose start predates cutoff and reports
	// how many were removed. Retention is the operator's decision; nothing
	// purges implicitly.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditSink receives immutable login events. Recording must never block or
// fail the authentication decision; the guard logs and drops sink errors.
type AuditSink interface {
	Record(ctx context.Context, e Event) error
}

// Guard decides authentication attempts for back-office accounts, tracking
// failures per (admin, source address) inside a rolling window.
type Guard struct {
	admins  AdminStore
	windows WindowStore
	audit   AuditSink
	logger  *log.Logger

	windowLength  time.Duration
	lockThreshold int
	nowFunc       func() time.Time
}

type GuardOption func(*Guard)

func WithWindowLength(d time.Duration) GuardOption {
	return func(g *Guard) { g.windowLength = d }
}

func WithLockThreshold(n int) GuardOption {
	return func(g *Guard) { g.lockThreshold = n }
}

func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.nowFunc = now }
}

func NewGuard(admins AdminStore, windows WindowStore, audit AuditSink, logger *log.Logger, opts ...GuardOption) *Guard {
	g := &Guard{
		admins:        admins,
		windows:       windows,
		audit:         audit,
		logger:        logger,
		windowLength:  DefaultWindowLength,
		lockThreshold: DefaultLockThreshold,
		nowFunc:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate runs one login attempt. Lockout is enforced before the
// password is ever checked; a locked account is rejected without touching
// the stored hash. An unknown email yields DecisionIncorrect with nothing
// recorded, since there is no admin identity to key a window on.
func (g *Guard) Authenticate(ctx context.Context, email, password, sourceAddr string) (Decision, error) {
	admin, err := g.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			return DecisionIncorrect, nil
		}
		return DecisionIncorrect, fmt.Errorf("find admin: %w", err)
	}

	now := g.nowFunc()
	oldest := now.Add(-g.windowLength)

	w, ok, err := g.windows.Current(ctx, admin.ID, sourceAddr, oldest)
	if err != nil {
		return DecisionIncorrect, fmt.Errorf("lookup window: %w", err)
	}
	if ok && w.Attempts >= g.lockThreshold {
		g.record(ctx, admin.ID, sourceAddr, now, OutcomeLockedOut, SeverityHigh)
		return DecisionLocked, nil
	}

	if bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password)) != nil {
		if _, err := g.windows.RecordFailure(ctx, admin.ID, sourceAddr, now, oldest); err != nil {
			return DecisionIncorrect, fmt.Errorf("record failure: %w", err)
		}
		g.record(ctx, admin.ID, sourceAddr, now, OutcomeFailure, SeverityHigh)
		return DecisionIncorrect, nil
	}

	if err := g.windows.ResetAttempts(ctx, admin.ID, sourceAddr, oldest); err != nil {
		return DecisionIncorrect, fmt.Errorf("reset attempts: %w", err)
	}
	g.record(ctx, admin.ID, sourceAddr, now, OutcomeSuccess, SeverityCritical)
	return DecisionAuthenticated, nil
}

// Logout records the audit trail for an explicit logout.
func (g *Guard) Logout(ctx context.Context, email, sourceAddr string) {
	admin, err := g.admins.FindByEmail(ctx, email)
	if err != nil {
		return
	}
	g.record(ctx, admin.ID, sourceAddr, g.nowFunc(), OutcomeLogout, SeverityMedium)
}

// CreateAdmin validates and stores a new back-office account. A non-empty
// violation list means the account was rejected and nothing was stored.
func (g *Guard) CreateAdmin(ctx context.Context, forename, email, password string) ([]validate.Violation, error) {
	v := validate.New()
	v.Email(email)
	v.Alphabetic("forename", forename)
	v.MaxLength("forename", forename, validate.MaxFieldLength)
	v.Password(password)
	if !v.OK() {
		return v.Violations(), nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if _, err := g.admins.Create(ctx, Admin{Forename: forename, Email: email, PasswordHash: hash}); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return nil, nil
}

// PurgeStaleWindows removes windows old enough that they can never match
// again, per the configured retention.
func (g *Guard) PurgeStaleWindows(ctx context.Context, retention time.Duration) (int64, error) {
	return g.windows.PurgeBefore(ctx, g.nowFunc().Add(-retention))
}

func (g *Guard) record(ctx context.Context, adminID int64, sourceAddr string, ts time.Time, outcome, severity string) {
	if g.audit == nil {
		return
	}
	e := Event{AdminID: adminID, Timestamp: ts, SourceAddr: sourceAddr, Outcome: outcome, Severity: severity}
	if err := g.audit.Record(ctx, e); err != nil && g.logger != nil {
		g.logger.Printf("audit record dropped: %v", err)
	}
}
