package auth

import (
	"errors"
	"time"
)

var ErrAdminNotFound = errors.New("admin not found")

// Admin is a back-office account. The password is stored only as a bcrypt
// hash.
type Admin struct {
	ID           int64  `json:"id"`
	Forename     string `json:"forename"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"-"`
}

// Window counts failed login attempts for one (admin, source address) pair.
// A window is current only while now falls within windowLength of its
// start; outside that range it is stale and simply never matched.
type Window struct {
	AdminID     int64
	SourceAddr  string
	WindowStart time.Time
	Attempts    int
}

// Decision is the outcome of one authentication attempt. Lockout is a
// control state distinct from incorrect credentials so the caller can
// present a different message.
type Decision int

const (
	DecisionIncorrect Decision = iota
	DecisionLocked
	DecisionAuthenticated
)

func (d Decision) String() string {
	switch d {
	case DecisionLocked:
		return "locked"
	case DecisionAuthenticated:
		return "authenticated"
	default:
		return "incorrect credentials"
	}
}

// Audit outcomes and severities, recorded for operational visibility.
const (
	OutcomeFailure   = "Unsuccessful login attempt"
	OutcomeSuccess   = "Successful login attempt"
	OutcomeLockedOut = "Login attempts exceeded"
	OutcomeLogout    = "Logged out"

	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// Event is one immutable audit record of an authentication attempt.
type Event struct {
	AdminID    int64     `json:"adminId"`
	Timestamp  time.Time `json:"timestamp"`
	SourceAddr string    `json:"sourceAddr"`
	Outcome    string    `json:"outcome"`
	Severity   string    `json:"severity"`
}
