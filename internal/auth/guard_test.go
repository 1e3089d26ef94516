package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type fakeAdminStore struct {
	admins map[string]Admin
	nextID int64
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{admins: make(map[string]Admin)}
}

func (s *fakeAdminStore) FindByEmail(ctx context.Context, email string) (Admin, error) {
	if a, ok := s.admins[email]; ok {
		return a, nil
	}
	return Admin{}, ErrAdminNotFound
}

func (s *fakeAdminStore) Create(ctx context.Context, a Admin) (Admin, error) {
	s.nextID++
	a.ID = s.nextID
	s.admins[a.Email] = a
	return a, nil
}

func (s *fakeAdminStore) add(t *testing.T, email, password string) Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a, _ := s.Create(context.Background(), Admin{Forename: "Admin", Email: email, PasswordHash: hash})
	return a
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Record(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) outcomes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Outcome
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGuard(t *testing.T) (*Guard, *fakeAdminStore, *MemoryWindowStore, *recordingSink, *testClock) {
	t.Helper()
	admins := newFakeAdminStore()
	windows := NewMemoryWindowStore()
	sink := &recordingSink{}
	clock := &testClock{now: time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)}
	g := NewGuard(admins, windows, sink, nil, WithGuardClock(clock.Now))
	return g, admins, windows, sink, clock
}

const sourceAddr = "203.0.113.9"

func TestUnknownAdminIncorrectAndUnrecorded(t *testing.T) {
	g, _, windows, sink, _ := newTestGuard(t)

	d, err := g.Authenticate(context.Background(), "ghost@example.com", "whatever", sourceAddr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != DecisionIncorrect {
		t.Fatalf("decision %v, want incorrect", d)
	}
	if windows.Len() != 0 || len(sink.outcomes()) != 0 {
		t.Fatalf("unknown admin must leave no trace")
	}
}

func TestLockoutAfterFiveFailures(t *testing.T) {
	g, admins, _, sink, _ := newTestGuard(t)
	admins.add(t, "root@example.com", "Str0ng!Passw0rd")

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d, err := g.Authenticate(ctx, "root@example.com", "wrong", sourceAddr)
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if d != DecisionIncorrect {
			t.Fatalf("attempt %d: decision %v, want incorrect", i+1, d)
		}
	}

	// the 6th attempt carries the correct password, but lockout is enforced
	// before credential verification so it must still be rejected
	d, err := g.Authenticate(ctx, "root@example.com", "Str0ng!Passw0rd", sourceAddr)
	if err != nil {
		t.Fatalf("locked attempt: %v", err)
	}
	if d != DecisionLocked {
		t.Fatalf("decision %v, want locked", d)
	}

	got := sink.outcomes()
	want := []string{
		OutcomeFailure, OutcomeFailure, OutcomeFailure, OutcomeFailure, OutcomeFailure,
		OutcomeLockedOut,
	}
	if len(got) != len(want) {
		t.Fatalf("audit outcomes %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("audit outcome[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSuccessResetsAttemptCount(t *testing.T) {
	g, admins, windows, _, clock := newTestGuard(t)
	a := admins.add(t, "root@example.com", "Str0ng!Passw0rd")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := g.Authenticate(ctx, "root@example.com", "wrong", sourceAddr); err != nil {
			t.Fatalf("failed attempt: %v", err)
		}
	}

	d, err := g.Authenticate(ctx, "root@example.com", "Str0ng!Passw0rd", sourceAddr)
	if err != nil || d != DecisionAuthenticated {
		t.Fatalf("expected authenticated, got %v err %v", d, err)
	}

	oldest := clock.Now().Add(-DefaultWindowLength)
	w, ok, _ := windows.Current(ctx, a.ID, sourceAddr, oldest)
	if !ok || w.Attempts != 0 {
		t.Fatalf("window after success = %+v ok=%v, want attempts 0", w, ok)
	}

	// the next failure counts from 1, not from the prior count
	if _, err := g.Authenticate(ctx, "root@example.com", "wrong", sourceAddr); err != nil {
		t.Fatalf("failure after success: %v", err)
	}
	w, ok, _ = windows.Current(ctx, a.ID, sourceAddr, oldest)
	if !ok || w.Attempts != 1 {
		t.Fatalf("window after new failure = %+v, want attempts 1", w)
	}
}

func TestSuccessWithoutWindowRecordsNothing(t *testing.T) {
	g, admins, windows, _, _ := newTestGuard(t)
	admins.add(t, "root@example.com", "Str0ng!Passw0rd")

	d, err := g.Authenticate(context.Background(), "root@example.com", "Str0ng!Passw0rd", sourceAddr)
	if err != nil || d != DecisionAuthenticated {
		t.Fatalf("expected authenticated, got %v err %v", d, err)
	}
	if windows.Len() != 0 {
		t.Fatalf("a successful first attempt must not open a window")
	}
}

func TestStaleWindowNotMatched(t *testing.T) {
	g, admins, windows, _, clock := newTestGuard(t)
	a := admins.add(t, "root@example.com", "Str0ng!Passw0rd")

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := g.Authenticate(ctx, "root@example.com", "wrong", sourceAddr); err != nil {
			t.Fatalf("failed attempt: %v", err)
		}
	}

	d, _ := g.Authenticate(ctx, "root@example.com", "Str0ng!Passw0rd", sourceAddr)
	if d != DecisionLocked {
		t.Fatalf("expected locked before the window goes stale")
	}

	// past the window length the stored window is stale: it is not matched,
	// so the lock no longer applies and a failure opens a fresh window
	clock.Advance(DefaultWindowLength + time.Minute)

	d, err := g.Authenticate(ctx, "root@example.com", "wrong", sourceAddr)
	if err != nil || d != DecisionIncorrect {
		t.Fatalf("expected incorrect after stale, got %v err %v", d, err)
	}
	oldest := clock.Now().Add(-DefaultWindowLength)
	w, ok, _ := windows.Current(ctx, a.ID, sourceAddr, oldest)
	if !ok || w.Attempts != 1 {
		t.Fatalf("fresh window = %+v ok=%v, want attempts 1", w, ok)
	}
}

func TestWindowsAreKeyedBySourceAddress(t *testing.T) {
	g, admins, _, _, _ := newTestGuard(t)
	admins.add(t, "root@example.com", "Str0ng!Passw0rd")

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := g.Authenticate(ctx, "root@example.com", "wrong", "198.51.100.1"); err != nil {
			t.Fatalf("failed attempt: %v", err)
		}
	}

	// locked from the attacking address only
	if d, _ := g.Authenticate(ctx, "root@example.com", "Str0ng!Passw0rd", "198.51.100.1"); d != DecisionLocked {
		t.Fatalf("expected locked from attacking address")
	}
	if d, _ := g.Authenticate(ctx, "root@example.com", "Str0ng!Passw0rd", "203.0.113.50"); d != DecisionAuthenticated {
		t.Fatalf("expected authenticated from a different address")
	}
}

func TestAuditFailureDoesNotAffectDecision(t *testing.T) {
	g, admins, _, sink, _ := newTestGuard(t)
	admins.add(t, "root@example.com", "Str0ng!Passw0rd")
	sink.err = errors.New("audit store down")

	d, err := g.Authenticate(context.Background(), "root@example.com", "Str0ng!Passw0rd", sourceAddr)
	if err != nil || d != DecisionAuthenticated {
		t.Fatalf("audit failure must not fail the decision: %v %v", d, err)
	}
}

func TestConcurrentFailuresLoseNoUpdates(t *testing.T) {
	admins := newFakeAdminStore()
	windows := NewMemoryWindowStore()
	clock := &testClock{now: time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)}
	// a high threshold so every attempt records a failure instead of locking
	g := NewGuard(admins, windows, nil, nil, WithGuardClock(clock.Now), WithLockThreshold(100))
	a := admins.add(t, "root@example.com", "Str0ng!Passw0rd")

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Authenticate(ctx, "root@example.com", "wrong", sourceAddr)
		}()
	}
	wg.Wait()

	oldest := clock.Now().Add(-DefaultWindowLength)
	w, ok, _ := windows.Current(ctx, a.ID, sourceAddr, oldest)
	if !ok || w.Attempts != 20 {
		t.Fatalf("attempts %d after 20 concurrent failures, want 20", w.Attempts)
	}
}

func TestPurgeStaleWindows(t *testing.T) {
	g, admins, windows, _, clock := newTestGuard(t)
	admins.add(t, "root@example.com", "Str0ng!Passw0rd")

	ctx := context.Background()
	if _, err := g.Authenticate(ctx, "root@example.com", "wrong", sourceAddr); err != nil {
		t.Fatalf("failed attempt: %v", err)
	}

	clock.Advance(48 * time.Hour)
	purged, err := g.PurgeStaleWindows(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 || windows.Len() != 0 {
		t.Fatalf("purged %d, remaining %d; want 1 and 0", purged, windows.Len())
	}
}

func TestCreateAdmin(t *testing.T) {
	g, admins, _, _, _ := newTestGuard(t)
	ctx := context.Background()

	t.Run("accumulates every violation", func(t *testing.T) {
		violations, err := g.CreateAdmin(ctx, "R00t", "not-an-email", "weak")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(violations) < 3 {
			t.Fatalf("expected email, forename and password violations, got %v", violations)
		}
		if len(admins.admins) != 0 {
			t.Fatalf("rejected admin must not be stored")
		}
	})

	t.Run("stores a verifiable hash", func(t *testing.T) {
		violations, err := g.CreateAdmin(ctx, "Root", "root@example.com", "Str0ng!Passw0rd")
		if err != nil {
			t.Fatalf("create admin: %v", err)
		}
		if len(violations) != 0 {
			t.Fatalf("unexpected violations %v", violations)
		}
		stored := admins.admins["root@example.com"]
		if bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("Str0ng!Passw0rd")) != nil {
			t.Fatalf("stored hash does not verify the password")
		}
	})
}
