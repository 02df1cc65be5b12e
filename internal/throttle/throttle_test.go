package throttle

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestThrottle() (*Throttle, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(DefaultPolicy(), NewMemoryLedger(), clock), clock
}

func TestCheckUnknownIdentityAllowed(t *testing.T) {
	th, _ := newTestThrottle()
	res := th.Check("a@b.com")
	if !res.Allowed {
		t.Fatalf("expected fresh identity to be allowed, got %+v", res)
	}
}

func TestLockAfterMaxFailures(t *testing.T) {
	th, clock := newTestThrottle()

	for i := 0; i < 2; i++ {
		res := th.RecordFailure("a@b.com")
		if res.Locked {
			t.Fatalf("locked after %d failures", i+1)
		}
		if want := 2 - i; res.AttemptsRemaining != want {
			t.Fatalf("attempt %d: expected %d remaining, got %d", i+1, want, res.AttemptsRemaining)
		}
		clock.advance(20 * time.Second)
	}

	res := th.RecordFailure("a@b.com")
	if !res.Locked {
		t.Fatalf("expected lock after third failure, got %+v", res)
	}
	if res.LockoutMinutes != 5 {
		t.Fatalf("expected 5 lockout minutes, got %d", res.LockoutMinutes)
	}

	check := th.Check("a@b.com")
	if check.Allowed {
		t.Fatal("expected locked identity to be denied")
	}
	if check.RemainingSeconds != 300 {
		t.Fatalf("expected 300 remaining seconds, got %d", check.RemainingSeconds)
	}
	if check.Reason == "" {
		t.Fatal("expected a human-readable reason")
	}
}

func TestLockExpiresLazily(t *testing.T) {
	th, clock := newTestThrottle()

	for i := 0; i < 3; i++ {
		th.RecordFailure("a@b.com")
	}
	if th.Check("a@b.com").Allowed {
		t.Fatal("expected lock")
	}

	clock.advance(301 * time.Second)

	res := th.Check("a@b.com")
	if !res.Allowed {
		t.Fatalf("expected lock to expire, got %+v", res)
	}
	// The expired record is deleted by the check itself.
	if _, ok := th.ledger.Get("a@b.com"); ok {
		t.Fatal("expected record removed after lazy expiry")
	}
}

func TestWindowResetsCount(t *testing.T) {
	th, clock := newTestThrottle()

	th.RecordFailure("a@b.com")
	th.RecordFailure("a@b.com")

	clock.advance(16 * time.Minute)

	res := th.RecordFailure("a@b.com")
	if res.Locked {
		t.Fatal("failure outside the window must not lock")
	}
	if res.AttemptsRemaining != 2 {
		t.Fatalf("expected count reset to 1 (2 remaining), got %d remaining", res.AttemptsRemaining)
	}
}

func TestRecordSuccessClearsRecord(t *testing.T) {
	th, _ := newTestThrottle()

	th.RecordFailure("a@b.com")
	th.RecordFailure("a@b.com")
	th.RecordSuccess("a@b.com")

	if _, ok := th.ledger.Get("a@b.com"); ok {
		t.Fatal("expected record cleared on success")
	}

	res := th.RecordFailure("a@b.com")
	if res.AttemptsRemaining != 2 {
		t.Fatalf("expected fresh count after success, got %d remaining", res.AttemptsRemaining)
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	th, _ := newTestThrottle()

	for i := 0; i < 3; i++ {
		th.RecordFailure("locked@b.com")
	}
	if th.Check("locked@b.com").Allowed {
		t.Fatal("expected locked@b.com denied")
	}
	if !th.Check("other@b.com").Allowed {
		t.Fatal("other identities must be unaffected")
	}
}

// The ledger is shared by the standard and moderator login surfaces, so a
// lockout earned on one surface applies to the other. This is deliberate:
// throttling is keyed by identity, not by entry point.
func TestSharedLedgerAcrossSurfaces(t *testing.T) {
	th, _ := newTestThrottle()

	// Failures recorded by the "moderator" surface.
	for i := 0; i < 3; i++ {
		th.RecordFailure("shared@b.com")
	}

	// The "standard" surface consults the same throttle instance.
	if th.Check("shared@b.com").Allowed {
		t.Fatal("expected lockout to apply across login surfaces")
	}
}

func TestSweepRemovesStaleRecords(t *testing.T) {
	th, clock := newTestThrottle()

	th.RecordFailure("stale@b.com") // one failure, never locked
	for i := 0; i < 3; i++ {
		th.RecordFailure("locked@b.com")
	}

	// Inside window and lock still active: nothing to sweep.
	if n := th.Sweep(); n != 0 {
		t.Fatalf("expected no removals, got %d", n)
	}

	clock.advance(16 * time.Minute)

	if n := th.Sweep(); n != 2 {
		t.Fatalf("expected 2 removals (stale window + expired lock), got %d", n)
	}
	if _, ok := th.ledger.Get("stale@b.com"); ok {
		t.Fatal("stale record should be gone")
	}
	if _, ok := th.ledger.Get("locked@b.com"); ok {
		t.Fatal("expired lock record should be gone")
	}
}
