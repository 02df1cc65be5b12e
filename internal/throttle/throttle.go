package throttle

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// Policy holds the tunable numbers of the throttle.
type Policy struct {
	MaxAttempts     int
	AttemptWindow   time.Duration
	LockoutDuration time.Duration
	CleanupInterval time.Duration
}

// DefaultPolicy mirrors the platform defaults: 3 attempts inside a 15 minute
// window lock the identity for 5 minutes; stale records are swept every 10.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		AttemptWindow:   15 * time.Minute,
		LockoutDuration: 5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
}

// CheckResult reports whether an authentication attempt may proceed.
type CheckResult struct {
	Allowed          bool
	Reason           string
	RemainingSeconds int
}

// FailureResult reports the state after a recorded failure.
type FailureResult struct {
	Locked            bool
	AttemptsRemaining int
	LockoutMinutes    int
}

// Throttle decides whether authentication attempts may proceed and records
// their outcomes. Mutations to the same identity are serialized; different
// identities never contend.
type Throttle struct {
	policy Policy
	ledger Ledger
	clock  Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Throttle over the given ledger and clock.
func New(policy Policy, ledger Ledger, clock Clock) *Throttle {
	if clock == nil {
		clock = SystemClock()
	}
	return &Throttle{
		policy: policy,
		ledger: ledger,
		clock:  clock,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (t *Throttle) identityLock(identity string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[identity]
	if !ok {
		l = &sync.Mutex{}
		t.locks[identity] = l
	}
	return l
}

// Check reports whether an attempt for the identity may proceed. A lockout
// whose deadline has passed is removed here (lazy expiry).
func (t *Throttle) Check(identity string) CheckResult {
	l := t.identityLock(identity)
	l.Lock()
	defer l.Unlock()

	rec, ok := t.ledger.Get(identity)
	if !ok {
		return CheckResult{Allowed: true}
	}

	now := t.clock.Now()

	if !rec.LockedUntil.IsZero() {
		if now.Before(rec.LockedUntil) {
			secs := int(math.Ceil(rec.LockedUntil.Sub(now).Seconds()))
			mins := int(math.Ceil(float64(secs) / 60))
			plural := "s"
			if mins == 1 {
				plural = ""
			}
			return CheckResult{
				Allowed:          false,
				Reason:           fmt.Sprintf("Account locked. Try again in %d minute%s.", mins, plural),
				RemainingSeconds: secs,
			}
		}
		t.ledger.Delete(identity)
	}

	return CheckResult{Allowed: true}
}

// RecordFailure counts a failed attempt. Failures further apart than the
// attempt window start a fresh count; reaching the maximum locks the identity.
func (t *Throttle) RecordFailure(identity string) FailureResult {
	l := t.identityLock(identity)
	l.Lock()
	defer l.Unlock()

	now := t.clock.Now()

	rec, ok := t.ledger.Get(identity)
	if !ok || now.Sub(rec.LastAttemptAt) > t.policy.AttemptWindow {
		t.ledger.Put(identity, Record{FailureCount: 1, LastAttemptAt: now})
		return FailureResult{AttemptsRemaining: t.policy.MaxAttempts - 1}
	}

	rec.FailureCount++
	rec.LastAttemptAt = now

	if rec.FailureCount >= t.policy.MaxAttempts {
		rec.LockedUntil = now.Add(t.policy.LockoutDuration)
		t.ledger.Put(identity, rec)
		return FailureResult{
			Locked:         true,
			LockoutMinutes: int(t.policy.LockoutDuration / time.Minute),
		}
	}

	t.ledger.Put(identity, rec)
	return FailureResult{AttemptsRemaining: t.policy.MaxAttempts - rec.FailureCount}
}

// RecordSuccess clears any failure record for the identity.
func (t *Throttle) RecordSuccess(identity string) {
	l := t.identityLock(identity)
	l.Lock()
	defer l.Unlock()
	t.ledger.Delete(identity)
}

// Sweep removes records whose lockout has expired or whose last attempt fell
// out of the window while unlocked. It returns the number of records removed.
func (t *Throttle) Sweep() int {
	now := t.clock.Now()
	removed := 0
	for identity, rec := range t.ledger.Entries() {
		expiredLock := !rec.LockedUntil.IsZero() && now.After(rec.LockedUntil)
		staleWindow := rec.LockedUntil.IsZero() && now.Sub(rec.LastAttemptAt) > t.policy.AttemptWindow
		if expiredLock || staleWindow {
			l := t.identityLock(identity)
			l.Lock()
			t.ledger.Delete(identity)
			l.Unlock()
			removed++
		}
	}
	return removed
}

// Run sweeps on the configured interval until the context is cancelled.
func (t *Throttle) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.policy.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				log.Printf("throttle: swept %d stale attempt records", n)
			}
		}
	}
}
