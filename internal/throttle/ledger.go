package throttle

import (
	"sync"
	"time"
)

// Record tracks consecutive authentication failures for one identity.
// A zero LockedUntil means the identity is not locked.
type Record struct {
	FailureCount  int
	LastAttemptAt time.Time
	LockedUntil   time.Time
}

// Ledger is the key-value store backing the throttle: identity -> Record.
// An in-memory ledger serves a single instance; a shared external store can
// replace it without touching the throttle logic.
type Ledger interface {
	Get(identity string) (Record, bool)
	Put(identity string, rec Record)
	Delete(identity string)
	// Entries returns a point-in-time copy of all records, used by the sweep.
	Entries() map[string]Record
}

// MemoryLedger is a process-local Ledger guarded by a mutex.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]Record)}
}

func (m *MemoryLedger) Get(identity string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[identity]
	return rec, ok
}

func (m *MemoryLedger) Put(identity string, rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[identity] = rec
}

func (m *MemoryLedger) Delete(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, identity)
}

func (m *MemoryLedger) Entries() map[string]Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}
