package model

import "time"

// CooldownLedger is an in-memory view of the cooldown entries for one user
// scope. The engine loads it, reserves through CheckAndReserve, and persists
// it back only after the remote side effect succeeds, so a failed call never
// consumes a cooldown window.
//
// The load/reserve/persist sequence is a read-modify-write with no
// transactional guarantee across the two execution contexts. Both contexts
// can pass their check before either persists; the resulting duplicate remote
// call is accepted, with the remote API as the idempotency authority.
type CooldownLedger struct {
	Entries      map[string]time.Time
	LastActionAt time.Time
}

// NewCooldownLedger returns an empty ledger.
func NewCooldownLedger() *CooldownLedger {
	return &CooldownLedger{Entries: make(map[string]time.Time)}
}

// CheckAndReserve is the ledger's only mutation entry point for firing an
// event. It returns false, leaving the ledger untouched, when the global lock
// or the per-direction cooldown for key has not yet elapsed. Otherwise it
// records now under both the key and the global lock and returns true.
func (l *CooldownLedger) CheckAndReserve(key string, now time.Time, window, globalWindow time.Duration) bool {
	if !l.LastActionAt.IsZero() && now.Sub(l.LastActionAt) < globalWindow {
		return false
	}
	if last, ok := l.Entries[key]; ok && now.Sub(last) < window {
		return false
	}
	if l.Entries == nil {
		l.Entries = make(map[string]time.Time)
	}
	l.Entries[key] = now
	l.LastActionAt = now
	return true
}

// Clear removes the entry for key, if any.
func (l *CooldownLedger) Clear(key string) {
	delete(l.Entries, key)
}

// ClearGlobal releases the global lock.
func (l *CooldownLedger) ClearGlobal() {
	l.LastActionAt = time.Time{}
}
