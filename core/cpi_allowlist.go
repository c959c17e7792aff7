package core

// CPI Allowlist (C7, §4.5): a kernel-global, ordered set of program
// addresses authorized as CPI targets. A mutex-guarded, map-backed registry
// with add/remove/contains, kept as a single ordered set with stable
// indices since guard manifests reference allowlist entries by index
// (§4.4).

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// CPIAllowlist is safe for concurrent use. It is guarded by an RWMutex:
// readers do not block each other, while a writer waits for in-flight
// readers and blocks new ones until it finishes.
type CPIAllowlist struct {
	mu      sync.RWMutex
	entries []Address       // ordered for stable indices
	index   map[Address]int // address -> position in entries
}

// NewCPIAllowlist returns an empty allowlist.
func NewCPIAllowlist() *CPIAllowlist {
	return &CPIAllowlist{index: make(map[Address]int)}
}

// Add authorizes addr as a CPI target. Per §9's open question, adding an
// address already present is treated as an idempotent no-op rather than an
// error.
func (l *CPIAllowlist) Add(addr Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[addr]; ok {
		return
	}
	l.index[addr] = len(l.entries)
	l.entries = append(l.entries, addr)
	logrus.WithField("address", addr.String()).Info("cpi allowlist: added")
}

// Remove revokes addr. The slot is not compacted — doing so would shift
// every subsequent index and break any already-compiled guard's manifest
// (I14 must hold at *invocation* time, and the allowlist's own indices
// must stay stable for the lifetime of compiled guards referencing them).
// The vacated slot is tombstoned to the zero address so the index space
// itself never shrinks.
func (l *CPIAllowlist) Remove(addr Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.index[addr]
	if !ok {
		return NewError(ErrNotAllowlisted, nil)
	}
	delete(l.index, addr)
	l.entries[pos] = Address{}
	logrus.WithField("address", addr.String()).Info("cpi allowlist: removed")
	return nil
}

// Contains reports whether addr is currently authorized.
func (l *CPIAllowlist) Contains(addr Address) bool {
	if addr.IsZero() {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[addr]
	return ok
}

// ContainsIndex reports whether the entry at idx is currently authorized
// (I14 checked at invocation time, not at guard-compile time — a removal
// after compilation must be observed).
func (l *CPIAllowlist) ContainsIndex(idx uint16) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if int(idx) >= len(l.entries) {
		return false
	}
	return !l.entries[idx].IsZero()
}

// AddressAt returns the address at a stable allowlist index.
func (l *CPIAllowlist) AddressAt(idx uint16) (Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if int(idx) >= len(l.entries) {
		return Address{}, NewError(ErrIndexOutOfRange, nil)
	}
	return l.entries[idx], nil
}

// IndexOf returns the stable index for addr, used when an operator wants
// to build a guard manifest entry for a newly-added target.
func (l *CPIAllowlist) IndexOf(addr Address) (uint16, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.index[addr]
	return uint16(pos), ok
}

// Snapshot returns every currently-authorized address, for introspection.
func (l *CPIAllowlist) Snapshot() []Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Address, 0, len(l.index))
	for _, a := range l.entries {
		if !a.IsZero() {
			out = append(out, a)
		}
	}
	return out
}
