package core

// Session state service (C5, §3, §4.8): the authoritative per-session
// record. A mutex-guarded manager wrapping a backing map, the same shape
// as an account-balance manager but holding session lifecycle state
// instead of coin balances.

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	errSessionCollision = errors.New("session: address already in use")
	errSessionNotFound  = errors.New("session: not found")
)

// SessionStatus tracks the (I1) terminal invalidation state.
type SessionStatus uint8

const (
	StatusActive SessionStatus = iota
	StatusInvalidated
)

// Session is the kernel's per-application execution context.
type Session struct {
	Address        Address
	Owner          Address
	Namespace      []byte
	Nonce          uint64
	CreatedAt      int64
	Sequence       uint64 // advances only on successful batch execution (I3)
	ALT            *ALT
	Guards         []*Guard
	CPIAllowlist   *CPIAllowlist
	Delegate       Address // optional delegated principal authorized to update/invalidate
	Status         SessionStatus
	ExpiryOverride uint64 // the one guard-constant field UpdateSession may patch (DESIGN.md Open Question decision)
}

// IsInvalidated reports the (I1) terminal state.
func (s *Session) IsInvalidated() bool { return s.Status == StatusInvalidated }

// Authorized reports whether caller may update/invalidate this session —
// the owner, or an explicitly delegated principal (§4.8).
func (s *Session) Authorized(caller Address) bool {
	return caller == s.Owner || (!s.Delegate.IsZero() && caller == s.Delegate)
}

// SessionView is a read-only snapshot for introspection/CLI output.
type SessionView struct {
	Address   Address `json:"address"`
	Owner     Address `json:"owner"`
	Nonce     uint64  `json:"nonce"`
	Sequence  uint64  `json:"sequence"`
	CreatedAt int64   `json:"created_at"`
	Status    string  `json:"status"`
	GuardN    int     `json:"guard_count"`
}

func (s *Session) View() SessionView {
	status := "Active"
	if s.IsInvalidated() {
		status = "Invalidated"
	}
	return SessionView{
		Address: s.Address, Owner: s.Owner, Nonce: s.Nonce, Sequence: s.Sequence,
		CreatedAt: s.CreatedAt, Status: status, GuardN: len(s.Guards),
	}
}

// SessionService manages the lifecycle of sessions (§4.8). Safe for
// concurrent use; the host's account-locking discipline additionally
// serializes any two host transactions that touch the same session (§5).
type SessionService struct {
	mu       sync.RWMutex
	sessions map[Address]*Session
	now      func() int64 // overridable for deterministic tests
}

// NewSessionService returns an empty, in-memory session service. The
// kernel itself is storage-agnostic (§1: persistence is the host's
// concern); this backs local tooling and tests, mirroring the reference
// repo's in-memory Ledger fakes used throughout its own test suite.
func NewSessionService() *SessionService {
	return &SessionService{sessions: make(map[Address]*Session), now: func() int64 { return time.Now().Unix() }}
}

// CreateSession derives the session's address and installs a fresh,
// empty-ALT, guard-bearing session (§4.8). Fails if a session already
// exists at the derived address — namespace/nonce must make each session
// address unique per owner (I2: the nonce never decreases is enforced by
// the caller choosing a larger nonce for a successor session; the kernel
// only rejects exact collisions here).
func (s *SessionService) CreateSession(owner Address, namespace []byte, nonce uint64, altCapacity int, guardBlobs [][]byte, stepBudget int, allowlist *CPIAllowlist) (*Session, error) {
	addr := DeriveSessionAddress(owner, namespace, nonce)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[addr]; exists {
		return nil, NewError(ErrBadOpProgram, errSessionCollision)
	}

	guards := make([]*Guard, 0, len(guardBlobs))
	for _, blob := range guardBlobs {
		g, err := Decode(blob, stepBudget)
		if err != nil {
			return nil, err
		}
		guards = append(guards, g)
	}

	altAddr := DeriveALTAddress(addr, namespace)
	sess := &Session{
		Address:      addr,
		Owner:        owner,
		Namespace:    append([]byte(nil), namespace...),
		Nonce:        nonce,
		CreatedAt:    s.now(),
		ALT:          NewALT(altAddr, addr, owner, altCapacity),
		Guards:       guards,
		CPIAllowlist: allowlist,
		Status:       StatusActive,
	}
	s.sessions[addr] = sess
	logrus.WithFields(logrus.Fields{"session": addr.String(), "owner": owner.String()}).Info("session created")
	return sess, nil
}

// GetSession returns the session at addr, or an error if absent.
func (s *SessionService) GetSession(addr Address) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[addr]
	if !ok {
		return nil, NewError(ErrIndexOutOfRange, errSessionNotFound)
	}
	return sess, nil
}

// SessionPatch carries the narrow set of fields UpdateSession may touch
// (I4; see DESIGN.md for the Open Question decision on exactly which).
type SessionPatch struct {
	NewDelegate *Address
	NewExpiry   *uint64
}

// UpdateSession applies patch to the session at addr, authorized by
// caller. Only the delegate field and the expiry override constant may be
// changed — the ALT, guard bytecode, and CPI allowlist references are
// immutable for the session's life (I4).
func (s *SessionService) UpdateSession(addr Address, caller Address, patch SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[addr]
	if !ok {
		return NewError(ErrIndexOutOfRange, errSessionNotFound)
	}
	if sess.IsInvalidated() {
		return NewError(ErrSessionInvalidated, nil)
	}
	if !sess.Authorized(caller) {
		return NewError(ErrOwnerMismatch, nil)
	}
	if patch.NewDelegate != nil {
		sess.Delegate = *patch.NewDelegate
		sess.ALT.UpdateDelegate(*patch.NewDelegate)
	}
	if patch.NewExpiry != nil {
		sess.ExpiryOverride = *patch.NewExpiry
	}
	return nil
}

// InvalidateSession sets the (I1) terminal flag. Idempotent per §8: a
// second call on an already-invalidated session returns
// SessionInvalidated without further state change.
func (s *SessionService) InvalidateSession(addr Address, caller Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[addr]
	if !ok {
		return NewError(ErrIndexOutOfRange, errSessionNotFound)
	}
	if sess.IsInvalidated() {
		return NewError(ErrSessionInvalidated, nil)
	}
	if !sess.Authorized(caller) {
		return NewError(ErrOwnerMismatch, nil)
	}
	sess.Status = StatusInvalidated
	logrus.WithField("session", addr.String()).Info("session invalidated")
	return nil
}

// AdvanceSequence increments the session's sequence counter on a
// successful batch (I3). Callers must only invoke this after every
// operation in the batch has committed — on failure the counter is
// untouched (the engine never calls this on an aborted batch).
func (s *SessionService) AdvanceSequence(addr Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[addr]
	if !ok {
		return NewError(ErrIndexOutOfRange, errSessionNotFound)
	}
	sess.Sequence++
	return nil
}
