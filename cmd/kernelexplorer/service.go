package main

// KernelService is the read-only facade the HTTP layer queries, wrapping
// the session/store/allowlist state behind a small set of accessor methods
// the server handlers call. This process owns its own in-memory state; it's
// meant to run colocated with an embedded kernel instance within the same
// host process (§1's single-host assumption), not as a standalone client of
// a remote kernel.

import (
	"sync"

	"github.com/valence-kernel/valence/core"
)

type KernelService struct {
	mu        sync.RWMutex
	sessions  *core.SessionService
	store     *core.Store
	allowlist *core.CPIAllowlist
	// known is the set of session addresses created through this service,
	// since SessionService itself exposes lookup-by-address only.
	known []core.Address
}

func NewKernelService(sessions *core.SessionService, store *core.Store, allowlist *core.CPIAllowlist) *KernelService {
	return &KernelService{sessions: sessions, store: store, allowlist: allowlist}
}

func (s *KernelService) CreateSession(owner core.Address, namespace []byte, nonce uint64, altCapacity int) (*core.Session, error) {
	sess, err := s.sessions.CreateSession(owner, namespace, nonce, altCapacity, nil, 0, s.allowlist)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.known = append(s.known, sess.Address)
	s.mu.Unlock()
	return sess, nil
}

func (s *KernelService) Session(addr core.Address) (*core.Session, error) {
	return s.sessions.GetSession(addr)
}

func (s *KernelService) KnownSessions() []core.SessionView {
	s.mu.RLock()
	addrs := append([]core.Address(nil), s.known...)
	s.mu.RUnlock()

	views := make([]core.SessionView, 0, len(addrs))
	for _, addr := range addrs {
		sess, err := s.sessions.GetSession(addr)
		if err != nil {
			continue
		}
		views = append(views, sess.View())
	}
	return views
}

func (s *KernelService) Allowlist() []core.Address {
	return s.allowlist.Snapshot()
}

func (s *KernelService) NativeBalance(addr core.Address) uint64 {
	return s.store.NativeBalance(addr)
}
