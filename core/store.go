package core

// Store is the in-kernel stand-in for host-provided account persistence
// (§1: "the host chain's transaction runtime, account model... assumed
// given"). It backs NativeTransfer/TokenTransfer/WriteData dispatch and the
// dev introspection server. A map-backed, mutex-guarded in-memory ledger,
// narrowed to exactly the operations §4.6 needs.

import (
	"sync"
)

// FunctionRegistry is the read-only, externally-owned catalogue mapping
// stable function IDs to target program addresses (§1: "consumed
// read-only"). CallRegistered resolves through this at execution time so
// registry updates propagate without session invalidation (§4.6).
type FunctionRegistry interface {
	Resolve(functionID uint32) (Address, bool)
}

// StaticFunctionRegistry is a simple map-backed FunctionRegistry, used by
// tests and local tooling in place of the real cross-process catalogue.
type StaticFunctionRegistry struct {
	mu      sync.RWMutex
	targets map[uint32]Address
}

func NewStaticFunctionRegistry() *StaticFunctionRegistry {
	return &StaticFunctionRegistry{targets: make(map[uint32]Address)}
}

func (r *StaticFunctionRegistry) Set(functionID uint32, target Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[functionID] = target
}

func (r *StaticFunctionRegistry) Resolve(functionID uint32) (Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.targets[functionID]
	return a, ok
}

// Store holds native balances, per-mint token balances, and data-account
// contents, all addressed by the concrete Address an ALT slot resolves to.
type Store struct {
	mu     sync.RWMutex
	native map[Address]uint64
	tokens map[Address]map[Address]uint64 // mint -> holder -> balance
	data   map[Address][]byte
}

func NewStore() *Store {
	return &Store{
		native: make(map[Address]uint64),
		tokens: make(map[Address]map[Address]uint64),
		data:   make(map[Address][]byte),
	}
}

// CreditNative is a test/bootstrap helper (not part of the §6 surface) to
// seed an account's native balance.
func (s *Store) CreditNative(addr Address, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.native[addr] += amount
}

func (s *Store) NativeBalance(addr Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.native[addr]
}

// TransferNative moves amount from 'from' to 'to' using checked arithmetic
// (§4.6 "Numeric semantics"): amount 0 is legal and is metadata-only.
func (s *Store) TransferNative(from, to Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount == 0 {
		return nil
	}
	bal := s.native[from]
	if bal < amount {
		return NewError(ErrOverflow, nil)
	}
	newTo, ok := addUint64(s.native[to], amount)
	if !ok {
		return NewError(ErrOverflow, nil)
	}
	s.native[from] = bal - amount
	s.native[to] = newTo
	return nil
}

// CreditToken is a test/bootstrap helper to seed a mint/holder balance.
func (s *Store) CreditToken(mint, holder Address, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens[mint] == nil {
		s.tokens[mint] = make(map[Address]uint64)
	}
	s.tokens[mint][holder] += amount
}

func (s *Store) TokenBalance(mint, holder Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[mint][holder]
}

// TransferToken moves amount of mint from src to dst. It takes no authority
// argument and performs no signer/authorization check; the engine only
// resolves the operation's authority slot to confirm it is live.
func (s *Store) TransferToken(mint, src, dst Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount == 0 {
		return nil
	}
	if s.tokens[mint] == nil {
		s.tokens[mint] = make(map[Address]uint64)
	}
	bal := s.tokens[mint][src]
	if bal < amount {
		return NewError(ErrOverflow, nil)
	}
	newDst, ok := addUint64(s.tokens[mint][dst], amount)
	if !ok {
		return NewError(ErrOverflow, nil)
	}
	s.tokens[mint][src] = bal - amount
	s.tokens[mint][dst] = newDst
	return nil
}

// WriteData appends/overwrites bytes at offset into addr's data account
// (§4.6 WriteData).
func (s *Store) WriteData(addr Address, offset uint32, bytes []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.data[addr]
	end := int(offset) + len(bytes)
	if end > len(buf) {
		grown := make([]byte, end)
		copy(grown, buf)
		buf = grown
	}
	copy(buf[offset:], bytes)
	s.data[addr] = buf
	return nil
}

func (s *Store) ReadData(addr Address) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.data[addr]...)
}

func addUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}
