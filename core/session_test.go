package core

import "testing"

func TestSessionServiceCreateAndGet(t *testing.T) {
	svc := NewSessionService()
	owner := addrN(1)
	sess, err := svc.CreateSession(owner, []byte("ns"), 1, 4, nil, 64, NewCPIAllowlist())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.GetSession(sess.Address)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != sess {
		t.Fatalf("expected same session pointer back")
	}
	if got.Status != StatusActive {
		t.Fatalf("expected new session to be active")
	}
}

func TestSessionServiceCreateCollision(t *testing.T) {
	svc := NewSessionService()
	owner := addrN(1)
	if _, err := svc.CreateSession(owner, []byte("ns"), 1, 4, nil, 64, NewCPIAllowlist()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateSession(owner, []byte("ns"), 1, 4, nil, 64, NewCPIAllowlist())
	if err == nil {
		t.Fatalf("expected collision error for identical owner/namespace/nonce")
	}
}

func TestSessionServiceGetMissing(t *testing.T) {
	svc := NewSessionService()
	_, err := svc.GetSession(addrN(1))
	code, ok := CodeOf(err)
	if !ok || code != ErrIndexOutOfRange {
		t.Fatalf("expected IndexOutOfRange for unknown session, got %v", err)
	}
}

func TestSessionServiceUpdateAuthorization(t *testing.T) {
	svc := NewSessionService()
	owner := addrN(1)
	sess, _ := svc.CreateSession(owner, []byte("ns"), 1, 4, nil, 64, NewCPIAllowlist())

	delegate := addrN(2)
	err := svc.UpdateSession(sess.Address, addrN(99), SessionPatch{NewDelegate: &delegate})
	code, ok := CodeOf(err)
	if !ok || code != ErrOwnerMismatch {
		t.Fatalf("expected OwnerMismatch for unauthorized caller, got %v", err)
	}

	if err := svc.UpdateSession(sess.Address, owner, SessionPatch{NewDelegate: &delegate}); err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if sess.Delegate != delegate {
		t.Fatalf("expected delegate to be patched")
	}

	// The delegate is now authorized too.
	expiry := uint64(1234)
	if err := svc.UpdateSession(sess.Address, delegate, SessionPatch{NewExpiry: &expiry}); err != nil {
		t.Fatalf("delegate update: %v", err)
	}
	if sess.ExpiryOverride != expiry {
		t.Fatalf("expected expiry override to be patched")
	}
}

func TestSessionServiceInvalidateIdempotent(t *testing.T) {
	svc := NewSessionService()
	owner := addrN(1)
	sess, _ := svc.CreateSession(owner, []byte("ns"), 1, 4, nil, 64, NewCPIAllowlist())

	if err := svc.InvalidateSession(sess.Address, owner); err != nil {
		t.Fatalf("first invalidate: %v", err)
	}
	if !sess.IsInvalidated() {
		t.Fatalf("expected session to be invalidated")
	}
	err := svc.InvalidateSession(sess.Address, owner)
	code, ok := CodeOf(err)
	if !ok || code != ErrSessionInvalidated {
		t.Fatalf("expected idempotent SessionInvalidated on second call, got %v", err)
	}
}

func TestSessionServiceUpdateRejectsAfterInvalidation(t *testing.T) {
	svc := NewSessionService()
	owner := addrN(1)
	sess, _ := svc.CreateSession(owner, []byte("ns"), 1, 4, nil, 64, NewCPIAllowlist())
	_ = svc.InvalidateSession(sess.Address, owner)

	expiry := uint64(1)
	err := svc.UpdateSession(sess.Address, owner, SessionPatch{NewExpiry: &expiry})
	code, ok := CodeOf(err)
	if !ok || code != ErrSessionInvalidated {
		t.Fatalf("expected SessionInvalidated for update after invalidation, got %v", err)
	}
}

func TestSessionServiceAdvanceSequence(t *testing.T) {
	svc := NewSessionService()
	owner := addrN(1)
	sess, _ := svc.CreateSession(owner, []byte("ns"), 1, 4, nil, 64, NewCPIAllowlist())
	if err := svc.AdvanceSequence(sess.Address); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if sess.Sequence != 1 {
		t.Fatalf("expected sequence to advance to 1, got %d", sess.Sequence)
	}
}
