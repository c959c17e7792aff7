package core

import "testing"

// newTestEngine builds an Engine plus a session with native-transfer-ready
// ALT slots 0 (payer) and 1 (recipient), both System role, guarded by
// guardBlobs (none when nil).
func newTestEngine(t *testing.T, guardBlobs [][]byte) (*Engine, *Session) {
	t.Helper()
	sessions := NewSessionService()
	store := NewStore()
	functions := NewStaticFunctionRegistry()
	al := NewCPIAllowlist()

	owner := addrN(1)
	sess, err := sessions.CreateSession(owner, []byte("ns"), 1, 6, guardBlobs, 64, al)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := sess.ALT.Register(owner, 0, addrN(10), RoleSystem, "payer"); err != nil {
		t.Fatalf("register payer: %v", err)
	}
	if err := sess.ALT.Register(owner, 1, addrN(11), RoleSystem, "recipient"); err != nil {
		t.Fatalf("register recipient: %v", err)
	}
	store.CreditNative(addrN(10), 10_000)

	engine := NewEngine(sessions, store, functions, fakeProgramInvoker{ok: true}, EngineLimits{
		ALTCapacity: 6, MaxOps: 16, GuardStackDepth: 8, GuardStepBudget: 64,
	})
	return engine, sess
}

type fakeProgramInvoker struct {
	ok bool
}

func (f fakeProgramInvoker) Invoke(target Address, caller Address, accounts []Address, data []byte) error {
	if !f.ok {
		return errBadPayload
	}
	return nil
}

func nativeTransferProgram(from, to int, amount uint64) *Program {
	return &Program{
		Version: 1,
		Ops: []Operation{
			{
				Kind:    OpNativeTransfer,
				Borrow:  Borrow{Write: (1 << uint(from)) | (1 << uint(to))},
				Payload: EncodeNativeTransfer(NativeTransferPayload{FromSlot: from, ToSlot: to, Amount: amount}),
			},
		},
	}
}

func TestExecuteBatchNativeTransferHappyPath(t *testing.T) {
	engine, sess := newTestEngine(t, nil)
	result, err := engine.ExecuteBatch(BatchRequest{Session: sess.Address, Program: nativeTransferProgram(0, 1, 250)})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.SequenceAfter != 1 {
		t.Fatalf("expected sequence to advance by exactly 1, got %d", result.SequenceAfter)
	}
	if engine.Store.NativeBalance(addrN(10)) != 9750 {
		t.Fatalf("unexpected payer balance: %d", engine.Store.NativeBalance(addrN(10)))
	}
	if engine.Store.NativeBalance(addrN(11)) != 250 {
		t.Fatalf("unexpected recipient balance: %d", engine.Store.NativeBalance(addrN(11)))
	}
}

func TestExecuteBatchEmptyProgramAdvancesSequence(t *testing.T) {
	engine, sess := newTestEngine(t, nil)
	result, err := engine.ExecuteBatch(BatchRequest{Session: sess.Address, Program: &Program{Version: 1}})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.SequenceAfter != 1 {
		t.Fatalf("expected empty program to still advance sequence by 1, got %d", result.SequenceAfter)
	}
}

func TestExecuteBatchAliasedBorrowAborts(t *testing.T) {
	engine, sess := newTestEngine(t, nil)
	program := &Program{
		Version: 1,
		Ops: []Operation{{
			Kind:    OpNativeTransfer,
			Borrow:  Borrow{Read: 1, Write: 1}, // same slot read and written: I9 violation
			Payload: EncodeNativeTransfer(NativeTransferPayload{FromSlot: 0, ToSlot: 1, Amount: 1}),
		}},
	}
	_, err := engine.ExecuteBatch(BatchRequest{Session: sess.Address, Program: program})
	code, ok := CodeOf(err)
	if !ok || code != ErrAliasedBorrow {
		t.Fatalf("expected AliasedBorrow, got %v", err)
	}
	if sess.Sequence != 0 {
		t.Fatalf("expected no partial commit: sequence must stay 0, got %d", sess.Sequence)
	}
}

func TestExecuteBatchStaleSlotAborts(t *testing.T) {
	engine, sess := newTestEngine(t, nil)
	if err := sess.ALT.Tombstone(1); err != nil {
		t.Fatalf("tombstone: %v", err)
	}
	_, err := engine.ExecuteBatch(BatchRequest{Session: sess.Address, Program: nativeTransferProgram(0, 1, 10)})
	code, ok := CodeOf(err)
	if !ok || code != ErrStaleSlot {
		t.Fatalf("expected StaleSlot, got %v", err)
	}
	if sess.Sequence != 0 {
		t.Fatalf("expected no partial commit, got sequence %d", sess.Sequence)
	}
}

func TestExecuteBatchGuardRejectionAborts(t *testing.T) {
	rejecting := &Guard{Version: 1, Program: []Instr{{Op: OpAbort}}}
	blob, err := Encode(rejecting)
	if err != nil {
		t.Fatalf("encode guard: %v", err)
	}
	engine, sess := newTestEngine(t, [][]byte{blob})
	_, err = engine.ExecuteBatch(BatchRequest{Session: sess.Address, Program: nativeTransferProgram(0, 1, 10)})
	code, ok := CodeOf(err)
	if !ok || code != ErrGuardRejected {
		t.Fatalf("expected GuardRejected, got %v", err)
	}
	if engine.Store.NativeBalance(addrN(10)) != 10_000 {
		t.Fatalf("expected no balance change on guard rejection, got %d", engine.Store.NativeBalance(addrN(10)))
	}
}

func TestExecuteBatchOverflowAborts(t *testing.T) {
	engine, sess := newTestEngine(t, nil)
	_, err := engine.ExecuteBatch(BatchRequest{Session: sess.Address, Program: nativeTransferProgram(0, 1, 999_999)})
	code, ok := CodeOf(err)
	if !ok || code != ErrOverflow {
		t.Fatalf("expected Overflow, got %v", err)
	}
	if sess.Sequence != 0 {
		t.Fatalf("expected no partial commit, got sequence %d", sess.Sequence)
	}
}

func TestExecuteBatchInvalidatedSessionRejected(t *testing.T) {
	engine, sess := newTestEngine(t, nil)
	if err := engine.Sessions.InvalidateSession(sess.Address, sess.Owner); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, err := engine.ExecuteBatch(BatchRequest{Session: sess.Address, Program: nativeTransferProgram(0, 1, 1)})
	code, ok := CodeOf(err)
	if !ok || code != ErrSessionInvalidated {
		t.Fatalf("expected SessionInvalidated, got %v", err)
	}
}

func TestExecuteBatchUnregisteredSlotAborts(t *testing.T) {
	engine, sess := newTestEngine(t, nil)
	program := &Program{
		Version: 1,
		Ops: []Operation{{
			Kind:    OpNativeTransfer,
			Borrow:  Borrow{Write: 1 << 3}, // slot 3 was never registered
			Payload: EncodeNativeTransfer(NativeTransferPayload{FromSlot: 0, ToSlot: 3, Amount: 1}),
		}},
	}
	_, err := engine.ExecuteBatch(BatchRequest{Session: sess.Address, Program: program})
	code, ok := CodeOf(err)
	if !ok || code != ErrUnregisteredSlot {
		t.Fatalf("expected UnregisteredSlot, got %v", err)
	}
}
