package core

// Batch execution engine (C6, §4.6): parses an operation program, resolves
// accounts via the ALT, enforces borrow rules, runs the session's guards,
// and dispatches operations — sequentially, with no partial-commit mode.
// The per-op flow is resolve → borrow check → build a per-call context →
// execute → propagate the result, with a switch over the operation kind
// selecting the handler to run.

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// ProgramInvoker performs the synchronous cross-program call behind
// CallRegistered, and (through guardInvokerAdapter) behind a guard's Invoke
// opcode. TokenTransfer goes through TokenProgram instead. The host's actual CPI transport is
// given (§1); this is the kernel-side contract a real deployment wires to
// it, and what tests/tooling wire to an in-memory double.
type ProgramInvoker interface {
	Invoke(target Address, caller Address, accounts []Address, data []byte) error
}

// TokenProgram is the interface TokenTransfer dispatches to, separate from
// ProgramInvoker: a token program moves balances in Store directly rather
// than receive an opaque data payload.
type TokenProgram interface {
	Transfer(store *Store, mint, src, dst Address, amount uint64) error
}

// DefaultTokenProgram moves balances directly in the kernel's own Store,
// standing in for a real SPL-token-style external program.
type DefaultTokenProgram struct{}

func (DefaultTokenProgram) Transfer(store *Store, mint, src, dst Address, amount uint64) error {
	return store.TransferToken(mint, src, dst, amount)
}

// Engine ties together the session service, store, function registry, and
// guard VM to execute operation programs (§4.6).
type Engine struct {
	Sessions   *SessionService
	Store      *Store
	Functions  FunctionRegistry
	Registered ProgramInvoker // CallRegistered dispatch target
	TokenProg  TokenProgram
	Limits     EngineLimits
}

// EngineLimits mirrors pkg/config.Limits without importing it — core must
// not depend on pkg/config to avoid an import cycle (cmd packages import
// both).
type EngineLimits struct {
	ALTCapacity     int
	MaxOps          int
	GuardStackDepth int
	GuardStepBudget int
}

// NewEngine wires an engine with the given limits; TokenProg is set to
// DefaultTokenProgram (dispatch also falls back to it if TokenProg is nil).
func NewEngine(sessions *SessionService, store *Store, functions FunctionRegistry, registered ProgramInvoker, limits EngineLimits) *Engine {
	tp := TokenProgram(DefaultTokenProgram{})
	return &Engine{Sessions: sessions, Store: store, Functions: functions, Registered: registered, TokenProg: tp, Limits: limits}
}

// AccountSet is the host-provided list of concrete accounts participating
// in the transaction, addressable by non-ALT pseudo-index (§4.2: "Host
// provided accounts... are passed out-of-band with fixed pseudo-indices").
// Pseudo-indices are named fields rather than bare integers. ExecuteBatch
// does not read these fields, and ExecuteDirect does not set them.
type AccountSet struct {
	Payer  Address
	System Address
}

// BatchRequest is the full input to ExecuteBatch (§4.6 "Inputs").
type BatchRequest struct {
	Session    Address
	Program    *Program
	Accounts   AccountSet
	GuardInput []byte // optional proof bytes forwarded into EvalContext
	Caller     Address
	Timestamp  int64
	SigData    map[string][]byte
}

// BatchResult reports the outcome of a successful batch (§8: sequence
// advances by exactly 1 on success).
type BatchResult struct {
	SequenceAfter uint64
}

// ExecuteBatch runs req.Program against req.Session in declared order
// (§4.6 "Execution sequence"). Any failure aborts the whole batch: no
// partial commit, matching host transactional atomicity (§4.6
// "Atomicity"). Edge case (a): an empty op program succeeds and still
// advances the counter by 1.
func (e *Engine) ExecuteBatch(req BatchRequest) (*BatchResult, error) {
	sess, err := e.Sessions.GetSession(req.Session)
	if err != nil {
		return nil, err
	}
	if sess.IsInvalidated() {
		return nil, NewError(ErrSessionInvalidated, nil)
	}
	if req.Program == nil {
		return nil, NewError(ErrBadOpProgram, errors.New("nil operation program"))
	}
	if e.Limits.MaxOps > 0 && len(req.Program.Ops) > e.Limits.MaxOps {
		return nil, NewError(ErrBadOpProgram, errors.New("op_count exceeds K_ops"))
	}
	if int(req.Program.BorrowTotal) > sess.ALT.Capacity() {
		return nil, NewError(ErrBadOpProgram, errors.New("borrow_total exceeds B_alt"))
	}

	vm := NewVM(sess.CPIAllowlist, guardInvokerAdapter{e}, e.Limits.GuardStackDepth, e.Limits.GuardStepBudget)
	locks := &BatchLocks{}
	usageLimitReached := false

	for i, op := range req.Program.Ops {
		if err := e.resolveAndCheck(sess, op, i); err != nil {
			return nil, err
		}
		if err := locks.Acquire(op.Borrow); err != nil {
			return nil, NewOpError(ErrBorrowConflict, i, nil)
		}

		if len(sess.Guards) > 0 {
			ctx := &EvalContext{
				Session: sess, Sequence: sess.Sequence, Timestamp: req.Timestamp,
				Caller: req.Caller, OperationIdx: i, SignatureData: req.SigData, ProofData: req.GuardInput,
			}
			for _, g := range sess.Guards {
				hit, err := vm.Eval(g, ctx)
				if err != nil {
					return nil, err
				}
				usageLimitReached = usageLimitReached || hit
			}
		}

		if err := e.dispatch(sess, op, i); err != nil {
			return nil, err
		}
		locks.Release(op.Borrow)
	}

	if err := e.Sessions.AdvanceSequence(sess.Address); err != nil {
		return nil, err
	}
	_ = usageLimitReached // committed implicitly via AdvanceSequence; see §4.6 atomicity note

	logrus.WithFields(logrus.Fields{"session": sess.Address.String(), "ops": len(req.Program.Ops)}).Info("batch executed")
	return &BatchResult{SequenceAfter: sess.Sequence}, nil
}

// resolveAndCheck implements step 1 (Resolve) and the mask-shape half of
// step 2 (Borrow-check) from §4.6: map masks to ALT slots, verify every
// referenced slot has been registered (a tombstoned slot passes here and
// fails StaleSlot at dispatch), and validate the borrow's own internal
// invariants ((I9), write⊆filled). The program's borrow_total is checked
// against ALT capacity once per batch in ExecuteBatch.
func (e *Engine) resolveAndCheck(sess *Session, op Operation, idx int) error {
	if err := op.Borrow.Validate(sess.ALT.Capacity()); err != nil {
		return NewOpError(CodeOrBadProgram(err), idx, nil)
	}
	if err := op.Borrow.CheckAgainstFilled(sess.ALT.FilledMask()); err != nil {
		return NewOpError(CodeOrBadProgram(err), idx, nil)
	}
	return nil
}

// CodeOrBadProgram extracts the ErrCode carried by a *KernelError, falling
// back to BadOpProgram if err isn't one (defensive — every error produced
// in this package is a *KernelError).
func CodeOrBadProgram(err error) ErrCode {
	if c, ok := CodeOf(err); ok {
		return c
	}
	return ErrBadOpProgram
}

// dispatch performs step 4 (Dispatch) of §4.6 for one operation kind.
func (e *Engine) dispatch(sess *Session, op Operation, idx int) error {
	switch op.Kind {
	case OpNoop:
		return nil

	case OpNativeTransfer:
		p, err := DecodeNativeTransfer(op.Payload)
		if err != nil {
			return NewOpError(ErrBadOpProgram, idx, err)
		}
		fromAddr, fromRole, err := sess.ALT.Resolve(p.FromSlot)
		if err != nil {
			return NewOpError(CodeOrBadProgram(err), idx, nil)
		}
		toAddr, toRole, err := sess.ALT.Resolve(p.ToSlot)
		if err != nil {
			return NewOpError(CodeOrBadProgram(err), idx, nil)
		}
		if fromRole != RoleSystem && fromRole != RoleData || toRole != RoleSystem && toRole != RoleData {
			return NewOpError(ErrRoleMismatch, idx, nil)
		}
		if err := e.Store.TransferNative(fromAddr, toAddr, p.Amount); err != nil {
			return NewOpError(CodeOrBadProgram(err), idx, nil)
		}
		return nil

	case OpTokenTransfer:
		p, err := DecodeTokenTransfer(op.Payload)
		if err != nil {
			return NewOpError(ErrBadOpProgram, idx, err)
		}
		mintAddr, mintRole, err := sess.ALT.Resolve(p.MintSlot)
		if err != nil {
			return NewOpError(CodeOrBadProgram(err), idx, nil)
		}
		srcAddr, srcRole, err := sess.ALT.Resolve(p.SrcSlot)
		if err != nil {
			return NewOpError(CodeOrBadProgram(err), idx, nil)
		}
		dstAddr, dstRole, err := sess.ALT.Resolve(p.DstSlot)
		if err != nil {
			return NewOpError(CodeOrBadProgram(err), idx, nil)
		}
		if _, _, err := sess.ALT.Resolve(p.AuthoritySlot); err != nil {
			return NewOpError(CodeOrBadProgram(err), idx, nil)
		}
		if mintRole != RoleToken || srcRole != RoleToken || dstRole != RoleToken {
			return NewOpError(ErrRoleMismatch, idx, nil)
		}
		tp := e.TokenProg
		if tp == nil {
			tp = DefaultTokenProgram{}
		}
		if err := tp.Transfer(e.Store, mintAddr, srcAddr, dstAddr, p.Amount); err != nil {
			return NewOpError(CodeOrBadProgram(err), idx, nil)
		}
		return nil

	case OpCallRegistered:
		p, err := DecodeCallRegistered(op.Payload)
		if err != nil {
			return NewOpError(ErrBadOpProgram, idx, err)
		}
		target, ok := e.Functions.Resolve(p.FunctionID)
		if !ok {
			return NewOpError(ErrBadOpProgram, idx, errors.New("unknown function_id"))
		}
		accounts := make([]Address, len(p.ArgSlots))
		for i, slot := range p.ArgSlots {
			addr, _, err := sess.ALT.Resolve(slot)
			if err != nil {
				return NewOpError(CodeOrBadProgram(err), idx, nil)
			}
			accounts[i] = addr
		}
		if e.Registered == nil {
			return NewOpError(ErrBadOpProgram, idx, errors.New("no program invoker configured"))
		}
		if err := e.Registered.Invoke(target, sess.Owner, accounts, p.Data); err != nil {
			return NewOpError(ErrCPIFailed, idx, err)
		}
		return nil

	case OpWriteData:
		p, err := DecodeWriteData(op.Payload)
		if err != nil {
			return NewOpError(ErrBadOpProgram, idx, err)
		}
		addr, role, err := sess.ALT.Resolve(p.Slot)
		if err != nil {
			return NewOpError(CodeOrBadProgram(err), idx, nil)
		}
		if role != RoleData {
			return NewOpError(ErrRoleMismatch, idx, nil)
		}
		if err := e.Store.WriteData(addr, p.Offset, p.Bytes); err != nil {
			return NewOpError(CodeOrBadProgram(err), idx, nil)
		}
		return nil

	default:
		return NewOpError(ErrBadOpProgram, idx, errors.New("unknown operation kind"))
	}
}

// guardInvokerAdapter lets the Engine's ProgramInvoker double as the guard
// VM's CPIInvoker without exposing engine internals to core/guard_vm.go —
// a guard's Invoke opcode is "a fixed-shape argument frame" (§4.4), here
// just the raw proof bytes forwarded with no extra accounts.
type guardInvokerAdapter struct{ e *Engine }

func (a guardInvokerAdapter) Invoke(target Address, ctx *EvalContext, argFrame []byte) (bool, error) {
	if a.e.Registered == nil {
		return false, errors.New("no program invoker configured for guard CPI")
	}
	err := a.e.Registered.Invoke(target, ctx.Caller, nil, argFrame)
	return err == nil, nil
}
