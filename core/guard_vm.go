package core

// Guard opcode VM (C4, §4.4): a bounded stack machine, cooperative and
// single-threaded — there is no yield point inside it. The internal stack
// returns errors rather than panicking on misuse: a guard program's
// *content* is untrusted input from the client-side compiler (§1), so
// overflow/underflow must be a rejected program, not a host crash.

import (
	"errors"
	"sync"
)

// EvalContext is the per-operation evaluation context supplied to the VM
// (§4.4).
type EvalContext struct {
	Session       *Session
	Sequence      uint64
	Timestamp     int64
	Caller        Address
	OperationIdx  int
	SignatureData map[string][]byte // principal name -> authorization proof, for CheckSignature
	ProofData     []byte            // optional per-invocation proof blob
}

// CPIInvoker performs the synchronous cross-program call behind the Invoke
// opcode. Allowlist membership is checked by the VM before Invoke is
// called; the invoker only needs to run the call and report pass/fail.
type CPIInvoker interface {
	Invoke(target Address, ctx *EvalContext, argFrame []byte) (bool, error)
}

type guardStack struct {
	data     []bool
	maxDepth int
}

func newGuardStack(maxDepth int) *guardStack {
	return &guardStack{data: make([]bool, 0, maxDepth), maxDepth: maxDepth}
}

func (s *guardStack) push(v bool) error {
	if len(s.data) >= s.maxDepth {
		return NewError(ErrBadOpProgram, errors.New("guard stack overflow"))
	}
	s.data = append(s.data, v)
	return nil
}

func (s *guardStack) pop() (bool, error) {
	if len(s.data) == 0 {
		return false, NewError(ErrBadOpProgram, errors.New("guard stack underflow"))
	}
	v := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return v, nil
}

// VM evaluates compiled guard programs against an allowlist and an
// optional CPI invoker.
type VM struct {
	Allowlist  *CPIAllowlist
	Invoker    CPIInvoker
	StackDepth int // S_g
	StepBudget int // N_g
}

// NewVM constructs a guard VM bound to the given allowlist and invoker.
func NewVM(allowlist *CPIAllowlist, invoker CPIInvoker, stackDepth, stepBudget int) *VM {
	return &VM{Allowlist: allowlist, Invoker: invoker, StackDepth: stackDepth, StepBudget: stepBudget}
}

// Eval runs g once against ctx (§4.4's evaluation contract: evaluated once
// per operation). Returns nil on Terminate (accept); a *KernelError with
// code GuardRejected on Abort, on running off the end of the stream, or when
// a guard Invoke's CPI returns an error; CPINotAllowed when an Invoke target
// is not allowlisted; ComputeExceeded when the step budget runs out; and
// BadOpProgram for malformed programs (stack overflow/underflow, bad
// constant index). usageLimitHit is true
// if a CheckUsageLimit opcode succeeded during this run — the caller
// commits the usage counter only on overall batch success (§4.6
// atomicity).
func (vm *VM) Eval(g *Guard, ctx *EvalContext) (usageLimitHit bool, err error) {
	stack := newGuardStack(vm.StackDepth)
	pc := 0
	steps := 0
	for pc < len(g.Program) {
		steps++
		if vm.StepBudget > 0 && steps > vm.StepBudget {
			return usageLimitHit, NewOpError(ErrComputeExceeded, ctx.OperationIdx, errors.New("guard step budget exceeded"))
		}
		ins := g.Program[pc]
		switch ins.Op {
		case OpCheckOwner:
			if err := stack.push(ctx.Session != nil && ctx.Caller == ctx.Session.Owner); err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
		case OpCheckExpiry:
			expiry, err := constAt(g, int(ins.Immediate))
			if err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
			// A non-zero session ExpiryOverride (set by UpdateSession)
			// replaces the guard's own expiry constant.
			if ctx.Session != nil && ctx.Session.ExpiryOverride != 0 {
				expiry = ctx.Session.ExpiryOverride
			}
			if err := stack.push(uint64(ctx.Timestamp) <= expiry); err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
		case OpCheckUsageLimit:
			max, err := constAt(g, int(ins.Immediate))
			if err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
			ok := ctx.Sequence < max
			if ok {
				usageLimitHit = true
			}
			if err := stack.push(ok); err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
		case OpCheckSignature:
			principal, err := constName(g, int(ins.Immediate))
			if err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
			_, authorized := ctx.SignatureData[principal]
			if err := stack.push(authorized); err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
		case OpInvoke:
			ok, err := vm.invoke(g, ins, ctx)
			if err != nil {
				return usageLimitHit, err
			}
			if err := stack.push(ok); err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
		case OpNot:
			v, err := stack.pop()
			if err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
			if err := stack.push(!v); err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
		case OpAnd:
			b, err := stack.pop()
			if err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
			a, err := stack.pop()
			if err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
			if err := stack.push(a && b); err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
		case OpOr:
			b, err := stack.pop()
			if err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
			a, err := stack.pop()
			if err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
			if err := stack.push(a || b); err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
		case OpJumpIfFalse:
			v, err := stack.pop()
			if err != nil {
				return usageLimitHit, guardFail(ctx, err)
			}
			if !v {
				pc = pc + 1 + int(ins.Immediate)
				continue
			}
		case OpJump:
			pc = pc + 1 + int(ins.Immediate)
			continue
		case OpTerminate:
			return usageLimitHit, nil
		case OpAbort:
			return usageLimitHit, NewOpError(ErrGuardRejected, ctx.OperationIdx, nil)
		default:
			return usageLimitHit, guardFail(ctx, errors.New("unhandled opcode"))
		}
		pc++
	}
	// Falling off the end of the stream without an explicit Terminate/Abort
	// is treated as an implicit reject — a well-formed guard always ends
	// with one of the two halt opcodes, but a defensive kernel must not
	// treat "ran out of instructions" as success.
	return usageLimitHit, NewOpError(ErrGuardRejected, ctx.OperationIdx, errors.New("guard stream ended without Terminate/Abort"))
}

func (vm *VM) invoke(g *Guard, ins Instr, ctx *EvalContext) (bool, error) {
	entry := g.Manifest[ins.Immediate] // in-range, validated at Decode time (I13)
	if vm.Allowlist == nil || !vm.Allowlist.ContainsIndex(entry.AllowlistIndex) {
		return false, NewOpError(ErrCPINotAllowed, ctx.OperationIdx, nil)
	}
	if vm.Invoker == nil {
		return false, NewOpError(ErrCPINotAllowed, ctx.OperationIdx, errors.New("no CPI invoker configured"))
	}
	target, err := vm.Allowlist.AddressAt(entry.AllowlistIndex)
	if err != nil {
		return false, NewOpError(ErrCPINotAllowed, ctx.OperationIdx, err)
	}
	ok, err := vm.Invoker.Invoke(target, ctx, ctx.ProofData)
	if err != nil {
		return false, NewOpError(ErrGuardRejected, ctx.OperationIdx, err)
	}
	return ok, nil
}

func guardFail(ctx *EvalContext, err error) error {
	return NewOpError(ErrBadOpProgram, ctx.OperationIdx, err)
}

func constAt(g *Guard, idx int) (uint64, error) {
	if idx < 0 || idx >= len(g.Constants) {
		return 0, errors.New("constant pool index out of range")
	}
	return g.Constants[idx], nil
}

// constName interprets a constant-pool slot as a principal name. The pool
// is a flat []uint64 (§6 encodes a "constant pool" without mandating its
// element type); CheckSignature stores principal names as the first 8 bytes
// of their content hash read big-endian, matched against SignatureData keys supplied out of
// band by the caller, avoiding a second, string-typed constant pool.
func constName(g *Guard, idx int) (string, error) {
	v, err := constAt(g, idx)
	if err != nil {
		return "", err
	}
	principalNameCacheMu.RLock()
	name, ok := principalNameCache[v]
	principalNameCacheMu.RUnlock()
	if ok {
		return name, nil
	}
	return "", errors.New("unknown principal constant")
}

// principalNameCache maps a principal's constant-pool value (its content
// hash, truncated) back to the string key used in EvalContext.SignatureData,
// populated by RegisterPrincipalName. Guards may be evaluated concurrently
// across sessions (§5: disjoint-ALT sessions run in parallel), so access is
// mutex-guarded.
var (
	principalNameCacheMu sync.RWMutex
	principalNameCache   = map[uint64]string{}
)

// RegisterPrincipalName associates name with the constant value a compiled
// guard uses to refer to it, letting CheckSignature resolve constant-pool
// entries back to SignatureData keys. Client-side guard compilers compute
// the same mapping deterministically (ContentHash(name) truncated to
// uint64) so no kernel-side registration round trip is required in
// practice; this is exposed for tests and local tooling.
func RegisterPrincipalName(name string) uint64 {
	v := principalConst(name)
	principalNameCacheMu.Lock()
	principalNameCache[v] = name
	principalNameCacheMu.Unlock()
	return v
}

func principalConst(name string) uint64 {
	h := ContentHash([]byte(name))
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(h[i])
	}
	return v
}
