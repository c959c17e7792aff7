package core

import (
	"errors"
	"strconv"
)

// ErrCode is the stable, wire-visible error discriminant (§6).
type ErrCode uint8

const (
	ErrOwnerMismatch      ErrCode = 0x01
	ErrSlotOccupied       ErrCode = 0x02
	ErrIndexOutOfRange    ErrCode = 0x03
	ErrStaleSlot          ErrCode = 0x04
	ErrAliasedBorrow      ErrCode = 0x05
	ErrBorrowConflict     ErrCode = 0x06
	ErrGuardRejected      ErrCode = 0x07
	ErrCPINotAllowed      ErrCode = 0x08
	ErrRoleMismatch       ErrCode = 0x09
	ErrOverflow           ErrCode = 0x0A
	ErrSessionInvalidated ErrCode = 0x0B
	ErrBadOpProgram       ErrCode = 0x0C
	ErrComputeExceeded    ErrCode = 0x0D

	// ErrUnregisteredSlot is named in §4.3's borrow policy prose but is not
	// one of the thirteen codes in §6's wire table (explicitly a "subset").
	// Assigned the next free value in the same space.
	ErrUnregisteredSlot ErrCode = 0x0E
	// ErrNotAllowlisted covers CPI-allowlist admin operations that reference
	// an address not currently present (§9 open question on Remove of an
	// absent entry); distinct from ErrCPINotAllowed, which is the per-batch
	// invocation-time failure.
	ErrNotAllowlisted ErrCode = 0x0F
	// ErrCapacityExceeded is ALT registration at capacity (§8 boundary
	// behavior), again named in prose but outside the §6 subset.
	ErrCapacityExceeded ErrCode = 0x10
	// ErrCPIFailed is a dispatch-stage OpCallRegistered invocation that
	// reached a registered program and failed there. Distinct from
	// ErrGuardRejected, which is the guard VM's own pre-dispatch rejection
	// (including a guard's Invoke opcode failing its CPI) — OpCallRegistered
	// never produces ErrGuardRejected.
	ErrCPIFailed ErrCode = 0x11
)

var codeNames = map[ErrCode]string{
	ErrOwnerMismatch:      "OwnerMismatch",
	ErrSlotOccupied:       "SlotOccupied",
	ErrIndexOutOfRange:    "IndexOutOfRange",
	ErrStaleSlot:          "StaleSlot",
	ErrAliasedBorrow:      "AliasedBorrow",
	ErrBorrowConflict:     "BorrowConflict",
	ErrGuardRejected:      "GuardRejected",
	ErrCPINotAllowed:      "CPINotAllowed",
	ErrRoleMismatch:       "RoleMismatch",
	ErrOverflow:           "Overflow",
	ErrSessionInvalidated: "SessionInvalidated",
	ErrBadOpProgram:       "BadOpProgram",
	ErrComputeExceeded:    "ComputeExceeded",
	ErrUnregisteredSlot:   "UnregisteredSlot",
	ErrNotAllowlisted:     "NotAllowlisted",
	ErrCapacityExceeded:   "CapacityExceeded",
	ErrCPIFailed:          "CPIFailed",
}

func (c ErrCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "Unknown"
}

// KernelError is a structured error carrying the §6 wire code plus enough
// context for an operator to locate the failure without log parsing (§7):
// the operation index within the batch, when applicable.
type KernelError struct {
	Code       ErrCode
	OpIndex    int // -1 if the error is not tied to a specific operation
	Underlying error
}

func (e *KernelError) Error() string {
	if e.Underlying != nil {
		if e.OpIndex >= 0 {
			return e.Code.String() + " at op " + strconv.Itoa(e.OpIndex) + ": " + e.Underlying.Error()
		}
		return e.Code.String() + ": " + e.Underlying.Error()
	}
	if e.OpIndex >= 0 {
		return e.Code.String() + " at op " + strconv.Itoa(e.OpIndex)
	}
	return e.Code.String()
}

func (e *KernelError) Unwrap() error { return e.Underlying }

// Is reports whether target is a *KernelError with the same code, so callers
// can use errors.Is(err, NewError(ErrStaleSlot, ...)) or compare codes via
// CodeOf.
func (e *KernelError) Is(target error) bool {
	var other *KernelError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewError builds a KernelError not tied to a specific operation index.
func NewError(code ErrCode, underlying error) *KernelError {
	return &KernelError{Code: code, OpIndex: -1, Underlying: underlying}
}

// NewOpError builds a KernelError tied to the given batch operation index.
func NewOpError(code ErrCode, opIndex int, underlying error) *KernelError {
	return &KernelError{Code: code, OpIndex: opIndex, Underlying: underlying}
}

// CodeOf extracts the ErrCode from err if it (or something it wraps) is a
// *KernelError. The second return is false for plain errors.
func CodeOf(err error) (ErrCode, bool) {
	var ke *KernelError
	if errors.As(err, &ke) {
		return ke.Code, true
	}
	return 0, false
}
