package core

// Direct operation fast path (C8, §4.7): a single NativeTransfer or
// TokenTransfer bypassing operation-program parsing entirely. It skips only
// the wire decoding: the request is wrapped in a one-op Program and run
// through ExecuteBatch, so its observable effects are identical to the
// one-op batch path (§4.7).

import "errors"

// DirectKind restricts the fast path to the two operation kinds §4.7
// names explicitly.
type DirectKind uint8

const (
	DirectNativeTransfer DirectKind = iota
	DirectTokenTransfer
)

// DirectRequest is the fast path's input — the same per-operation shape
// ExecuteBatch would build for a single op, without the program envelope.
type DirectRequest struct {
	Session    Address
	Kind       DirectKind
	Borrow     Borrow
	Payload    []byte
	Caller     Address
	Timestamp  int64
	SigData    map[string][]byte
	GuardInput []byte // forwarded to EvalContext.ProofData, same as ExecuteBatch
}

// ExecuteDirect runs exactly one NativeTransfer or TokenTransfer against
// req.Session, applying the identical resolve/borrow/guard/dispatch
// sequence ExecuteBatch applies to a single-operation program (§8 scenario:
// fast path ≡ one-op batch). The session's sequence counter advances by
// the same amount a one-op batch would (I3).
func (e *Engine) ExecuteDirect(req DirectRequest) (*BatchResult, error) {
	var kind OpKind
	switch req.Kind {
	case DirectNativeTransfer:
		kind = OpNativeTransfer
	case DirectTokenTransfer:
		kind = OpTokenTransfer
	default:
		return nil, NewError(ErrBadOpProgram, errors.New("unsupported direct operation kind"))
	}

	program := &Program{
		Version:     1,
		BorrowTotal: borrowPopcount(req.Borrow),
		Ops:         []Operation{{Kind: kind, Borrow: req.Borrow, Payload: req.Payload}},
	}
	return e.ExecuteBatch(BatchRequest{
		Session:    req.Session,
		Program:    program,
		Caller:     req.Caller,
		Timestamp:  req.Timestamp,
		SigData:    req.SigData,
		GuardInput: req.GuardInput,
	})
}

func borrowPopcount(b Borrow) uint8 {
	n := 0
	mask := b.Read | b.Write
	for mask != 0 {
		n++
		mask &= mask - 1
	}
	return uint8(n)
}
