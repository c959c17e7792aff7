package core

// Operation program wire format (C6, §6): little-endian header
// {version, op_count, borrow_total, reserved} followed by op_count records
// {opcode, read_mask u32, write_mask u32, payload_len u16, payload}.

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// OpKind discriminates the five operation kinds (§4.6).
type OpKind uint8

const (
	OpNativeTransfer OpKind = iota
	OpTokenTransfer
	OpCallRegistered
	OpWriteData
	OpNoop
)

// Operation is one decoded record from an operation program.
type Operation struct {
	Kind    OpKind
	Borrow  Borrow
	Payload []byte
}

// Program is a fully decoded operation program (§4.6, §6).
type Program struct {
	Version     uint8
	BorrowTotal uint8
	Ops         []Operation
}

// DecodeProgram parses the wire format, enforcing the header bounds
// (op_count ≤ K_ops, §3) structurally — semantic borrow-total cross
// validation happens in the engine once ALT capacity is known.
func DecodeProgram(data []byte, maxOps int) (*Program, error) {
	r := bytes.NewReader(data)
	readByte := func() (byte, error) { return r.ReadByte() }

	version, err := readByte()
	if err != nil {
		return nil, NewError(ErrBadOpProgram, err)
	}
	opCount, err := readByte()
	if err != nil {
		return nil, NewError(ErrBadOpProgram, err)
	}
	if maxOps > 0 && int(opCount) > maxOps {
		return nil, NewError(ErrBadOpProgram, errors.New("op_count exceeds K_ops"))
	}
	borrowTotal, err := readByte()
	if err != nil {
		return nil, NewError(ErrBadOpProgram, err)
	}
	if _, err := readByte(); err != nil { // reserved
		return nil, NewError(ErrBadOpProgram, err)
	}

	ops := make([]Operation, opCount)
	for i := range ops {
		opByte, err := readByte()
		if err != nil {
			return nil, NewError(ErrBadOpProgram, err)
		}
		readMask, err := readU32(r)
		if err != nil {
			return nil, NewError(ErrBadOpProgram, err)
		}
		writeMask, err := readU32(r)
		if err != nil {
			return nil, NewError(ErrBadOpProgram, err)
		}
		payloadLen, err := readU16(r)
		if err != nil {
			return nil, NewError(ErrBadOpProgram, err)
		}
		payload := make([]byte, payloadLen)
		if payloadLen > 0 {
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil, NewError(ErrBadOpProgram, err)
			}
		}
		ops[i] = Operation{
			Kind:    OpKind(opByte),
			Borrow:  Borrow{Read: readMask, Write: writeMask},
			Payload: payload,
		}
	}
	if r.Len() != 0 {
		return nil, NewError(ErrBadOpProgram, errors.New("trailing bytes after op program"))
	}
	return &Program{Version: version, BorrowTotal: borrowTotal, Ops: ops}, nil
}

// EncodeProgram serializes p back to wire form — used by kernelctl to
// assemble test/operator batches and by the round-trip tests.
func EncodeProgram(p *Program) []byte {
	var buf bytes.Buffer
	buf.WriteByte(p.Version)
	buf.WriteByte(byte(len(p.Ops)))
	buf.WriteByte(p.BorrowTotal)
	buf.WriteByte(0) // reserved
	for _, op := range p.Ops {
		buf.WriteByte(byte(op.Kind))
		var b4 [4]byte
		binary.LittleEndian.PutUint32(b4[:], op.Borrow.Read)
		buf.Write(b4[:])
		binary.LittleEndian.PutUint32(b4[:], op.Borrow.Write)
		buf.Write(b4[:])
		var b2 [2]byte
		binary.LittleEndian.PutUint16(b2[:], uint16(len(op.Payload)))
		buf.Write(b2[:])
		buf.Write(op.Payload)
	}
	return buf.Bytes()
}

// --- Payload helpers for the operation kinds named in §4.6 ---

// NativeTransferPayload decodes {from_slot u8, to_slot u8, amount u64}.
type NativeTransferPayload struct {
	FromSlot int
	ToSlot   int
	Amount   uint64
}

func DecodeNativeTransfer(p []byte) (NativeTransferPayload, error) {
	if len(p) != 10 {
		return NativeTransferPayload{}, errBadPayload
	}
	return NativeTransferPayload{
		FromSlot: int(p[0]),
		ToSlot:   int(p[1]),
		Amount:   binary.LittleEndian.Uint64(p[2:10]),
	}, nil
}

func EncodeNativeTransfer(v NativeTransferPayload) []byte {
	out := make([]byte, 10)
	out[0], out[1] = byte(v.FromSlot), byte(v.ToSlot)
	binary.LittleEndian.PutUint64(out[2:10], v.Amount)
	return out
}

// TokenTransferPayload decodes {mint_slot, src_slot, dst_slot,
// authority_slot u8 each, amount u64}.
type TokenTransferPayload struct {
	MintSlot      int
	SrcSlot       int
	DstSlot       int
	AuthoritySlot int
	Amount        uint64
}

func DecodeTokenTransfer(p []byte) (TokenTransferPayload, error) {
	if len(p) != 12 {
		return TokenTransferPayload{}, errBadPayload
	}
	return TokenTransferPayload{
		MintSlot:      int(p[0]),
		SrcSlot:       int(p[1]),
		DstSlot:       int(p[2]),
		AuthoritySlot: int(p[3]),
		Amount:        binary.LittleEndian.Uint64(p[4:12]),
	}, nil
}

func EncodeTokenTransfer(v TokenTransferPayload) []byte {
	out := make([]byte, 12)
	out[0], out[1], out[2], out[3] = byte(v.MintSlot), byte(v.SrcSlot), byte(v.DstSlot), byte(v.AuthoritySlot)
	binary.LittleEndian.PutUint64(out[4:12], v.Amount)
	return out
}

// CallRegisteredPayload decodes {function_id u32, arg_slot_count u8,
// arg_slots []u8, data []byte (remainder)}.
type CallRegisteredPayload struct {
	FunctionID uint32
	ArgSlots   []int
	Data       []byte
}

func DecodeCallRegistered(p []byte) (CallRegisteredPayload, error) {
	if len(p) < 5 {
		return CallRegisteredPayload{}, errBadPayload
	}
	fnID := binary.LittleEndian.Uint32(p[0:4])
	n := int(p[4])
	if len(p) < 5+n {
		return CallRegisteredPayload{}, errBadPayload
	}
	slots := make([]int, n)
	for i := 0; i < n; i++ {
		slots[i] = int(p[5+i])
	}
	return CallRegisteredPayload{FunctionID: fnID, ArgSlots: slots, Data: p[5+n:]}, nil
}

func EncodeCallRegistered(v CallRegisteredPayload) []byte {
	out := make([]byte, 5+len(v.ArgSlots)+len(v.Data))
	binary.LittleEndian.PutUint32(out[0:4], v.FunctionID)
	out[4] = byte(len(v.ArgSlots))
	for i, s := range v.ArgSlots {
		out[5+i] = byte(s)
	}
	copy(out[5+len(v.ArgSlots):], v.Data)
	return out
}

// WriteDataPayload decodes {slot u8, offset u32, bytes []byte (remainder)}.
type WriteDataPayload struct {
	Slot   int
	Offset uint32
	Bytes  []byte
}

func DecodeWriteData(p []byte) (WriteDataPayload, error) {
	if len(p) < 5 {
		return WriteDataPayload{}, errBadPayload
	}
	return WriteDataPayload{Slot: int(p[0]), Offset: binary.LittleEndian.Uint32(p[1:5]), Bytes: p[5:]}, nil
}

func EncodeWriteData(v WriteDataPayload) []byte {
	out := make([]byte, 5+len(v.Bytes))
	out[0] = byte(v.Slot)
	binary.LittleEndian.PutUint32(out[1:5], v.Offset)
	copy(out[5:], v.Bytes)
	return out
}

var errBadPayload = errors.New("op program: malformed payload")
