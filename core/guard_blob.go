package core

// Compiled guard blob format (C4, §6): magic "GBV1", version, opcode count,
// constant pool, CPI manifest, opcode stream. The kernel only ever consumes
// the compiled form — the guard compiler (AST → opcodes) is explicitly a
// client-side, out-of-scope component (§1, §9 design notes).
//
// Encode/Decode round-trip byte-identically (§8 round-trip law).

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

var guardMagic = [4]byte{0x47, 0x42, 0x56, 0x31} // "GBV1"

const guardVersion = 1

// ManifestEntry binds an Invoke opcode's operand to an allowlist index and
// the role the target program is expected to present (I13: every Invoke
// index is in-range of the manifest).
type ManifestEntry struct {
	AllowlistIndex uint16
	ExpectedRole   Role
}

// Instr is one decoded opcode plus its 2-byte immediate operand, encoded for
// every opcode (a forward jump offset, a manifest index for Invoke, or a
// constant-pool index for CheckExpiry/CheckUsageLimit/CheckSignature).
type Instr struct {
	Op        Opcode
	Immediate uint16
}

// Guard is the decoded, in-memory form of a compiled guard blob.
type Guard struct {
	Version    uint8
	Constants  []uint64 // constant pool: expiry timestamps, usage-limit maxima, etc.
	Program    []Instr
	Manifest   []ManifestEntry
	RawLen     int // length of the original encoded form
}

// Encode serializes g back to its wire form. Re-encoding a blob that was
// just Decoded must reproduce byte-identical output (§8).
func Encode(g *Guard) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(guardMagic[:])
	buf.WriteByte(g.Version)

	writeU16 := func(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); buf.Write(b[:]) }
	writeU16(uint16(len(g.Program)))

	writeU32 := func(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); buf.Write(b[:]) }
	writeU32(uint32(len(g.Constants)))
	for _, c := range g.Constants {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], c)
		buf.Write(b[:])
	}

	writeU32(uint32(len(g.Manifest)))
	for _, m := range g.Manifest {
		writeU16(m.AllowlistIndex)
		buf.WriteByte(byte(m.ExpectedRole))
	}

	for _, ins := range g.Program {
		buf.WriteByte(byte(ins.Op))
		writeU16(ins.Immediate)
	}
	return buf.Bytes(), nil
}

// Decode parses a compiled guard blob, validating §4.4's well-formedness
// invariants: (I11) stream is well-formed, (I12) no opcode offsets point
// outside the stream, (I13) every Invoke index is in-range of the manifest.
// stepBudget is N_g — a blob with more opcodes is rejected at load time
// (§8 boundary behavior).
func Decode(blob []byte, stepBudget int) (*Guard, error) {
	r := bytes.NewReader(blob)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != guardMagic {
		return nil, NewError(ErrBadOpProgram, errors.New("bad guard magic"))
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, NewError(ErrBadOpProgram, err)
	}
	if version != guardVersion {
		return nil, NewError(ErrBadOpProgram, errors.New("unsupported guard version"))
	}

	opCount, err := readU16(r)
	if err != nil {
		return nil, NewError(ErrBadOpProgram, err)
	}
	if stepBudget > 0 && int(opCount) > stepBudget {
		return nil, NewError(ErrBadOpProgram, errors.New("guard program exceeds step budget"))
	}

	constCount, err := readU32(r)
	if err != nil {
		return nil, NewError(ErrBadOpProgram, err)
	}
	consts := make([]uint64, constCount)
	for i := range consts {
		v, err := readU64(r)
		if err != nil {
			return nil, NewError(ErrBadOpProgram, err)
		}
		consts[i] = v
	}

	manifestCount, err := readU32(r)
	if err != nil {
		return nil, NewError(ErrBadOpProgram, err)
	}
	manifest := make([]ManifestEntry, manifestCount)
	for i := range manifest {
		idx, err := readU16(r)
		if err != nil {
			return nil, NewError(ErrBadOpProgram, err)
		}
		roleByte, err := r.ReadByte()
		if err != nil {
			return nil, NewError(ErrBadOpProgram, err)
		}
		manifest[i] = ManifestEntry{AllowlistIndex: idx, ExpectedRole: Role(roleByte)}
	}

	program := make([]Instr, opCount)
	for i := range program {
		opByte, err := r.ReadByte()
		if err != nil {
			return nil, NewError(ErrBadOpProgram, err)
		}
		op := Opcode(opByte)
		if _, ok := OpcodeCost[op]; !ok {
			return nil, NewError(ErrBadOpProgram, errors.New("unknown opcode in guard stream"))
		}
		imm, err := readU16(r)
		if err != nil {
			return nil, NewError(ErrBadOpProgram, err)
		}
		program[i] = Instr{Op: op, Immediate: imm}
	}
	if r.Len() != 0 {
		return nil, NewError(ErrBadOpProgram, errors.New("trailing bytes after guard program"))
	}

	g := &Guard{Version: version, Constants: consts, Program: program, Manifest: manifest, RawLen: len(blob)}
	if err := validateControlFlow(g); err != nil {
		return nil, err
	}
	if err := validateManifestRefs(g); err != nil {
		return nil, err
	}
	return g, nil
}

// validateControlFlow enforces (I12): Jump/JumpIfFalse offsets are
// forward-only and land inside the stream or exactly at its end, where the
// VM treats falling off the stream as a reject (§4.4: "offsets validated at
// guard-load to prevent loops").
func validateControlFlow(g *Guard) error {
	for i, ins := range g.Program {
		switch ins.Op {
		case OpJump, OpJumpIfFalse:
			target := i + 1 + int(ins.Immediate)
			if ins.Immediate == 0 {
				return NewError(ErrBadOpProgram, errors.New("zero-offset jump"))
			}
			if target <= i || target > len(g.Program) {
				return NewError(ErrBadOpProgram, errors.New("jump target out of range or non-forward"))
			}
		}
	}
	return nil
}

// validateManifestRefs enforces (I13): every Invoke immediate must index a
// valid manifest entry.
func validateManifestRefs(g *Guard) error {
	for _, ins := range g.Program {
		if ins.Op == OpInvoke {
			if int(ins.Immediate) >= len(g.Manifest) {
				return NewError(ErrBadOpProgram, errors.New("invoke references out-of-range manifest entry"))
			}
		}
	}
	return nil
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
