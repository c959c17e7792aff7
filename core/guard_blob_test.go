package core

import (
	"bytes"
	"testing"
)

func simpleGuard() *Guard {
	return &Guard{
		Version:   1,
		Constants: []uint64{100, 200},
		Manifest:  []ManifestEntry{{AllowlistIndex: 0, ExpectedRole: RoleProgram}},
		Program: []Instr{
			{Op: OpCheckOwner},
			{Op: OpTerminate},
		},
	}
}

func TestGuardEncodeDecodeRoundTrip(t *testing.T) {
	g := simpleGuard()
	blob, err := Encode(g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(blob, 64)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	reencoded, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(blob, reencoded) {
		t.Fatalf("expected byte-identical round trip")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	blob := []byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0}
	if _, err := Decode(blob, 64); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestDecodeRejectsExceedingStepBudget(t *testing.T) {
	g := simpleGuard()
	blob, err := Encode(g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = Decode(blob, 1)
	code, ok := CodeOf(err)
	if !ok || code != ErrBadOpProgram {
		t.Fatalf("expected BadOpProgram for oversized program, got %v", err)
	}
}

func TestDecodeRejectsNonForwardJump(t *testing.T) {
	g := &Guard{
		Version: 1,
		Program: []Instr{
			{Op: OpJump, Immediate: 0}, // zero offset: not strictly forward
			{Op: OpTerminate},
		},
	}
	blob, err := Encode(g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(blob, 64); err == nil {
		t.Fatalf("expected rejection of zero-offset jump")
	}
}

func TestDecodeRejectsOutOfRangeJump(t *testing.T) {
	g := &Guard{
		Version: 1,
		Program: []Instr{
			{Op: OpJump, Immediate: 50}, // lands far past the end of the stream
			{Op: OpTerminate},
		},
	}
	blob, err := Encode(g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(blob, 64); err == nil {
		t.Fatalf("expected rejection of out-of-range jump target")
	}
}

func TestDecodeRejectsOutOfRangeManifestRef(t *testing.T) {
	g := &Guard{
		Version: 1,
		Program: []Instr{
			{Op: OpInvoke, Immediate: 3}, // no manifest entries exist
			{Op: OpTerminate},
		},
	}
	blob, err := Encode(g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(blob, 64); err == nil {
		t.Fatalf("expected rejection of out-of-range Invoke manifest index")
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	g := simpleGuard()
	blob, err := Encode(g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	blob = append(blob, 0xFF)
	if _, err := Decode(blob, 64); err == nil {
		t.Fatalf("expected rejection of trailing bytes")
	}
}

func TestDecodeRejectsTruncatedBlob(t *testing.T) {
	g := simpleGuard()
	blob, err := Encode(g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	truncated := blob[:len(blob)-1]
	if _, err := Decode(truncated, 64); err == nil {
		t.Fatalf("expected rejection of truncated blob (short read must not be silently accepted)")
	}
}
