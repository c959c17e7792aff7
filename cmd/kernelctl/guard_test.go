package main

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"github.com/valence-kernel/valence/core"
)

func encodedTerminateGuard(t *testing.T) string {
	t.Helper()
	g := &core.Guard{Version: 1, Program: []core.Instr{{Op: core.OpTerminate}}}
	blob, err := core.Encode(g)
	if err != nil {
		t.Fatalf("encode guard: %v", err)
	}
	return hex.EncodeToString(blob)
}

func TestGuardDecodeCommandPrintsProgram(t *testing.T) {
	cmd := guardCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"decode", encodedTerminateGuard(t)})

	if _, err := cmd.ExecuteC(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "ops=1") || !strings.Contains(out.String(), "Terminate") {
		t.Fatalf("expected decoded program output, got %q", out.String())
	}
}

func TestGuardCostCommandPrintsWorstCase(t *testing.T) {
	cmd := guardCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"cost", encodedTerminateGuard(t)})

	if _, err := cmd.ExecuteC(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := core.MaxProgramCost(1)
	if got := strings.TrimSpace(out.String()); got != strconv.Itoa(want) {
		t.Fatalf("expected cost %d in output, got %q", want, got)
	}
}

func TestGuardDecodeCommandRejectsBadHex(t *testing.T) {
	cmd := guardCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"decode", "zz"})

	_, err := cmd.ExecuteC()
	if err == nil {
		t.Fatal("expected an error for invalid hex input")
	}
	if !strings.Contains(err.Error(), "decode hex blob") {
		t.Fatalf("expected wrapped hex-decode error, got %v", err)
	}
}
