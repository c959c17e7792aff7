package utils

import (
	"os"
	"testing"
)

func TestEnvOrDefaultKernelctlEnv(t *testing.T) {
	const key = "VALENCE_KERNELCTL_ENV_TEST"
	_ = os.Unsetenv(key)
	if got := EnvOrDefault(key, "dev"); got != "dev" {
		t.Fatalf("expected fallback %q, got %q", "dev", got)
	}
	_ = os.Setenv(key, "staging")
	t.Cleanup(func() { _ = os.Unsetenv(key) })
	if got := EnvOrDefault(key, "dev"); got != "staging" {
		t.Fatalf("expected %q, got %q", "staging", got)
	}
}

func TestEnvOrDefaultIntGuardStepBudget(t *testing.T) {
	const key = "VALENCE_GUARD_STEP_BUDGET_TEST"
	_ = os.Unsetenv(key)
	if got := EnvOrDefaultInt(key, 2048); got != 2048 {
		t.Fatalf("expected 2048, got %d", got)
	}
	_ = os.Setenv(key, "4096")
	t.Cleanup(func() { _ = os.Unsetenv(key) })
	if got := EnvOrDefaultInt(key, 2048); got != 4096 {
		t.Fatalf("expected 4096, got %d", got)
	}
	_ = os.Setenv(key, "not-a-number")
	if got := EnvOrDefaultInt(key, 2048); got != 2048 {
		t.Fatalf("expected fallback on parse error, got %d", got)
	}
}

func TestEnvOrDefaultUint64InvokeCost(t *testing.T) {
	const key = "VALENCE_INVOKE_COST_TEST"
	_ = os.Unsetenv(key)
	if got := EnvOrDefaultUint64(key, 200); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}
	_ = os.Setenv(key, "500")
	t.Cleanup(func() { _ = os.Unsetenv(key) })
	if got := EnvOrDefaultUint64(key, 200); got != 500 {
		t.Fatalf("expected 500, got %d", got)
	}
	_ = os.Setenv(key, "-1")
	if got := EnvOrDefaultUint64(key, 200); got != 200 {
		t.Fatalf("expected fallback on parse error (negative uint64), got %d", got)
	}
}

func TestEnvOrDefaultBoolDebugLog(t *testing.T) {
	const key = "VALENCE_EXPLORER_DEBUG_LOG_TEST"
	_ = os.Unsetenv(key)
	if got := EnvOrDefaultBool(key, false); got != false {
		t.Fatalf("expected fallback false, got %v", got)
	}
	_ = os.Setenv(key, "true")
	t.Cleanup(func() { _ = os.Unsetenv(key) })
	if got := EnvOrDefaultBool(key, false); got != true {
		t.Fatalf("expected true, got %v", got)
	}
	_ = os.Setenv(key, "1")
	if got := EnvOrDefaultBool(key, false); got != true {
		t.Fatalf("expected true for \"1\", got %v", got)
	}
	_ = os.Setenv(key, "not-a-bool")
	if got := EnvOrDefaultBool(key, true); got != true {
		t.Fatalf("expected fallback on parse error, got %v", got)
	}
}
