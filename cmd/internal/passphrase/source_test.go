package passphrase

import (
	"strings"
	"testing"
)

func TestSourceFromEnvironment(t *testing.T) {
	t.Setenv("TEST_WALLET_PASS", "hunter2")
	src := NewSource("TEST_WALLET_PASS")
	got, err := src.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("expected env passphrase, got %q", got)
	}
}

func TestSourceRejectsBlankEnvValue(t *testing.T) {
	t.Setenv("TEST_WALLET_PASS", "   ")
	src := NewSource("TEST_WALLET_PASS")
	if _, err := src.Get(); err == nil {
		t.Fatal("expected error for blank passphrase")
	}
}

func TestSourceCachesFirstResolution(t *testing.T) {
	t.Setenv("TEST_WALLET_PASS", "first")
	src := NewSource("TEST_WALLET_PASS")
	if _, err := src.Get(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Setenv("TEST_WALLET_PASS", "second")
	got, err := src.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first" {
		t.Fatalf("expected cached value, got %q", got)
	}
}

func TestSourceWithoutEnvOrTerminal(t *testing.T) {
	// Tests never run with stdin attached to a terminal, so the prompt path
	// must fail with an actionable message naming the variable.
	src := NewSource("TEST_WALLET_PASS_UNSET")
	_, err := src.Get()
	if err == nil {
		t.Fatal("expected error when no env var and no terminal")
	}
	if !strings.Contains(err.Error(), "TEST_WALLET_PASS_UNSET") {
		t.Fatalf("error should name the env var, got %v", err)
	}
}
