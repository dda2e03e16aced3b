package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	plain := New(CodeConfig, "bad portfolio")
	if plain.Error() != "bad portfolio" {
		t.Errorf("Error() = %q", plain.Error())
	}

	wrapped := Wrap(CodeUnavailable, "dial rpc", stderrors.New("connection refused"))
	if wrapped.Error() != "dial rpc: connection refused" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeGasLimit, "ceiling breached")
	outer := fmt.Errorf("plan failed: %w", inner)

	got, ok := As(outer)
	if !ok || got.Code != CodeGasLimit {
		t.Fatalf("As = %v, %v", got, ok)
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("nil = %d", got)
	}
	if got := ExitCode(New(CodeSigner, "no key")); got != 20 {
		t.Errorf("signer = %d", got)
	}
	if got := ExitCode(stderrors.New("boom")); got != 1 {
		t.Errorf("untyped = %d", got)
	}
}
