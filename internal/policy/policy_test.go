package policy

import (
	"testing"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
)

func TestCheckCommandAllowed(t *testing.T) {
	tests := []struct {
		name      string
		allowlist []string
		path      string
		wantBlock bool
	}{
		{"empty allowlist permits", nil, "run", false},
		{"exact match", []string{"plan"}, "plan", false},
		{"case and spacing normalized", []string{" Actions  List "}, "actions list", false},
		{"not listed", []string{"plan", "allocations"}, "run", true},
		{"subcommand not covered by parent", []string{"actions"}, "actions list", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckCommandAllowed(tc.allowlist, tc.path)
			if tc.wantBlock {
				if err == nil {
					t.Fatal("expected block")
				}
				if cErr, ok := clierr.As(err); !ok || cErr.Code != clierr.CodeBlocked {
					t.Fatalf("want CodeBlocked, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected block: %v", err)
			}
		})
	}
}
