package schema

import (
	"testing"

	"github.com/spf13/cobra"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "rebalance", Short: "root"}
	plan := &cobra.Command{Use: "plan", Short: "plan things"}
	plan.Flags().Bool("dry-run", false, "no writes")
	actions := &cobra.Command{Use: "actions", Short: "actions"}
	list := &cobra.Command{Use: "list", Short: "list actions", Aliases: []string{"ls"}}
	hidden := &cobra.Command{Use: "secret", Hidden: true}
	actions.AddCommand(list)
	root.AddCommand(plan, actions, hidden)
	return root
}

func TestBuildWholeTree(t *testing.T) {
	s, err := Build(testTree(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Path != "rebalance" {
		t.Errorf("path = %q", s.Path)
	}
	names := map[string]bool{}
	for _, sub := range s.Subcommands {
		names[sub.Use] = true
	}
	if !names["plan"] || !names["actions"] {
		t.Errorf("subcommands = %v", names)
	}
	if names["secret"] {
		t.Error("hidden commands should be omitted")
	}
}

func TestBuildSubcommandPath(t *testing.T) {
	s, err := Build(testTree(), "actions list")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Path != "rebalance actions list" {
		t.Errorf("path = %q", s.Path)
	}
}

func TestBuildResolvesAlias(t *testing.T) {
	s, err := Build(testTree(), "actions ls")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Use != "list" {
		t.Errorf("use = %q", s.Use)
	}
}

func TestBuildUnknownPath(t *testing.T) {
	if _, err := Build(testTree(), "teleport"); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildCollectsFlags(t *testing.T) {
	s, err := Build(testTree(), "plan")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Flags) != 1 || s.Flags[0].Name != "dry-run" || s.Flags[0].Type != "bool" {
		t.Errorf("flags = %+v", s.Flags)
	}
}
