package deps

import (
	"path/filepath"
	"testing"

	"cadence/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	present := testsupport.WriteScript(t, filepath.Join(t.TempDir(), "present"), "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank command status %#v", results[2])
	}
}

func TestSatisfiedIgnoresOptional(t *testing.T) {
	statuses := []Status{
		{Name: "decoder", Available: true},
		{Name: "extra", Optional: true},
	}
	if !Satisfied(statuses) {
		t.Fatal("missing optional entry should not fail")
	}
	statuses = append(statuses, Status{Name: "encoder"})
	if Satisfied(statuses) {
		t.Fatal("missing required entry should fail")
	}
}
