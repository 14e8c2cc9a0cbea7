package cmd

import "testing"

func TestResolveIngestPath_FromArgs(t *testing.T) {
	path, err := resolveIngestPath([]string{"docs/notes.md"})
	if err != nil {
		t.Fatalf("resolveIngestPath() error: %v", err)
	}
	if path != "docs/notes.md" {
		t.Errorf("path = %q", path)
	}
}

func TestVersionDefaults(t *testing.T) {
	if Version == "" {
		t.Error("Version must never be empty")
	}
}
