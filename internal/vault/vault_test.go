package vault_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"inksync/internal/vault"
)

func TestDirWriteAndExists(t *testing.T) {
	dir, err := vault.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	ctx := context.Background()

	exists, err := dir.Exists(ctx, "notes/a.md")
	if err != nil || exists {
		t.Fatalf("Exists before write = (%v, %v)", exists, err)
	}

	location, err := dir.WriteFile(ctx, "notes/a.md", []byte("hello"))
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if filepath.Dir(location) != filepath.Join(dir.Root(), "notes") {
		t.Fatalf("location = %q", location)
	}
	data, err := os.ReadFile(location)
	if err != nil || string(data) != "hello" {
		t.Fatalf("read back = (%q, %v)", data, err)
	}

	exists, err = dir.Exists(ctx, "notes/a.md")
	if err != nil || !exists {
		t.Fatalf("Exists after write = (%v, %v)", exists, err)
	}
}

func TestDirRejectsEscapingPaths(t *testing.T) {
	dir, err := vault.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	ctx := context.Background()
	for _, path := range []string{"../outside.md", "/abs/outside.md", "a/../../outside.md"} {
		if _, err := dir.WriteFile(ctx, path, []byte("x")); err == nil {
			t.Fatalf("expected rejection for %q", path)
		}
	}
}

func TestDirMkdirAllIdempotent(t *testing.T) {
	dir, err := vault.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := dir.MkdirAll(ctx, "2026/08"); err != nil {
			t.Fatalf("MkdirAll attempt %d: %v", i+1, err)
		}
	}
}
