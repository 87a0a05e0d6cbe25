package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Vault is the host-supplied filesystem capability the materializer writes
// through. Paths are logical, relative to the vault root; the core never
// touches an absolute filesystem path directly.
type Vault interface {
	// WriteFile writes data at the logical path and returns the resolved
	// location of the artifact.
	WriteFile(ctx context.Context, relPath string, data []byte) (string, error)
	// MkdirAll idempotently creates a directory hierarchy.
	MkdirAll(ctx context.Context, relDir string) error
	// Exists reports whether a file already exists at the logical path.
	Exists(ctx context.Context, relPath string) (bool, error)
}

// Dir is a Vault backed by a directory on the local filesystem.
type Dir struct {
	root string
}

var _ Vault = (*Dir)(nil)

// NewDir creates a directory-backed vault rooted at root.
func NewDir(root string) (*Dir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("vault root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute vault root directory.
func (d *Dir) Root() string { return d.root }

func (d *Dir) resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("path %q escapes vault root", relPath)
	}
	return filepath.Join(d.root, cleaned), nil
}

func (d *Dir) WriteFile(_ context.Context, relPath string, data []byte) (string, error) {
	target, err := d.resolve(relPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return target, nil
}

func (d *Dir) MkdirAll(_ context.Context, relDir string) error {
	target, err := d.resolve(relDir)
	if err != nil {
		return err
	}
	return os.MkdirAll(target, 0o755)
}

func (d *Dir) Exists(_ context.Context, relPath string) (bool, error) {
	target, err := d.resolve(relPath)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
