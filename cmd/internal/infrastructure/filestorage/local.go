package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/gommon/log"
)

type LocalBackend struct {
	root string
}

// NewLocalBackend makes sure root exists before accepting writes.
func NewLocalBackend(root string) (*LocalBackend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalBackend{root: abs}, nil
}

// Save writes to a temp file next to the target and renames it into place,
// so a crash never leaves a truncated file under relPath.
func (l *LocalBackend) Save(_ context.Context, data []byte, relPath, _ string) (string, error) {
	fullPath, err := l.resolve(relPath)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: create directory: %v", ErrStorageFault, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", ErrStorageFault, err)
	}
	tmpName := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: write file: %v", ErrStorageFault, err)
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: rename file: %v", ErrStorageFault, err)
	}

	log.Debugf("saved %d bytes to %s", len(data), fullPath)
	return relPath, nil
}

func (l *LocalBackend) Open(_ context.Context, relPath string) (io.ReadCloser, error) {
	fullPath, err := l.resolve(relPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, relPath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open file: %v", ErrStorageFault, err)
	}
	return f, nil
}

// resolve maps relPath under the root and refuses anything escaping it.
func (l *LocalBackend) resolve(relPath string) (string, error) {
	if relPath == "" || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: invalid relative path %q", ErrStorageFault, relPath)
	}

	fullPath := filepath.Join(l.root, filepath.Clean(relPath))
	if fullPath != l.root && !strings.HasPrefix(fullPath, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes storage root", ErrStorageFault, relPath)
	}
	return fullPath, nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

var _ Backend = (*LocalBackend)(nil)
