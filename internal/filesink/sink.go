// Package filesink implements the create-new, append-only, cleanup-capable
// sink the recorder streams decoded audio bytes into (section 4.2).
package filesink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/nega0/pianobarfly/internal/constants"
)

// ErrAlreadyExists is returned by OpenNew when the target path already
// exists; the caller treats this as success-with-skip.
var ErrAlreadyExists = errors.New("filesink: file already exists")

// Handle is an open sink ready to receive appended bytes.
type Handle struct {
	file *os.File
	Path string
}

// OpenNew creates every missing directory component of path (mode 0755),
// then opens the leaf with create-new-exclusive semantics (mode 0664).
// Returns ErrAlreadyExists, distinctly from other I/O errors, if the leaf
// already exists.
func OpenNew(path string) (*Handle, error) {
	dir := filepath.Dir(path)
	if err := mkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, fmt.Errorf("filesink: mkdir -p %s: %w", dir, err)
	}

	f, err := openExcl(path)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("filesink: open %s: %w", path, err)
	}

	return &Handle{file: f, Path: path}, nil
}

// Append writes all of b to the sink; any short write is treated as fatal.
func (h *Handle) Append(b []byte) error {
	n, err := h.file.Write(b)
	if err != nil {
		return fmt.Errorf("filesink: write: %w", err)
	}
	if n != len(b) {
		return fmt.Errorf("filesink: short write: wrote %d of %d bytes", n, len(b))
	}
	return nil
}

// Close flushes and releases the sink.
func (h *Handle) Close() error {
	if err := h.file.Sync(); err != nil {
		h.file.Close()
		return fmt.Errorf("filesink: sync: %w", err)
	}
	if err := h.file.Close(); err != nil {
		return fmt.Errorf("filesink: close: %w", err)
	}
	return nil
}

// DeleteWithEmptyParents unlinks path, then walks upward removing each
// directory until one is non-empty or does not exist. It never removes a
// directory at or above root; errors other than "non-empty"/"absent" are
// fatal.
func DeleteWithEmptyParents(path, root string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("filesink: remove %s: %w", path, err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("filesink: resolve root %s: %w", root, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("filesink: resolve dir %s: %w", path, err)
	}

	for {
		if dir == absRoot || !isUnder(absRoot, dir) {
			return nil
		}

		if err := os.Remove(dir); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			if isNotEmpty(err) {
				return nil
			}
			return fmt.Errorf("filesink: remove dir %s: %w", dir, err)
		}

		dir = filepath.Dir(dir)
	}
}

func isUnder(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.'
}

func isNotEmpty(err error) bool {
	return errors.Is(err, unix.ENOTEMPTY) || errors.Is(err, unix.EEXIST)
}

// mkdirAll and openExcl retry on EINTR, the interruptable-syscall discipline
// section 4.2 requires of open/mkdir.
func mkdirAll(path string, perm os.FileMode) error {
	for {
		err := os.MkdirAll(path, perm)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

func openExcl(path string) (*os.File, error) {
	for {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, constants.FilePermissions)
		if err == nil {
			return f, nil
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return nil, err
	}
}
