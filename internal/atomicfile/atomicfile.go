// Package atomicfile factors out the temp-file-then-rename recipe that both
// tag writers need: create a temp file next to the target, write full new
// contents, then rename-replace the target. Any failure before the final
// rename leaves the target untouched and removes the temp file.
package atomicfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Replace writes the bytes produced by write into a temp file in the same
// directory as target, then renames it over target. write receives the
// temp file's *os.File and must not close it.
func Replace(target string, write func(tmp *os.File) error) (err error) {
	dir := filepath.Dir(target)
	tmp, err := createTemp(dir, filepath.Base(target))
	if err != nil {
		return fmt.Errorf("atomicfile: create temp: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("atomicfile: write temp: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("atomicfile: sync temp: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("atomicfile: close temp: %w", err)
	}

	if err = os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("atomicfile: rename temp over target: %w", err)
	}

	return nil
}

// createTemp creates a uniquely named file in dir, retrying on EINTR, the
// interruptable-syscall discipline section 4.2 requires of open/fdopen.
func createTemp(dir, base string) (*os.File, error) {
	for {
		f, err := os.CreateTemp(dir, base+".tmp-*")
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, unix.EINTR) {
			return nil, err
		}
	}
}
