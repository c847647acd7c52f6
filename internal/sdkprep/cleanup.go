package sdkprep

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// makeWritable gives the owner write (and directory search) permission on
// every entry below path so that os.RemoveAll can unlink read-only trees.
func makeWritable(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			// A directory we cannot read: try to fix it and descend again.
			if d != nil && d.IsDir() {
				if chErr := os.Chmod(p, 0o755); chErr == nil {
					return makeWritable(p)
				}
			}
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		mode := info.Mode().Perm()
		want := mode | 0o200
		if d.IsDir() {
			want |= 0o700
		}
		if want != mode {
			return os.Chmod(p, want)
		}
		return nil
	})
}

// removeTree deletes path and everything below it. A missing path is not an
// error; read-only entries are made writable first.
func removeTree(path string) error {
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := os.RemoveAll(path); err == nil {
		return nil
	}
	if err := makeWritable(path); err != nil {
		return fmt.Errorf("failed to make %s writable: %w", path, err)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// cleanTarget removes the target's working tree and staging tree.
func cleanTarget(l Layout, t Target) error {
	for _, dir := range []string{t.WorkDir(), t.Output} {
		abs := l.abs(dir)
		debugf("Removing %s\n", abs)
		if err := removeTree(abs); err != nil {
			return err
		}
	}
	return nil
}
