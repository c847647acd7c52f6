package sdkprep

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// runLock serializes sdkprep runs against one working tree.
type runLock struct {
	f *os.File
}

// acquireRunLock takes an exclusive, non-blocking lock on the working tree.
func acquireRunLock(l Layout) (*runLock, error) {
	dir := l.abs(l.WorkDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, lockName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w (%s): %v", ErrLocked, path, err)
	}
	return &runLock{f: f}, nil
}

func (r *runLock) release() {
	if r == nil || r.f == nil {
		return
	}
	unix.Flock(int(r.f.Fd()), unix.LOCK_UN)
	r.f.Close()
	r.f = nil
}
