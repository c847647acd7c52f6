package sdkprep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Executor runs external tools (cmake, make, lipo) with a consistent stdio,
// environment and cancellation policy.
type Executor struct {
	Context     context.Context // The context to use for cancellation
	Interactive bool            // Interactive indicates whether the command may prompt the user
	Log         io.Writer       // Log receives a copy of stdout and stderr when set
}

func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

// Run executes the given command and returns an error for a non-zero exit.
// It wires up stdio, isolates the child in its own process group so that a
// cancelled context kills the whole tree, and tees output into e.Log.
func (e *Executor) Run(cmd *exec.Cmd) error {
	// --- Phase 0: wire up stdio ---
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if e.Log != nil {
		cmd.Stdout = io.MultiWriter(cmd.Stdout, e.Log)
		cmd.Stderr = io.MultiWriter(cmd.Stderr, e.Log)
	}

	// --- Phase 1: build the final command ---
	finalCmd := exec.CommandContext(e.Context, cmd.Path, cmd.Args[1:]...)
	finalCmd.Dir = cmd.Dir

	// preserve or inherit the environment
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}

	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr

	// --- Phase 2: isolate process group for context-based cleanup ---
	if !e.Interactive {
		finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	// --- Phase 3: start and watch for cancel ---
	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	if !e.Interactive {
		pgid := finalCmd.Process.Pid

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-e.Context.Done():
				syscall.Kill(-pgid, syscall.SIGKILL)
			case <-done:
			}
		}()
	}

	// --- Phase 4: wait and return ---
	if waitErr := finalCmd.Wait(); waitErr != nil {
		if e.Context.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %w", e.Context.Err())
		}
		return waitErr
	}
	return nil
}

// Status runs cmd and reports its exit status. The error is non-nil only
// when the command could not run to completion (not found, cancelled).
func (e *Executor) Status(cmd *exec.Cmd) (int, error) {
	err := e.Run(cmd)
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
	}
	return 1, err
}
