package sdkprep

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Builder runs the external per-architecture build pipeline for one target
// and returns its integer status: 0 on success, OptionsHelpStatus when the
// user must re-run with different options, anything else on failure.
type Builder interface {
	Build(ctx context.Context, t Target, opts BuildOptions) int
}

// CMakeBuilder configures and builds a target with CMake.
type CMakeBuilder struct {
	Layout Layout
	CMake  string
	Out    io.Writer // console output, os.Stdout when nil
}

func (b *CMakeBuilder) out() io.Writer {
	if b.Out == nil {
		return os.Stdout
	}
	return b.Out
}

// configureArgs returns the cmake configure command line for t.
func (b *CMakeBuilder) configureArgs(t Target, opts BuildOptions) []string {
	l := b.Layout
	buildType := "Release"
	if opts.Debug {
		buildType = "Debug"
	}
	args := []string{
		l.abs(filepath.Join(l.SourceDir, "cmake-builder")),
		"-DCMAKE_TOOLCHAIN_FILE=" + l.abs(t.ToolchainFile),
		"-DLINPHONE_BUILDER_CONFIG_FILE=" + l.abs(t.ConfigFile),
		"-DLINPHONE_BUILDER_WORK_DIR=" + l.abs(t.WorkDir()),
		"-DCMAKE_INSTALL_PREFIX=" + l.abs(t.Output),
		"-DCMAKE_PREFIX_PATH=" + l.abs(t.Output),
		"-DCMAKE_BUILD_TYPE=" + buildType,
	}
	args = append(args, t.AdditionalArgs...)
	return append(args, opts.Args...)
}

// Build implements Builder.
func (b *CMakeBuilder) Build(ctx context.Context, t Target, opts BuildOptions) int {
	cmakeDir := b.Layout.abs(t.CMakeDir())

	if _, err := os.Stat(cmakeDir); err == nil {
		if !opts.Force {
			fmt.Fprintf(b.out(), "Working directory %s already exists. Please remove it (option -C or --clean) before re-executing sdkprep\n"+
				"to avoid conflicts between executions, or force execution (option -f or --force) if you are aware of consequences.\n", cmakeDir)
			return OptionsHelpStatus
		}
		if err := removeTree(cmakeDir); err != nil {
			fmt.Fprintf(b.out(), "Failed to reset %s: %v\n", cmakeDir, err)
			return 1
		}
	}
	if err := os.MkdirAll(cmakeDir, 0o755); err != nil {
		fmt.Fprintf(b.out(), "Failed to create %s: %v\n", cmakeDir, err)
		return 1
	}

	logFile, err := os.Create(b.Layout.abs(t.BuildLog()))
	if err != nil {
		debugf("Cannot write build log for %s: %v\n", t.Arch, err)
		logFile = nil
	}
	exe := NewExecutor(ctx)
	if logFile != nil {
		defer logFile.Close()
		exe.Log = logFile
	}

	configure := exec.Command(b.CMake, b.configureArgs(t, opts)...)
	configure.Dir = cmakeDir
	configure.Stdout = b.out()
	configure.Stderr = b.out()
	debugf("Running %s in %s\n", shellJoin(configure.Args), cmakeDir)
	status, err := exe.Status(configure)
	if err != nil {
		fmt.Fprintf(b.out(), "cmake configure for %s: %v\n", t.Name, err)
		return status
	}
	if status != 0 {
		return status
	}

	if opts.ListVariables {
		list := exec.Command(b.CMake, "-LH", cmakeDir)
		list.Dir = cmakeDir
		list.Stdout = b.out()
		list.Stderr = b.out()
		status, err = exe.Status(list)
		if err != nil {
			fmt.Fprintf(b.out(), "cmake -LH for %s: %v\n", t.Name, err)
		}
		return status
	}
	return 0
}
