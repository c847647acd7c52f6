package sdkprep

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Preparer runs the prepare command: dispatch every requested architecture,
// then write or remove the second-stage Makefile.
type Preparer struct {
	Settings Settings
	Registry *Registry
	Builder  Builder
	Out      io.Writer // os.Stdout when nil
	Self     string    // command the Makefile uses to call sdkprep

	// OptionsHelp overrides the 'make help-prepare-options' invocation.
	OptionsHelp func(ctx context.Context)
}

func (p *Preparer) out() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}

// NewPreparer wires the CMake builder for s.
func NewPreparer(s Settings) (*Preparer, error) {
	reg, err := NewRegistry(s.Layout)
	if err != nil {
		return nil, err
	}
	return &Preparer{
		Settings: s,
		Registry: reg,
		Builder:  &CMakeBuilder{Layout: s.Layout, CMake: s.Tools.CMake},
		Self:     selfCommand(),
	}, nil
}

// runOptionsHelp shows how the previous run was invoked, if it left a Makefile.
func (p *Preparer) runOptionsHelp(ctx context.Context) {
	if p.OptionsHelp != nil {
		p.OptionsHelp(ctx)
		return
	}
	l := p.Settings.Layout
	if !fileExists(makefilePath(l)) {
		return
	}
	cmd := exec.Command(p.Settings.Tools.Make, "help-prepare-options")
	cmd.Dir = l.Root
	cmd.Stdout = p.out()
	cmd.Stderr = p.out()
	if err := NewExecutor(ctx).Run(cmd); err != nil {
		debugf("make help-prepare-options: %v\n", err)
	}
}

// Run executes one prepare invocation. The returned error is a
// *BuildFailedError when a target failed; ExitStatus maps it to the raw
// builder status.
func (p *Preparer) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	l := p.Settings.Layout

	// Reject bad platforms before touching the file system.
	if _, err := ResolvePlatforms(p.Registry, opts.Platforms); err != nil {
		return &Report{State: StateAborted}, err
	}

	lock, err := acquireRunLock(l)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	if err := installGitHook(l); err != nil {
		warnf("Failed to install git hook: %v", err)
	}

	d := &Dispatcher{
		Registry:      p.Registry,
		Builder:       p.Builder,
		Options:       opts,
		OnOptionsHelp: p.runOptionsHelp,
	}
	rep, err := d.Dispatch(ctx)
	if err != nil {
		return rep, err
	}

	switch rep.State {
	case StateNoOp:
		if err := RemoveMakefile(l); err != nil {
			return rep, fmt.Errorf("failed to remove stale Makefile: %w", err)
		}
		return rep, nil
	case StateMergeGenerated:
		return rep, p.generate(opts, rep)
	default:
		return rep, fmt.Errorf("unexpected run state %s", rep.State)
	}
}

// generate writes the run record and the Makefile for the completed targets.
func (p *Preparer) generate(opts RunOptions, rep *Report) error {
	l := p.Settings.Layout
	libs, err := ExtractLibraries(l.abs(l.Project), filepath.ToSlash(l.MergedDir()))
	if err != nil {
		return err
	}
	warnIfNoLibraries(p.out(), libs, l.abs(l.Project), filepath.ToSlash(l.MergedDir()))
	ref := p.Registry.MustLookup(rep.Completed[0])
	packages, err := listPackages(l, ref)
	if err != nil {
		return fmt.Errorf("failed to list packages of %s: %w", ref.Name, err)
	}

	rec := newRunRecord(opts, rep)
	data, err := RenderMakefile(newMakefileData(l, rec, packages, libs, p.Self))
	if err != nil {
		return err
	}
	if err := saveRunRecord(l, rec); err != nil {
		return err
	}
	if err := WriteMakefile(l, data); err != nil {
		return fmt.Errorf("failed to write Makefile: %w", err)
	}
	step("Makefile generated for %v (reference %s, %d packages, %d libraries)",
		rep.Completed, ref.Arch, len(packages), len(libs))

	printLicenseNotice(l, ref, p.out())
	return nil
}
