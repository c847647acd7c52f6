package sdkprep

import (
	"context"
	"errors"
	"fmt"
)

// RunState is the state of a prepare run.
type RunState int

const (
	StateIdle RunState = iota
	StateResolving
	StateDispatching
	StateAborted
	StateMergeGenerated
	StateNoOp
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateResolving:
		return "RESOLVING"
	case StateDispatching:
		return "DISPATCHING"
	case StateAborted:
		return "ABORTED"
	case StateMergeGenerated:
		return "MERGE_GENERATED"
	case StateNoOp:
		return "NOOP"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// IsTerminal reports whether the run is finished.
func (s RunState) IsTerminal() bool {
	return s == StateAborted || s == StateMergeGenerated || s == StateNoOp
}

func isAllowedTransition(from, to RunState) bool {
	switch from {
	case StateIdle:
		return to == StateResolving
	case StateResolving:
		return to == StateDispatching || to == StateAborted
	case StateDispatching:
		return to == StateAborted || to == StateMergeGenerated || to == StateNoOp
	default:
		return false
	}
}

// OutcomeKind classifies what happened to one architecture.
type OutcomeKind int

const (
	Succeeded OutcomeKind = iota
	Cleaned
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Cleaned:
		return "cleaned"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of dispatching one architecture.
type Outcome struct {
	Arch string
	Kind OutcomeKind
	Code int // builder status when Kind is Failed
}

// BuildFailedError carries the raw status of the first failing architecture.
type BuildFailedError struct {
	Arch string
	Code int
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build of %s failed with status %d", e.Arch, e.Code)
}

func (e *BuildFailedError) Unwrap() error { return ErrBuildFailed }

// Report summarizes a dispatch.
type Report struct {
	State     RunState
	Archs     []string  // resolved architectures, in attempt order
	Outcomes  []Outcome // one per attempted architecture
	Completed []string  // successfully built architectures, in attempt order
	Status    int       // 0, or the raw status of the failing architecture
}

// Dispatcher drives the per-architecture loop.
type Dispatcher struct {
	Registry *Registry
	Builder  Builder
	Options  RunOptions

	// OnOptionsHelp runs after a target returned OptionsHelpStatus.
	OnOptionsHelp func(ctx context.Context)

	state RunState
}

// State returns the current run state.
func (d *Dispatcher) State() RunState { return d.state }

func (d *Dispatcher) transition(to RunState) error {
	if !isAllowedTransition(d.state, to) {
		return fmt.Errorf("disallowed transition: %s -> %s", d.state, to)
	}
	debugf("run state %s -> %s\n", d.state, to)
	d.state = to
	return nil
}

// Dispatch resolves the requested platforms and processes each architecture
// in turn. The loop stops at the first failing architecture: later ones are
// never attempted and the failing status is returned unchanged in the report
// and as a *BuildFailedError.
func (d *Dispatcher) Dispatch(ctx context.Context) (*Report, error) {
	if d.state != StateIdle {
		return nil, fmt.Errorf("dispatcher already used (state %s)", d.state)
	}
	rep := &Report{}
	if err := d.transition(StateResolving); err != nil {
		return nil, err
	}
	archs, err := ResolvePlatforms(d.Registry, d.Options.Platforms)
	if err != nil {
		d.finish(rep, StateAborted)
		return rep, err
	}
	rep.Archs = archs
	if err := d.transition(StateDispatching); err != nil {
		return nil, err
	}

	opts := d.Options.buildOptions()
	layout := d.Registry.Layout()
	for _, arch := range archs {
		t := d.Registry.MustLookup(arch)

		if d.Options.Clean {
			step("Cleaning %s", arch)
			if err := cleanTarget(layout, t); err != nil {
				rep.Outcomes = append(rep.Outcomes, Outcome{Arch: arch, Kind: Failed, Code: 1})
				rep.Status = 1
				d.finish(rep, StateAborted)
				return rep, fmt.Errorf("clean %s: %w", arch, err)
			}
			rep.Outcomes = append(rep.Outcomes, Outcome{Arch: arch, Kind: Cleaned})
			continue
		}

		step("Preparing %s", t.Name)
		code := d.Builder.Build(ctx, t, opts)
		if code != 0 {
			rep.Outcomes = append(rep.Outcomes, Outcome{Arch: arch, Kind: Failed, Code: code})
			rep.Status = code
			if code == OptionsHelpStatus && d.OnOptionsHelp != nil {
				d.OnOptionsHelp(ctx)
			}
			d.finish(rep, StateAborted)
			return rep, &BuildFailedError{Arch: arch, Code: code}
		}
		rep.Outcomes = append(rep.Outcomes, Outcome{Arch: arch, Kind: Succeeded})
		rep.Completed = append(rep.Completed, arch)
	}

	if len(rep.Completed) > 0 {
		d.finish(rep, StateMergeGenerated)
	} else {
		d.finish(rep, StateNoOp)
	}
	return rep, nil
}

func (d *Dispatcher) finish(rep *Report, to RunState) {
	if err := d.transition(to); err != nil {
		panic(err)
	}
	rep.State = to
}

// ExitStatus maps a dispatch error to the process exit status.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var bf *BuildFailedError
	if errors.As(err, &bf) {
		return bf.Code
	}
	return 1
}
