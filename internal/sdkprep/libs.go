package sdkprep

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Merger implements 'sdkprep libs': fat libraries plus dummy backstop.
type Merger struct {
	Settings Settings
	Registry *Registry
	Lipo     Lipo
	Out      io.Writer // os.Stdout when nil
}

// MergeResult is what a libs run produced.
type MergeResult struct {
	Plan    *MergePlan
	Dummies []string
}

func (m *Merger) out() io.Writer {
	if m.Out == nil {
		return os.Stdout
	}
	return m.Out
}

// archsFor returns the architectures to merge: the given tokens, or the
// completed architectures of the last prepare run.
func (m *Merger) archsFor(tokens []string) ([]string, error) {
	if len(tokens) > 0 {
		return ResolvePlatforms(m.Registry, tokens)
	}
	rec, err := LoadRunRecord(m.Settings.Layout)
	if err != nil {
		return nil, fmt.Errorf("no architecture given and no previous run recorded: %w", err)
	}
	if len(rec.Completed) == 0 {
		return nil, fmt.Errorf("previous run %s built no architecture", rec.ID)
	}
	return rec.Completed, nil
}

// Run merges the staging trees of the architectures into the merged tree.
func (m *Merger) Run(ctx context.Context, tokens []string) (*MergeResult, error) {
	l := m.Settings.Layout
	archs, err := m.archsFor(tokens)
	if err != nil {
		return nil, err
	}
	libs, err := ExtractLibraries(l.abs(l.Project), filepath.ToSlash(l.MergedDir()))
	if err != nil {
		return nil, err
	}
	warnIfNoLibraries(m.out(), libs, l.abs(l.Project), filepath.ToSlash(l.MergedDir()))

	plan, err := PlanMerge(l, archs)
	if err != nil {
		return nil, err
	}
	step("Merging %d libraries of %v (reference %s)", len(plan.Entries), archs, plan.Reference)
	if err := ExecuteMerge(ctx, plan, m.Lipo, m.out()); err != nil {
		return nil, err
	}
	dummies, err := EnsureDummies(l, libs, archs, m.out())
	if err != nil {
		return nil, err
	}

	printLicenseNotice(l, m.Registry.MustLookup(plan.Reference), m.out())
	return &MergeResult{Plan: plan, Dummies: dummies}, nil
}
