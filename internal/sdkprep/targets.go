package sdkprep

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Architectures of the iOS SDK, devices first.
var (
	archsDevice = []string{"arm64", "armv7"}
	archsSimu   = []string{"i386", "x86_64"}
)

// Target describes how one architecture is configured and where it installs.
// Targets are handed out by value and never modified after NewRegistry.
type Target struct {
	Arch           string
	Name           string // CMake tree name, "ios-<arch>"
	ConfigFile     string
	ToolchainFile  string
	Output         string // staging tree, relative to the layout root
	AdditionalArgs []string

	workDir string
}

// WorkDir is the target's working tree, relative to the layout root.
func (t Target) WorkDir() string { return t.workDir }

// CMakeDir is where the builder configures the target.
func (t Target) CMakeDir() string { return filepath.Join(t.workDir, "cmake") }

// BuildDir holds one subdirectory per external package.
func (t Target) BuildDir() string { return filepath.Join(t.workDir, "Build") }

// StampDir holds the external-project stamp files.
func (t Target) StampDir() string { return filepath.Join(t.workDir, "Stamp") }

// CMakeCache is the cache written by the configure step.
func (t Target) CMakeCache() string { return filepath.Join(t.CMakeDir(), "CMakeCache.txt") }

// BuildLog is the captured output of the last build of this target.
func (t Target) BuildLog() string { return filepath.Join(t.workDir, BuildLogName) }

func (t Target) validate() error {
	switch {
	case t.Arch == "":
		return fmt.Errorf("target without architecture")
	case t.Name == "", t.ConfigFile == "", t.ToolchainFile == "", t.Output == "", t.workDir == "":
		return fmt.Errorf("target %s is incomplete", t.Arch)
	}
	return nil
}

// Registry is the fixed catalog of build targets.
type Registry struct {
	layout  Layout
	targets map[string]Target
}

func newIOSTarget(l Layout, arch string) Target {
	name := "ios-" + arch
	return Target{
		Arch:          arch,
		Name:          name,
		ConfigFile:    filepath.Join("configs", "config-"+name+".cmake"),
		ToolchainFile: filepath.Join("toolchains", "toolchain-"+name+".cmake"),
		Output:        filepath.Join(l.SDKDir, l.StagingName(arch)),
		AdditionalArgs: []string{
			"-DLINPHONE_BUILDER_EXTERNAL_SOURCE_PATH=" + l.abs(l.SourceDir),
		},
		workDir: filepath.Join(l.WorkDir, name),
	}
}

// NewRegistry builds the registry for the layout. It fails if any target is
// incomplete or if a platform group names an architecture without a target.
func NewRegistry(l Layout) (*Registry, error) {
	r := &Registry{layout: l, targets: make(map[string]Target)}
	for _, arch := range append(append([]string{}, archsDevice...), archsSimu...) {
		t := newIOSTarget(l, arch)
		if err := t.validate(); err != nil {
			return nil, err
		}
		r.targets[arch] = t
	}
	for _, g := range platformGroups {
		for _, arch := range g.Archs {
			if _, ok := r.targets[arch]; !ok {
				return nil, fmt.Errorf("platform group %q: %w: %s", g.Name, ErrUnknownArchitecture, arch)
			}
		}
	}
	return r, nil
}

// Lookup returns the target for arch.
func (r *Registry) Lookup(arch string) (Target, error) {
	t, ok := r.targets[arch]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownArchitecture, arch)
	}
	t.AdditionalArgs = append([]string(nil), t.AdditionalArgs...)
	return t, nil
}

// MustLookup is Lookup for architectures that already went through
// ResolvePlatforms; an unknown name there is a programming error.
func (r *Registry) MustLookup(arch string) Target {
	t, err := r.Lookup(arch)
	if err != nil {
		panic(err)
	}
	return t
}

// Has reports whether arch is a registry key.
func (r *Registry) Has(arch string) bool {
	_, ok := r.targets[arch]
	return ok
}

// Archs returns the registered architecture names, sorted.
func (r *Registry) Archs() []string {
	archs := make([]string, 0, len(r.targets))
	for a := range r.targets {
		archs = append(archs, a)
	}
	sort.Strings(archs)
	return archs
}

// Layout returns the layout the registry was built for.
func (r *Registry) Layout() Layout { return r.layout }
