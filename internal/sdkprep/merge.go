package sdkprep

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Lipo merges per-architecture variants of a static library into one
// architecture-independent library, overwriting output.
type Lipo interface {
	Create(ctx context.Context, inputs []string, output string) error
}

// LipoTool runs the lipo command.
type LipoTool struct {
	Path string
}

// Create implements Lipo.
func (l LipoTool) Create(ctx context.Context, inputs []string, output string) error {
	path := l.Path
	if path == "" {
		path = "lipo"
	}
	args := append([]string{"-create"}, inputs...)
	args = append(args, "-output", output)
	return NewExecutor(ctx).Run(exec.Command(path, args...))
}

// MissingArtifact records that an archive of the reference tree has no
// counterpart in another architecture's tree.
type MissingArtifact struct {
	Reference string
	Arch      string
	Archive   string // archive file name
	Path      string // expected path in Arch's tree
}

func (m MissingArtifact) Error() string {
	return fmt.Sprintf("archive %s exists in %s tree but does not exists in %s tree: %s",
		m.Archive, m.Reference, m.Arch, m.Path)
}

func (m MissingArtifact) Unwrap() error { return ErrArtifactMissingOnArch }

// MergeEntry is one fat library to produce.
type MergeEntry struct {
	Archive string   // path relative to the staging tree root
	Dest    string   // destination in the merged tree
	Inputs  []string // per-architecture variants, reference first
	Archs   []string // architectures of Inputs, same order
	Missing []MissingArtifact
}

// MergePlan lists everything 'libs' does for one set of architectures.
type MergePlan struct {
	Reference string
	Archs     []string
	RefDir    string // reference staging tree
	MergedDir string
	Entries   []MergeEntry
}

// stagingDir returns the absolute staging tree of arch.
func stagingDir(l Layout, arch string) string {
	return l.abs(filepath.Join(l.SDKDir, l.StagingName(arch)))
}

// siblingPath maps an archive path relative to the reference staging tree
// onto arch's staging tree. Only the staging directory component changes, so
// architecture names appearing elsewhere in the path are left intact.
func siblingPath(l Layout, arch, rel string) string {
	return filepath.Join(stagingDir(l, arch), rel)
}

// mergedName strips the debug suffix from an archive name.
func mergedName(base string) string {
	if strings.HasSuffix(base, "-debug.a") {
		return strings.TrimSuffix(base, "-debug.a") + ".a"
	}
	return base
}

// mergedPath returns where the fat library for rel is written.
func mergedPath(l Layout, rel string) string {
	dir, base := filepath.Split(rel)
	return filepath.Join(l.abs(l.MergedDir()), dir, mergedName(base))
}

// PlanMerge walks the reference (first) architecture's staging tree and
// pairs every static library with its variants in the other architectures.
// The plan depends only on the file system contents, so running it twice on
// the same trees yields the same entries and the same warnings.
func PlanMerge(l Layout, archs []string) (*MergePlan, error) {
	if len(archs) == 0 {
		return nil, fmt.Errorf("no architecture to merge")
	}
	ref := archs[0]
	plan := &MergePlan{
		Reference: ref,
		Archs:     append([]string(nil), archs...),
		RefDir:    stagingDir(l, ref),
		MergedDir: l.abs(l.MergedDir()),
	}

	// WalkDir visits entries in lexical order, which keeps the plan stable.
	err := filepath.WalkDir(plan.RefDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".a") {
			return nil
		}
		rel, err := filepath.Rel(plan.RefDir, path)
		if err != nil {
			return err
		}
		entry := MergeEntry{
			Archive: rel,
			Dest:    mergedPath(l, rel),
			Inputs:  []string{path},
			Archs:   []string{ref},
		}
		for _, arch := range archs[1:] {
			sib := siblingPath(l, arch, rel)
			if fileExists(sib) {
				entry.Inputs = append(entry.Inputs, sib)
				entry.Archs = append(entry.Archs, arch)
				continue
			}
			entry.Missing = append(entry.Missing, MissingArtifact{
				Reference: ref,
				Arch:      arch,
				Archive:   d.Name(),
				Path:      sib,
			})
		}
		plan.Entries = append(plan.Entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", plan.RefDir, err)
	}
	return plan, nil
}

// Warnings returns every missing-artifact warning of the plan in order.
func (p *MergePlan) Warnings() []MissingArtifact {
	var w []MissingArtifact
	for _, e := range p.Entries {
		w = append(w, e.Missing...)
	}
	return w
}

// ExecuteMerge copies headers and shared data of the reference tree into the
// merged tree and creates every fat library of the plan.
func ExecuteMerge(ctx context.Context, p *MergePlan, lipo Lipo, out io.Writer) error {
	if err := os.MkdirAll(p.MergedDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", p.MergedDir, err)
	}
	for _, sub := range []string{"include", "share"} {
		src := filepath.Join(p.RefDir, sub)
		if info, err := os.Stat(src); err != nil || !info.IsDir() {
			debugf("No %s directory in %s\n", sub, p.RefDir)
			continue
		}
		if err := copyDir(src, filepath.Join(p.MergedDir, sub)); err != nil {
			return fmt.Errorf("failed to copy %s: %w", sub, err)
		}
	}

	for _, e := range p.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(e.Dest), 0o755); err != nil {
			return err
		}
		for _, m := range e.Missing {
			fmt.Fprint(out, colWarn.Sprint("WARNING: "))
			fmt.Fprintln(out, m.Error())
		}
		fmt.Fprintf(out, "[%s] Mixing %s in %s\n", strings.Join(e.Archs, ","), filepath.Base(e.Archive), e.Dest)
		if err := lipo.Create(ctx, e.Inputs, e.Dest); err != nil {
			return fmt.Errorf("failed to merge %s: %w", e.Archive, err)
		}
	}
	return nil
}

// libraryDest is where a manifest library is expected in the merged tree.
func libraryDest(l Layout, lib string) string {
	if l.PluginPrefix != "" && strings.HasPrefix(lib, l.PluginPrefix) {
		return filepath.Join(l.abs(l.MergedDir()), l.PluginDir, lib)
	}
	return filepath.Join(l.abs(l.MergedDir()), "lib", lib)
}

// EnsureDummies installs the placeholder library for every manifest library
// that no architecture produced, and returns the paths it created.
func EnsureDummies(l Layout, libs []string, archs []string, out io.Writer) ([]string, error) {
	var created []string
	dummy := l.abs(l.DummyLib)
	for _, lib := range libs {
		dest := libraryDest(l, lib)
		if fileExists(dest) {
			continue
		}
		fmt.Fprintf(out, "[%s] Generating dummy %s static library.\n", strings.Join(archs, ","), lib)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return created, err
		}
		if err := copyFile(dummy, dest); err != nil {
			return created, fmt.Errorf("failed to install dummy %s: %w", lib, err)
		}
		created = append(created, dest)
	}
	return created, nil
}
