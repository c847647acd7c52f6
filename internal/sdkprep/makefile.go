package sdkprep

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

//go:embed makefile.tmpl
var makefileTemplate string

var makefileTmpl = template.Must(template.New("Makefile").Funcs(template.FuncMap{
	"join":   strings.Join,
	"mkquote": makeQuote,
}).Parse(makefileTemplate))

// makeQuote quotes s as one shell word inside a Makefile.
func makeQuote(s string) string {
	s = strings.ReplaceAll(s, "$", "$$")
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// MakefileData is everything the generated Makefile depends on.
type MakefileData struct {
	Version        string
	RunID          string
	Archs          []string // completed architectures, reference first
	Packages       []string
	Libs           []string
	SDKPrep        string // command line invoking this tool
	Options        string // invocation echoed by help-prepare-options
	WorkDir        string
	SDKDir         string
	MergedDir      string
	SourceDir      string
	PlatformSuffix string
}

// newMakefileData derives the template input. Paths use forward slashes
// because they end up in shell recipes.
func newMakefileData(l Layout, rec RunRecord, packages, libs []string, self string) MakefileData {
	return MakefileData{
		Version:        rec.Version,
		RunID:          rec.ID,
		Archs:          rec.Completed,
		Packages:       packages,
		Libs:           libs,
		SDKPrep:        self,
		Options:        rec.Invocation,
		WorkDir:        filepath.ToSlash(l.WorkDir),
		SDKDir:         filepath.ToSlash(l.SDKDir),
		MergedDir:      filepath.ToSlash(l.MergedDir()),
		SourceDir:      filepath.ToSlash(l.SourceDir),
		PlatformSuffix: l.PlatformSuffix,
	}
}

// RenderMakefile renders the second-stage build script.
func RenderMakefile(d MakefileData) ([]byte, error) {
	if len(d.Archs) == 0 {
		return nil, fmt.Errorf("cannot render a Makefile without architectures")
	}
	var buf bytes.Buffer
	if err := makefileTmpl.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("failed to render Makefile: %w", err)
	}
	return buf.Bytes(), nil
}

// listPackages returns the external packages configured for a target, that
// is the sorted subdirectories of its Build directory.
func listPackages(l Layout, t Target) ([]string, error) {
	entries, err := os.ReadDir(l.abs(t.BuildDir()))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pkgs []string
	for _, e := range entries {
		if e.IsDir() {
			pkgs = append(pkgs, e.Name())
		}
	}
	sort.Strings(pkgs)
	return pkgs, nil
}

func makefilePath(l Layout) string {
	return l.abs(MakefileName)
}

// WriteMakefile overwrites the Makefile at the layout root.
func WriteMakefile(l Layout, data []byte) error {
	return writeFileAtomic(makefilePath(l), data, 0o644)
}

// RemoveMakefile deletes a stale Makefile; a missing file is fine.
func RemoveMakefile(l Layout) error {
	err := os.Remove(makefilePath(l))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// selfCommand returns how the Makefile should call back into sdkprep.
func selfCommand() string {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return exe
	}
	return "sdkprep"
}
