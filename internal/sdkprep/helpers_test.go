package sdkprep

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testLayout returns the default layout rooted in a fresh temp dir.
func testLayout(t *testing.T) Layout {
	t.Helper()
	return DefaultLayout(t.TempDir())
}

func testRegistry(t *testing.T, l Layout) *Registry {
	t.Helper()
	r, err := NewRegistry(l)
	require.NoError(t, err)
	return r
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// fakeBuilder returns scripted statuses and records what it was asked to build.
type fakeBuilder struct {
	mu     sync.Mutex
	codes  map[string]int
	calls  []string
	opts   []BuildOptions
	onCall func(t Target)
}

func (f *fakeBuilder) Build(_ context.Context, t Target, opts BuildOptions) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, t.Arch)
	f.opts = append(f.opts, opts)
	if f.onCall != nil {
		f.onCall(t)
	}
	return f.codes[t.Arch]
}

// fakeLipo concatenates its inputs instead of building a fat archive.
type fakeLipo struct {
	calls [][]string
}

func (f *fakeLipo) Create(_ context.Context, inputs []string, output string) error {
	f.calls = append(f.calls, append(append([]string(nil), inputs...), output))
	var data []byte
	for _, in := range inputs {
		b, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		data = append(data, b...)
	}
	return os.WriteFile(output, data, 0o644)
}

// stageLibrary writes a static library into arch's staging tree.
func stageLibrary(t *testing.T, l Layout, arch, rel string) string {
	t.Helper()
	path := filepath.Join(stagingDir(l, arch), rel)
	writeTestFile(t, path, arch+":"+filepath.Base(rel)+"\n")
	return path
}

// writeProject writes a project descriptor declaring libs from the merged tree.
func writeProject(t *testing.T, l Layout, libs ...string) {
	t.Helper()
	content := "// !$*UTF8*$!\n{\n"
	for _, lib := range libs {
		content += "\t\tF0000001 /* " + lib + " */ = {isa = PBXFileReference; lastKnownFileType = archive.ar; name = " +
			lib + "; path = \"" + filepath.ToSlash(l.MergedDir()) + "/lib/" + lib + "\"; sourceTree = \"<group>\"; };\n"
	}
	content += "}\n"
	writeTestFile(t, l.abs(l.Project), content)
}
