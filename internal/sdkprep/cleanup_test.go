package sdkprep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveTreeReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores permission bits")
	}
	root := filepath.Join(t.TempDir(), "tree")
	file := filepath.Join(root, "a", "b", "lib.a")
	writeTestFile(t, file, "x")
	require.NoError(t, os.Chmod(file, 0o444))
	require.NoError(t, os.Chmod(filepath.Join(root, "a", "b"), 0o555))
	require.NoError(t, os.Chmod(filepath.Join(root, "a"), 0o555))

	require.NoError(t, removeTree(root))
	assert.NoDirExists(t, root)
}

func TestRemoveTreeMissing(t *testing.T) {
	assert.NoError(t, removeTree(filepath.Join(t.TempDir(), "absent")))
}

func TestCleanTarget(t *testing.T) {
	l := testLayout(t)
	tgt := testRegistry(t, l).MustLookup("arm64")
	other := testRegistry(t, l).MustLookup("armv7")
	writeTestFile(t, filepath.Join(l.abs(tgt.BuildDir()), "ortp", "Makefile"), "")
	stageLibrary(t, l, "arm64", "lib/libortp.a")
	stageLibrary(t, l, "armv7", "lib/libortp.a")

	require.NoError(t, cleanTarget(l, tgt))
	assert.NoDirExists(t, l.abs(tgt.WorkDir()))
	assert.NoDirExists(t, l.abs(tgt.Output))
	assert.DirExists(t, l.abs(other.Output))

	require.NoError(t, cleanTarget(l, tgt), "cleaning twice is fine")
}
