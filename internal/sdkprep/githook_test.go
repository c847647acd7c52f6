package sdkprep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallGitHook(t *testing.T) {
	l := testLayout(t)
	hook := filepath.Join(l.Root, ".git", "hooks", "pre-commit")
	writeTestFile(t, filepath.Join(l.Root, ".git-pre-commit"), "#!/bin/sh\n")

	require.NoError(t, installGitHook(l))
	assert.NoFileExists(t, hook, "no hooks directory, nothing installed")

	require.NoError(t, os.MkdirAll(filepath.Dir(hook), 0o755))
	require.NoError(t, installGitHook(l))
	assert.Equal(t, "#!/bin/sh\n", readTestFile(t, hook))

	writeTestFile(t, hook, "custom\n")
	require.NoError(t, installGitHook(l))
	assert.Equal(t, "custom\n", readTestFile(t, hook), "an existing hook is kept")
}
