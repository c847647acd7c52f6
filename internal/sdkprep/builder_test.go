package sdkprep

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCMake writes a cmake stand-in that records its arguments and exits
// with $FAKE_CMAKE_STATUS.
func fakeCMake(t *testing.T) (script, record string) {
	t.Helper()
	dir := t.TempDir()
	record = filepath.Join(dir, "calls")
	script = filepath.Join(dir, "cmake")
	content := "#!/bin/sh\necho \"$@\" >> " + record + "\necho configured\nexit ${FAKE_CMAKE_STATUS:-0}\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0o755))
	return script, record
}

func TestCMakeBuilderConfigures(t *testing.T) {
	l := testLayout(t)
	tgt := testRegistry(t, l).MustLookup("arm64")
	script, record := fakeCMake(t)

	var out bytes.Buffer
	b := &CMakeBuilder{Layout: l, CMake: script, Out: &out}
	code := b.Build(context.Background(), tgt, BuildOptions{Debug: true, Args: []string{"-DENABLE_VIDEO=NO"}})
	require.Equal(t, 0, code)

	calls := strings.Split(strings.TrimSpace(readTestFile(t, record)), "\n")
	require.Len(t, calls, 1)
	args := calls[0]
	assert.Contains(t, args, filepath.Join(l.Root, "submodules", "cmake-builder"))
	assert.Contains(t, args, "-DCMAKE_TOOLCHAIN_FILE="+filepath.Join(l.Root, "toolchains", "toolchain-ios-arm64.cmake"))
	assert.Contains(t, args, "-DLINPHONE_BUILDER_CONFIG_FILE="+filepath.Join(l.Root, "configs", "config-ios-arm64.cmake"))
	assert.Contains(t, args, "-DCMAKE_INSTALL_PREFIX="+filepath.Join(l.Root, "liblinphone-sdk", "arm64-apple-darwin.ios"))
	assert.Contains(t, args, "-DCMAKE_BUILD_TYPE=Debug")
	assert.True(t, strings.HasSuffix(args, "-DENABLE_VIDEO=NO"), "forwarded args come last: %s", args)

	assert.DirExists(t, l.abs(tgt.CMakeDir()))
	assert.Contains(t, readTestFile(t, l.abs(tgt.BuildLog())), "configured")
	assert.Contains(t, out.String(), "configured")
}

func TestCMakeBuilderExistingTree(t *testing.T) {
	l := testLayout(t)
	tgt := testRegistry(t, l).MustLookup("x86_64")
	script, record := fakeCMake(t)
	writeTestFile(t, filepath.Join(l.abs(tgt.CMakeDir()), "stale"), "x")

	var out bytes.Buffer
	b := &CMakeBuilder{Layout: l, CMake: script, Out: &out}
	assert.Equal(t, OptionsHelpStatus, b.Build(context.Background(), tgt, BuildOptions{}))
	assert.Contains(t, out.String(), "already exists")
	assert.NoFileExists(t, record)

	assert.Equal(t, 0, b.Build(context.Background(), tgt, BuildOptions{Force: true}))
	assert.NoFileExists(t, filepath.Join(l.abs(tgt.CMakeDir()), "stale"))
	assert.FileExists(t, record)
}

func TestCMakeBuilderReturnsRawStatus(t *testing.T) {
	l := testLayout(t)
	tgt := testRegistry(t, l).MustLookup("i386")
	script, _ := fakeCMake(t)
	t.Setenv("FAKE_CMAKE_STATUS", "3")

	b := &CMakeBuilder{Layout: l, CMake: script, Out: &bytes.Buffer{}}
	assert.Equal(t, 3, b.Build(context.Background(), tgt, BuildOptions{}))
}

func TestCMakeBuilderListVariables(t *testing.T) {
	l := testLayout(t)
	tgt := testRegistry(t, l).MustLookup("armv7")
	script, record := fakeCMake(t)

	b := &CMakeBuilder{Layout: l, CMake: script, Out: &bytes.Buffer{}}
	require.Equal(t, 0, b.Build(context.Background(), tgt, BuildOptions{ListVariables: true}))

	calls := strings.Split(strings.TrimSpace(readTestFile(t, record)), "\n")
	require.Len(t, calls, 2)
	assert.Equal(t, "-LH "+l.abs(tgt.CMakeDir()), calls[1])
}

func TestCMakeBuilderMissingTool(t *testing.T) {
	l := testLayout(t)
	tgt := testRegistry(t, l).MustLookup("armv7")

	b := &CMakeBuilder{Layout: l, CMake: filepath.Join(t.TempDir(), "no-cmake"), Out: &bytes.Buffer{}}
	assert.Equal(t, 1, b.Build(context.Background(), tgt, BuildOptions{}))
}
