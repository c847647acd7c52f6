package sdkprep

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMerger(t *testing.T) (*Merger, *fakeLipo) {
	t.Helper()
	l := testLayout(t)
	lipo := &fakeLipo{}
	return &Merger{
		Settings: Settings{Layout: l},
		Registry: testRegistry(t, l),
		Lipo:     lipo,
		Out:      &bytes.Buffer{},
	}, lipo
}

func TestMergerUsesLastRun(t *testing.T) {
	m, lipo := newTestMerger(t)
	l := m.Settings.Layout
	writeProject(t, l, "libortp.a", "libmsamr.a")
	writeTestFile(t, l.abs(l.DummyLib), "dummy")
	stageLibrary(t, l, "x86_64", "lib/libortp.a")
	stageLibrary(t, l, "arm64", "lib/libortp.a")
	require.NoError(t, saveRunRecord(l, RunRecord{ID: "r", Completed: []string{"x86_64", "arm64"}}))

	res, err := m.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "x86_64", res.Plan.Reference)
	assert.Len(t, lipo.calls, 1)
	assert.Equal(t, []string{filepath.Join(l.abs(l.MergedDir()), "lib", "mediastreamer", "plugins", "libmsamr.a")}, res.Dummies)
}

func TestMergerExplicitArchs(t *testing.T) {
	m, _ := newTestMerger(t)
	l := m.Settings.Layout
	writeProject(t, l, "libortp.a")
	stageLibrary(t, l, "i386", "lib/libortp.a")
	stageLibrary(t, l, "x86_64", "lib/libortp.a")

	res, err := m.Run(context.Background(), []string{"simulators"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i386", "x86_64"}, res.Plan.Archs)
	assert.Empty(t, res.Plan.Warnings())
	assert.Empty(t, res.Dummies)
}

func TestMergerWithoutRun(t *testing.T) {
	m, _ := newTestMerger(t)
	_, err := m.Run(context.Background(), nil)
	assert.Error(t, err)

	_, err = m.Run(context.Background(), []string{"bogus"})
	assert.ErrorIs(t, err, ErrInvalidPlatform)
}

func TestMergerPrintsGPLNotice(t *testing.T) {
	m, _ := newTestMerger(t)
	l := m.Settings.Layout
	writeProject(t, l)
	stageLibrary(t, l, "arm64", "lib/libortp.a")
	writeTestFile(t, l.abs(m.Registry.MustLookup("arm64").CMakeCache()), "ENABLE_GPL_THIRD_PARTIES:BOOL=ON\n")

	_, err := m.Run(context.Background(), []string{"arm64"})
	require.NoError(t, err)
	assert.Contains(t, m.Out.(*bytes.Buffer).String(), "built using 3rd party GPL code")
}

func TestMergerWarnsOnEmptyManifest(t *testing.T) {
	m, _ := newTestMerger(t)
	l := m.Settings.Layout
	writeProject(t, l)
	stageLibrary(t, l, "i386", "lib/libortp.a")

	_, err := m.Run(context.Background(), []string{"i386"})
	require.NoError(t, err)
	assert.Contains(t, m.Out.(*bytes.Buffer).String(), "declares no library under liblinphone-sdk/apple-darwin/")
}
