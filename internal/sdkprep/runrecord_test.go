package sdkprep

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecordRoundTrip(t *testing.T) {
	l := testLayout(t)
	opts := RunOptions{
		Platforms:    []string{"x86_64", "devices"},
		DebugVerbose: true,
		ExtraArgs:    []string{"-DENABLE_VIDEO=NO"},
		Invocation:   "sdkprep x86_64 devices -dv -DENABLE_VIDEO=NO",
	}
	rep := &Report{Archs: []string{"x86_64", "arm64", "armv7"}, Completed: []string{"x86_64", "arm64", "armv7"}}
	rec := newRunRecord(opts, rep)

	_, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "x86_64", rec.Reference)

	require.NoError(t, saveRunRecord(l, rec))
	loaded, err := LoadRunRecord(l)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, loaded.ID)
	assert.True(t, rec.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, rec.Completed, loaded.Completed)
	assert.Equal(t, rec.ExtraArgs, loaded.ExtraArgs)
	assert.Equal(t, rec.Invocation, loaded.Invocation)
	assert.True(t, loaded.DebugVerbose)
}

func TestLoadRunRecordMissing(t *testing.T) {
	_, err := LoadRunRecord(testLayout(t))
	assert.Error(t, err)
}
