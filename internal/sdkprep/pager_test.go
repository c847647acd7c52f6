package sdkprep

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBuildLog(t *testing.T) {
	l := testLayout(t)
	r := testRegistry(t, l)
	tgt := r.MustLookup("x86_64")
	writeTestFile(t, l.abs(tgt.BuildLog()), "-- Configuring done\n-- Generating done\n")

	lines, err := readBuildLog(r, "x86_64")
	require.NoError(t, err)
	assert.Equal(t, []string{"-- Configuring done", "-- Generating done"}, lines)

	_, err = readBuildLog(r, "i386")
	assert.ErrorContains(t, err, "no build log for i386")

	_, err = readBuildLog(r, "ppc")
	assert.ErrorIs(t, err, ErrUnknownArchitecture)
}

func TestPrintLines(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printLines(&out, []string{"a", "b"}))
	assert.Equal(t, "a\nb\n", out.String())
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
}
