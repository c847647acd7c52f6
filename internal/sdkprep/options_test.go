package sdkprep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPassthrough(t *testing.T) {
	testCases := []struct {
		name      string
		args      []string
		own       []string
		forwarded []string
	}{
		{
			name: "platforms only",
			args: []string{"x86_64", "devices"},
			own:  []string{"x86_64", "devices"},
		},
		{
			name:      "definitions anywhere",
			args:      []string{"-DENABLE_VIDEO=NO", "arm64", "-f", "-DENABLE_GPL_THIRD_PARTIES=NO"},
			own:       []string{"arm64", "-f"},
			forwarded: []string{"-DENABLE_VIDEO=NO", "-DENABLE_GPL_THIRD_PARTIES=NO"},
		},
		{
			name:      "after double dash",
			args:      []string{"i386", "--", "-G", "Ninja", "x86_64"},
			own:       []string{"i386"},
			forwarded: []string{"-G", "Ninja", "x86_64"},
		},
		{
			name: "legacy spellings",
			args: []string{"-dv", "-C", "all"},
			own:  []string{"--debug-verbose", "--clean", "all"},
		},
		{
			name: "bare -D is not a definition",
			args: []string{"-D"},
			own:  []string{"-D"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			own, forwarded := splitPassthrough(tc.args, nil)
			assert.Equal(t, tc.own, own)
			assert.Equal(t, tc.forwarded, forwarded)
		})
	}
}

func TestSplitPassthroughForwardsUnknownFlags(t *testing.T) {
	known := func(flag string) bool { return flag == "-f" || flag == "--force" }

	own, forwarded := splitPassthrough([]string{"--trace", "-f", "arm64", "-G", "-DA=1", "--force", "--warn-uninitialized"}, known)
	assert.Equal(t, []string{"-f", "arm64", "--force"}, own)
	assert.Equal(t, []string{"--trace", "-G", "-DA=1", "--warn-uninitialized"}, forwarded)
}

func TestBuildOptions(t *testing.T) {
	o := RunOptions{Debug: true, ExtraArgs: []string{"-DX=1"}}
	bo := o.buildOptions()
	assert.True(t, bo.Debug)
	assert.Equal(t, []string{"-DX=1"}, bo.Args)

	o.DebugVerbose = true
	bo = o.buildOptions()
	assert.Equal(t, []string{"-DX=1", "-DENABLE_DEBUG_LOGS=YES"}, bo.Args)
	assert.Equal(t, []string{"-DX=1"}, o.ExtraArgs, "run options are not modified")
}

func TestShellJoin(t *testing.T) {
	assert.Equal(t, "sdkprep x86_64 -DA=1", shellJoin([]string{"sdkprep", "x86_64", "-DA=1"}))
	assert.Equal(t, `sdkprep '-DNAME=a b' 'it'\''s' ''`, shellJoin([]string{"sdkprep", "-DNAME=a b", "it's", ""}))
}
