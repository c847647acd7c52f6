package sdkprep

import (
	"errors"
	"runtime"

	"github.com/gookit/color"
)

const (
	// Status returned by the builder when the working directory already exists
	// and the user should look at the options of the previous run.
	OptionsHelpStatus = 51

	// Name of the generated second-stage script.
	MakefileName = "Makefile"

	// Run configuration recorded for the generated Makefile and 'sdkprep libs'.
	RunRecordName = "sdkprep-run.toml"

	// Per-architecture build log, written next to the CMake tree.
	BuildLogName = "sdkprep-build.log"

	lockName = ".sdkprep.lock"
)

// Global variables
var (
	Debug      bool
	ConfigFile = "sdkprep.conf"
	version    = "dev"     // overridden at build time
	buildDate  = "unknown" // overridden at build time
	hostArch   = runtime.GOARCH

	ErrInvalidPlatform       = errors.New("invalid platform")
	ErrUnknownArchitecture   = errors.New("unknown architecture")
	ErrManifestUnreadable    = errors.New("project descriptor unreadable")
	ErrBuildFailed           = errors.New("build failed")
	ErrArtifactMissingOnArch = errors.New("artifact missing on architecture")
	ErrLocked                = errors.New("another sdkprep run holds the working tree")
)

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
