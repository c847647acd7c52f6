package sdkprep

import (
	"strings"
)

// RunOptions captures one invocation of the prepare command. It is built
// once from the command line and passed read-only to every component that
// needs it, including the help text of the generated Makefile.
type RunOptions struct {
	Platforms     []string // tokens as given, before expansion
	Clean         bool
	Debug         bool
	DebugVerbose  bool
	Force         bool
	ListVariables bool
	ExtraArgs     []string // forwarded verbatim to the builder
	Invocation    string   // full command line, for help-prepare-options
}

// BuildOptions is what the builder receives for one target.
type BuildOptions struct {
	Debug         bool
	Force         bool
	ListVariables bool
	Args          []string
}

// buildOptions derives the per-target builder options. The debug-logs flag is
// added once here rather than per target.
func (o RunOptions) buildOptions() BuildOptions {
	args := append([]string(nil), o.ExtraArgs...)
	if o.DebugVerbose {
		args = append(args, "-DENABLE_DEBUG_LOGS=YES")
	}
	return BuildOptions{
		Debug:         o.Debug,
		Force:         o.Force,
		ListVariables: o.ListVariables,
		Args:          args,
	}
}

// splitPassthrough separates builder arguments from sdkprep's own arguments.
// "-D" definitions anywhere and everything after "--" are forwarded; the
// legacy "-dv" and "-C" spellings are normalized. When known is set, any other
// flag it does not recognize is forwarded as well. Values of such flags must
// be attached ("--trace-format=json") or placed after "--".
func splitPassthrough(args []string, known func(flag string) bool) (own, forwarded []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			forwarded = append(forwarded, args[i+1:]...)
			return own, forwarded
		case strings.HasPrefix(a, "-D") && len(a) > 2:
			forwarded = append(forwarded, a)
		case a == "-dv":
			own = append(own, "--debug-verbose")
		case a == "-C":
			own = append(own, "--clean")
		case known != nil && len(a) > 1 && strings.HasPrefix(a, "-") && !known(a):
			forwarded = append(forwarded, a)
		default:
			own = append(own, a)
		}
	}
	return own, forwarded
}

// shellJoin renders args as a single readable command line.
func shellJoin(args []string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'$`\\") {
			parts[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
			continue
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}
