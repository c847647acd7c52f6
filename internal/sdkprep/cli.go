package sdkprep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

// app carries what the commands share: settings are resolved once the
// command line is parsed.
type app struct {
	settings  Settings
	forwarded []string
	argv      []string
	verbose   bool
	stdout    io.Writer
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(filepath.Join(root, ConfigFile))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}
	a.settings = initConfig(cfg, root)
	if a.verbose {
		Debug = true
	}
	if len(a.forwarded) > 0 && cmd.Parent() != nil {
		return fmt.Errorf("%s does not take builder arguments: %s", cmd.Name(), shellJoin(a.forwarded))
	}
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	var opts RunOptions

	root := &cobra.Command{
		Use:   "sdkprep [platform...] [-D<VAR>=<VALUE>...] [-- builder-args...]",
		Short: "Prepare the multi-architecture SDK build",
		Long: "Configure one build per architecture, then write a Makefile whose\n" +
			"'libs' target merges the results into fat libraries.\n\n" +
			"Platforms: all, devices, simulators, arm64, armv7, i386, x86_64\n" +
			"(default: " + strings.Join(DefaultPlatforms, " ") + ").",
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Platforms = args
			opts.ExtraArgs = a.forwarded
			opts.Invocation = shellJoin(a.argv)
			p, err := NewPreparer(a.settings)
			if err != nil {
				return err
			}
			p.Out = a.stdout
			_, err = p.Run(cmd.Context(), opts)
			return err
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "print debug output")

	f := root.Flags()
	f.BoolVarP(&opts.Clean, "clean", "c", false, "clean the build trees of the platforms instead of building")
	f.BoolVarP(&opts.Debug, "debug", "d", false, "configure debug builds")
	f.BoolVar(&opts.DebugVerbose, "debug-verbose", false, "configure debug builds with debug logs (-dv)")
	f.BoolVarP(&opts.Force, "force", "f", false, "reconfigure even if a build tree exists")
	f.BoolVarP(&opts.ListVariables, "list-cmake-variables", "L", false, "list the builder's configuration variables")

	root.AddCommand(
		newLibsCmd(a),
		newPackCmd(a),
		newVerifyCmd(a),
		newPublishCmd(a),
		newTargetsCmd(a),
		newLogCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newLibsCmd(a *app) *cobra.Command {
	var archs []string
	cmd := &cobra.Command{
		Use:   "libs [platform...]",
		Short: "Merge the per-architecture libraries into fat libraries",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := NewRegistry(a.settings.Layout)
			if err != nil {
				return err
			}
			m := &Merger{
				Settings: a.settings,
				Registry: reg,
				Lipo:     LipoTool{Path: a.settings.Tools.Lipo},
				Out:      a.stdout,
			}
			res, err := m.Run(cmd.Context(), append(archs, args...))
			if err != nil {
				return err
			}
			if n := len(res.Plan.Warnings()); n > 0 {
				cPrintf(colInfo, "%d archives were missing on some architecture\n", n)
			}
			step("Merged tree ready in %s", a.settings.Layout.MergedDir())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&archs, "archs", nil, "architectures to merge (default: those of the last run)")
	return cmd
}

func newPackCmd(a *app) *cobra.Command {
	var opts PackOptions
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Archive the merged SDK tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format == "" {
				opts.Format = a.settings.ArchiveFormat
			}
			opts.Extra = []string{"liblinphone-tutorials"}
			_, err := CreateSDKArchive(a.settings.Layout, opts)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "", "compression: gz, xz or zst (default from SDKPREP_ARCHIVE_FORMAT)")
	cmd.Flags().StringVar(&opts.Version, "version", "", "SDK version in the archive name")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "directory for the archive")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive>",
		Short: "Check an SDK archive against its checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := VerifySDKArchive(args[0])
			if err != nil {
				return err
			}
			step("%s OK: %d entries, %d files, %s", filepath.Base(rep.Path), rep.Entries, rep.Files, humanReadableSize(rep.Bytes))
			fmt.Fprintf(a.stdout, "blake3 %s\n", rep.Checksum)
			return nil
		},
	}
}

func newPublishCmd(a *app) *cobra.Command {
	var opts PublishOptions
	cmd := &cobra.Command{
		Use:   "publish <archive>",
		Short: "Upload an SDK archive and its checksum to the S3 bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := NewS3Store(cmd.Context(), a.settings.S3)
			if err != nil {
				return err
			}
			opts.Prefix = a.settings.S3.Prefix
			keys, err := PublishArchive(cmd.Context(), store, args[0], opts)
			if err != nil {
				return err
			}
			step("Published %s to %s", strings.Join(keys, ", "), a.settings.S3.Bucket)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "overwrite existing objects without asking")
	return cmd
}

func newTargetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the build targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := NewRegistry(a.settings.Layout)
			if err != nil {
				return err
			}
			return printTargets(a.stdout, reg)
		},
	}
}

func printTargets(w io.Writer, reg *Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ARCH\tTARGET\tCONFIG\tTOOLCHAIN\tOUTPUT")
	for _, arch := range reg.Archs() {
		t := reg.MustLookup(arch)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Arch, t.Name, t.ConfigFile, t.ToolchainFile, t.Output)
	}
	fmt.Fprintln(tw)
	for _, g := range platformGroups {
		fmt.Fprintf(tw, "%s\t%s\n", g.Name, strings.Join(g.Archs, " "))
	}
	return tw.Flush()
}

func newLogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "log <arch>",
		Short: "Show the last build log of an architecture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := NewRegistry(a.settings.Layout)
			if err != nil {
				return err
			}
			lines, err := readBuildLog(reg, args[0])
			if err != nil {
				return err
			}
			return RunPager("ios-"+args[0]+" build log", lines)
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sdkprep version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "sdkprep %s (built %s, %s)\n", version, buildDate, hostArch)
		},
	}
}

// invokesSubcommand reports whether the first positional argument names a
// subcommand rather than a platform.
func invokesSubcommand(root *cobra.Command, args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if strings.HasPrefix(a, "-") {
			continue
		}
		if a == "help" || a == "completion" {
			return true
		}
		for _, c := range root.Commands() {
			if c.Name() == a || c.HasAlias(a) {
				return true
			}
		}
		return false
	}
	return false
}

// rootFlagKnown reports whether a flag token is one of the prepare flags.
// Shorthand clusters such as "-cf" are known when every letter is.
func rootFlagKnown(root *cobra.Command) func(string) bool {
	long := func(name string) bool {
		return root.Flags().Lookup(name) != nil || root.PersistentFlags().Lookup(name) != nil
	}
	short := func(c string) bool {
		return root.Flags().ShorthandLookup(c) != nil || root.PersistentFlags().ShorthandLookup(c) != nil
	}
	return func(tok string) bool {
		if tok == "-h" || tok == "--help" {
			return true
		}
		if name, ok := strings.CutPrefix(tok, "--"); ok {
			name, _, _ = strings.Cut(name, "=")
			return long(name)
		}
		for _, c := range strings.TrimPrefix(tok, "-") {
			if c > 127 || !short(string(c)) {
				return false
			}
		}
		return true
	}
}

// Execute runs the command line and returns the process exit status: 0, the
// raw status of the first failing build, or 1.
func Execute(ctx context.Context, argv []string, stdout io.Writer) int {
	a := &app{argv: argv, stdout: stdout}
	root := newRootCmd(a)

	// Only the prepare run hands unknown flags to the builder.
	var known func(string) bool
	if !invokesSubcommand(root, argv[1:]) {
		known = rootFlagKnown(root)
	}
	own, forwarded := splitPassthrough(argv[1:], known)
	a.forwarded = forwarded
	root.SetArgs(own)
	root.SetOut(stdout)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var bf *BuildFailedError
	switch {
	case ctx.Err() != nil:
		colArrow.Print("-> ")
		colError.Printf("Interrupted: %v\n", err)
		return 130
	case errors.As(err, &bf) && bf.Code == OptionsHelpStatus:
		cPrintln(colNote, "Re-run with --clean or --force to reconfigure "+bf.Arch+".")
	case errors.As(err, &bf):
		colArrow.Print("-> ")
		colError.Printf("%s failed with status %d\n", bf.Arch, bf.Code)
	default:
		colArrow.Print("-> ")
		colError.Printf("Error: %v\n", err)
	}
	return ExitStatus(err)
}

// Main is the CLI entrypoint.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// First signal cancels the context, which kills the running builder's
	// process group; a second one exits at once.
	go func() {
		select {
		case sig := <-sigs:
			colArrow.Print("\n-> ")
			color.Danger.Printf("Received %v. Cancelling gracefully\n", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigs:
			colArrow.Print("\n-> ")
			color.Danger.Println("Second interrupt received. Forcing immediate exit.")
			os.Exit(130)
		case <-time.After(5 * time.Second):
			colArrow.Print("\n-> ")
			color.Danger.Println("Graceful shutdown timeout. Exiting.")
			os.Exit(130)
		}
	}()

	status := Execute(ctx, os.Args, os.Stdout)
	cancel()
	os.Exit(status)
}
