package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/Veraticus/idlewatch/pkg/config"
)

// cliOptions holds the parsed command line. Flags only override the loaded
// configuration when they were given explicitly.
type cliOptions struct {
	configPath      string
	topic           string
	page            string
	idleCheckPeriod time.Duration
	quiet           bool
	oneShot         bool
	statusLine      bool
	osActivity      bool
	watch           bool
	debug           bool
	command         []string

	flags *flag.FlagSet
}

func newFlagSet(opts *cliOptions, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("idlewatch", flag.ContinueOnError)
	fs.SetOutput(output)
	// The first non-flag argument starts the wrapped command.
	fs.SetInterspersed(false)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.StringVar(&opts.topic, "topic", "", "Ntfy topic for notifications")
	fs.StringVar(&opts.page, "page", "", "Focus detection: auto, terminal, tmux or none")
	fs.DurationVar(&opts.idleCheckPeriod, "idle-check-period", 0, "Inactivity before going idle (default 60s)")
	fs.BoolVar(&opts.quiet, "quiet", false, "Disable all notifications")
	fs.BoolVar(&opts.oneShot, "one-shot", false, "Report idle only once, then stop tracking")
	fs.BoolVar(&opts.statusLine, "status-line", false, "Show idle and focus state on the last terminal line")
	fs.BoolVar(&opts.osActivity, "os-activity", false, "Count input anywhere on the machine as activity")
	fs.BoolVar(&opts.watch, "watch", false, "Run without a command and print transitions to stdout")
	fs.BoolVar(&opts.debug, "debug", false, "Log debug output to stderr")

	fs.Usage = func() { printUsage(output, fs) }
	return fs
}

// parseArgs parses idlewatch's flags. Everything from the first non-flag
// argument, or after "--", is the command to wrap.
func parseArgs(args []string, output io.Writer) (*cliOptions, error) {
	opts := &cliOptions{}
	opts.flags = newFlagSet(opts, output)

	if err := opts.flags.Parse(args); err != nil {
		return nil, err
	}
	opts.command = opts.flags.Args()

	if opts.watch && len(opts.command) > 0 {
		return nil, fmt.Errorf("--watch does not take a command")
	}
	return opts, nil
}

// apply lays explicitly set flags over cfg.
func (o *cliOptions) apply(cfg *config.Config) {
	changed := o.flags.Changed

	if changed("topic") {
		cfg.NtfyTopic = o.topic
	}
	if changed("page") {
		cfg.Page = o.page
	}
	if changed("idle-check-period") {
		cfg.IdleCheckPeriod = o.idleCheckPeriod
	}
	if changed("quiet") {
		cfg.Quiet = o.quiet
	}
	if changed("one-shot") {
		cfg.KeepTracking = !o.oneShot
	}
	if changed("status-line") {
		cfg.StatusLine = o.statusLine
	}
	if changed("os-activity") {
		cfg.OSActivity = o.osActivity
	}
	if changed("watch") {
		cfg.Watch = o.watch
	}
	if changed("debug") && o.debug {
		cfg.Log.Level = "debug"
	}
}

// resolveCommand picks what to run: the command line, then the configured
// command, then the user's shell.
func resolveCommand(cmdline, configured []string) (string, []string) {
	switch {
	case len(cmdline) > 0:
		return cmdline[0], cmdline[1:]
	case len(configured) > 0:
		return configured[0], configured[1:]
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell, nil
	}
	return "/bin/sh", nil
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "idlewatch: %v\n", err)
		os.Exit(2)
	}

	// Must be set before loading so the file is read from there.
	if opts.configPath != "" {
		if err := os.Setenv("IDLEWATCH_CONFIG", opts.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting config path: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadWith(opts.apply)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	deps, err := NewDependencies(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating dependencies: %v\n", err)
		os.Exit(1)
	}

	app := NewApplication(deps)

	// In wrap mode signals are forwarded to the command and its exit ends
	// the session; watch mode ends on the signal itself.
	ctx := context.Background()
	if cfg.Watch {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	// Ensure terminal restoration on panic
	defer func() {
		if r := recover(); r != nil {
			_ = app.Stop()
			deps.Close()
			panic(r)
		}
	}()

	command, args := resolveCommand(opts.command, cfg.Command)
	deps.Logger.Debug("starting", "command", command, "args", args, "watch", cfg.Watch, "quiet", cfg.Quiet)

	if err := app.Run(ctx, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error running %s: %v\n", command, err)
		deps.Close()
		os.Exit(1)
	}

	deps.Close()
	os.Exit(app.ExitCode())
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "idlewatch - notify when a terminal session goes idle")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: idlewatch [OPTIONS] [--] [COMMAND [ARGS...]]")
	fmt.Fprintln(w, "       idlewatch --watch [OPTIONS]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Runs COMMAND (default $SHELL) in a pseudo-terminal and reports when")
	fmt.Fprintln(w, "input stops for the idle check period, resumes, or the terminal loses")
	fmt.Fprintln(w, "or regains focus.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  IDLEWATCH_TOPIC              Ntfy topic for notifications")
	fmt.Fprintln(w, "  IDLEWATCH_SERVER             Ntfy server URL (default: https://ntfy.sh)")
	fmt.Fprintln(w, "  IDLEWATCH_NOTIFY_ON          Transitions to send (default: idle)")
	fmt.Fprintln(w, "  IDLEWATCH_IDLE_CHECK_PERIOD  Inactivity before going idle (default: 60s)")
	fmt.Fprintln(w, "  IDLEWATCH_KEEP_TRACKING      Keep tracking after the first idle (default: true)")
	fmt.Fprintln(w, "  IDLEWATCH_PAGE               Focus detection mode (default: auto)")
	fmt.Fprintln(w, "  IDLEWATCH_OS_ACTIVITY        Count OS-wide input as activity")
	fmt.Fprintln(w, "  IDLEWATCH_QUIET              Disable notifications (true/false)")
	fmt.Fprintln(w, "  IDLEWATCH_STATUS_LINE        Show the status line (true/false)")
	fmt.Fprintln(w, "  IDLEWATCH_DEBUG              Log debug output")
	fmt.Fprintln(w, "  IDLEWATCH_LOG_FILE           Write logs to a file instead of stderr")
	fmt.Fprintln(w, "  IDLEWATCH_CONFIG             Path to config file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration file: ~/.config/idlewatch/config.yaml")
}
