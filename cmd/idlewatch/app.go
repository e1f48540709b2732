package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/Veraticus/idlewatch/pkg/config"
	"github.com/Veraticus/idlewatch/pkg/idle"
	"github.com/Veraticus/idlewatch/pkg/input"
	"github.com/Veraticus/idlewatch/pkg/interfaces"
	"github.com/Veraticus/idlewatch/pkg/logging"
	"github.com/Veraticus/idlewatch/pkg/loop"
	"github.com/Veraticus/idlewatch/pkg/notification"
	"github.com/Veraticus/idlewatch/pkg/page"
	"github.com/Veraticus/idlewatch/pkg/process"
	"github.com/Veraticus/idlewatch/pkg/status"
)

// errNoOSActivity is returned for watch mode on a platform that can't
// report OS idle time, since nothing would ever count as activity.
var errNoOSActivity = errors.New("watch mode needs OS idle time, which is unavailable here")

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config              *config.Config
	Logger              *logging.Logger
	Loop                *loop.Loop
	Terminal            *input.Terminal
	OSActivity          *input.OSActivity
	Page                interfaces.Page
	Host                *idle.Host
	Notifier            notification.Notifier
	RateLimiter         interfaces.RateLimiter
	NotificationManager *notification.Manager
	StatusIndicator     *status.Indicator
	ProcessManager      *process.Manager
	stopChan            chan struct{}
}

// NewDependencies creates all dependencies with the given configuration
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	return newDependencies(cfg, os.Stdout, os.Stderr)
}

func newDependencies(cfg *config.Config, stdout, stderr io.Writer) (*Dependencies, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		stopChan: make(chan struct{}),
	}

	// A panicking callback must not take the terminal down with it.
	deps.Loop = loop.New(
		loop.WithLogger(logger.Logger),
		loop.WithPanicHandler(func(err *loop.CallbackError) {
			logger.Error("detector callback panicked", "error", err)
		}),
	)
	deps.Loop.Start()

	if cfg.OSActivity || cfg.Watch {
		deps.OSActivity = input.NewOSActivity(cfg.OSPollInterval, logger.Logger)
		if !deps.OSActivity.Available() {
			deps.OSActivity = nil
			if cfg.Watch {
				deps.Close()
				return nil, errNoOSActivity
			}
			logger.Warn("OS idle time unavailable, tracking terminal input only")
		}
	}

	if !cfg.Watch {
		deps.Terminal = input.NewTerminal()
	}

	pageMode := cfg.Page
	if deps.Terminal == nil && pageMode != page.ModeTmux && pageMode != page.ModeNone {
		// Terminal focus reports need the wrapped terminal.
		pageMode = page.ModeNone
		if tmux := page.NewTmuxPage(""); cfg.Page != page.ModeTerminal && tmux.IsAvailable() {
			pageMode = page.ModeTmux
		}
	}
	var target interfaces.Target
	if deps.Terminal != nil {
		target = deps.Terminal
	}
	deps.Page, err = page.New(pageMode, target)
	if err != nil {
		deps.Close()
		return nil, err
	}
	if tmux, ok := deps.Page.(*page.TmuxPage); ok {
		// Take the first sample here so the detector never waits on tmux.
		tmux.SetPollInterval(cfg.VisibilityCheckInterval)
		tmux.Refresh()
	}

	deps.Host = idle.NewHost(deps.Loop, deps.Page, logger.Logger)

	statusEnabled := cfg.StatusLine && !cfg.Watch && isTerminal(stderr)
	deps.StatusIndicator = status.NewIndicator(stderr, statusEnabled)
	if statusEnabled {
		deps.StatusIndicator.StartAutoRefresh(deps.stopChan)
	}

	switch {
	case cfg.Watch:
		// Every transition is printed as it happens.
		deps.Notifier = notification.NewStdoutNotifier(stdout)
		watchCfg := *cfg
		watchCfg.BatchWindow = 0
		deps.NotificationManager = notification.NewManager(&watchCfg, deps.Notifier, nil, loop.RealClock(), logger.Logger)
	case !cfg.Quiet:
		ntfy := notification.NewContextNotifier(notification.NewNtfyClient(cfg.NtfyServer, cfg.NtfyTopic), "")
		deps.Notifier = status.NewReporter(deps.StatusIndicator, ntfy)
		if cfg.RateLimit.MaxMessages > 0 && cfg.RateLimit.Window > 0 {
			deps.RateLimiter = notification.NewTokenBucketRateLimiter(cfg.RateLimit.MaxMessages, cfg.RateLimit.Window, loop.RealClock())
		}
		deps.NotificationManager = notification.NewManager(cfg, deps.Notifier, deps.RateLimiter, loop.RealClock(), logger.Logger)
	}

	if deps.Terminal != nil {
		indicator := deps.StatusIndicator
		deps.ProcessManager = process.NewManager(process.IOHooks{
			OnInput:       deps.Terminal.HandleInput,
			FilterInput:   deps.Terminal.FilterInput,
			OnOutput:      func([]byte) { indicator.MarkActivity() },
			FilterOutput:  deps.Terminal.FilterOutput,
			OnResize:      deps.Terminal.Resize,
			TerminalSetup: input.EnableFocusReporting(),
			TerminalReset: input.DisableFocusReporting(),
		}, logger.Logger)
	}

	return deps, nil
}

// targets returns the event sources the detector binds to.
func (d *Dependencies) targets() []interfaces.Target {
	var targets []interfaces.Target
	if d.Terminal != nil {
		targets = append(targets, d.Terminal)
	}
	if d.OSActivity != nil {
		targets = append(targets, d.OSActivity)
	}
	return targets
}

// Close cleans up all dependencies. It is safe to call more than once.
func (d *Dependencies) Close() {
	if d.stopChan != nil {
		close(d.stopChan)
		d.stopChan = nil
	}

	if d.StatusIndicator != nil {
		_ = d.StatusIndicator.Clear()
	}

	if d.OSActivity != nil {
		d.OSActivity.Stop()
	}

	if closer, ok := d.Page.(interface{ Close() }); ok {
		closer.Close()
	}

	if d.NotificationManager != nil {
		_ = d.NotificationManager.Close()
	}

	if d.Loop != nil {
		d.Loop.Close()
	}

	if d.Logger != nil {
		_ = d.Logger.Close()
		d.Logger = nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// transitions remembers when the current activity and focus states began.
// It is only touched from detector callbacks, which run on the loop.
type transitions struct {
	activitySince time.Time
	focusSince    time.Time
}

// mark records a transition at at and returns when the state it ends began.
func (t *transitions) mark(name string, at time.Time) (since time.Time) {
	switch name {
	case config.TransitionIdle, config.TransitionActive:
		since, t.activitySince = t.activitySince, at
	case config.TransitionHide, config.TransitionShow:
		since, t.focusSince = t.focusSince, at
	}
	return since
}

// Application represents the main application
type Application struct {
	deps     *Dependencies
	detector *idle.Selection
	tracker  transitions
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run attaches the detector and runs command until it exits. In watch mode
// there is no command and Run returns when ctx is cancelled.
func (a *Application) Run(ctx context.Context, command string, args []string) error {
	now := a.deps.Loop.Clock().Now()
	a.tracker = transitions{activitySince: now, focusSince: now}

	detector, err := a.deps.Host.Bind(a.deps.targets()...).Init(ctx, a.detectorConfig())
	if err != nil {
		return fmt.Errorf("failed to start idle detector: %w", err)
	}
	a.detector = detector
	defer func() { _, _ = detector.Destroy(context.Background()) }()

	if idleNow, ok, err := detector.Idle(ctx); err == nil && ok {
		a.deps.StatusIndicator.SetIdle(idleNow)
	}

	if a.deps.OSActivity != nil {
		a.deps.OSActivity.Start()
	}

	a.deps.Logger.Info("idle detector started",
		"targets", len(a.deps.targets()),
		"period", a.deps.Config.IdleCheckPeriod,
		"keep_tracking", a.deps.Config.KeepTracking)

	if a.deps.ProcessManager == nil {
		<-ctx.Done()
		return nil
	}

	if err := a.deps.ProcessManager.Start(command, args); err != nil {
		return err
	}
	return a.deps.ProcessManager.Wait()
}

// detectorConfig maps the loaded configuration onto detector options.
func (a *Application) detectorConfig() *idle.Config {
	cfg := a.deps.Config
	indicator := a.deps.StatusIndicator

	return &idle.Config{
		IdleCheckPeriod:         cfg.IdleCheckPeriod,
		TrackEvents:             cfg.TrackEvents,
		KeepTracking:            idle.Bool(cfg.KeepTracking),
		VisibilityCheckInterval: cfg.VisibilityCheckInterval,
		OnStatusChange: func(_ context.Context, idle bool) {
			indicator.SetIdle(idle)
		},
		OnIdle: func(context.Context) {
			a.transition(config.TransitionIdle)
		},
		OnActive: func(context.Context) {
			a.transition(config.TransitionActive)
		},
		OnHide: func(context.Context) {
			indicator.SetVisible(false)
			a.transition(config.TransitionHide)
		},
		OnShow: func(context.Context) {
			indicator.SetVisible(true)
			a.transition(config.TransitionShow)
		},
	}
}

// transition logs a detector transition and forwards it when configured.
func (a *Application) transition(name string) {
	now := a.deps.Loop.Clock().Now()
	since := a.tracker.mark(name, now)

	a.deps.Logger.Info("transition", "transition", name, "after", now.Sub(since))

	if a.deps.NotificationManager == nil {
		return
	}
	if !a.deps.Config.Watch && !a.deps.Config.Notifies(name) {
		return
	}
	if err := a.deps.NotificationManager.Send(notification.ForTransition(name, now, since)); err != nil {
		a.deps.Logger.Warn("failed to queue notification", "transition", name, "error", err)
	}
}

// Stop gracefully stops the application
func (a *Application) Stop() error {
	if a.deps.ProcessManager == nil {
		return nil
	}
	return a.deps.ProcessManager.Stop()
}

// ExitCode returns the exit code of the wrapped process
func (a *Application) ExitCode() int {
	if a.deps.ProcessManager == nil {
		return 0
	}
	return a.deps.ProcessManager.ExitCode()
}
