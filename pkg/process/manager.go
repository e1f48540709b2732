package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
)

// WrappedEnv is set in the wrapped program's environment so a nested
// invocation can refuse to wrap itself again.
const WrappedEnv = "IDLEWATCH_WRAPPED"

// Manager manages the wrapped process
type Manager struct {
	ptyManager PTY
	hooks      IOHooks
	logger     *slog.Logger
	stdin      io.Reader
	stdout     io.Writer
	exitCode   int
	mu         sync.Mutex
	sigChan    chan os.Signal
	done       chan struct{}
	ioDone     chan struct{}
}

// Ensure Manager implements ProcessWrapper
var _ interfaces.ProcessWrapper = (*Manager)(nil)

// NewManager creates a new process manager wired to the process's own
// standard streams.
func NewManager(hooks IOHooks, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		ptyManager: NewPTYManager(logger),
		hooks:      hooks,
		logger:     logger,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		done:       make(chan struct{}),
	}
}

// Start starts the wrapped process
func (m *Manager) Start(command string, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if os.Getenv(WrappedEnv) == "1" {
		return fmt.Errorf("already wrapped by idlewatch")
	}

	env := append(os.Environ(), WrappedEnv+"=1")

	if err := m.ptyManager.Start(command, args, env); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	m.ioDone = make(chan struct{})
	go func() {
		defer close(m.ioDone)
		if err := m.ptyManager.CopyIO(m.stdin, m.stdout, m.hooks); err != nil {
			m.logger.Error("I/O error", "error", err)
		}
	}()

	m.setupSignalForwarding()

	return nil
}

// Wait waits for the process to exit. A non-zero exit is not an error; it
// is reported through ExitCode.
func (m *Manager) Wait() error {
	if m.ptyManager == nil {
		return fmt.Errorf("process not started")
	}

	err := m.ptyManager.Wait()

	m.mu.Lock()
	m.exitCode = exitCodeOf(m.ptyManager.ProcessState(), m.exitCode)
	ioDone := m.ioDone
	m.mu.Unlock()

	if ioDone != nil {
		<-ioDone
	}
	_ = m.ptyManager.Stop()

	close(m.done)
	m.cleanupSignals()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// exitCodeOf maps a process state to a shell-style exit code: the status
// for a normal exit, 128+signal when killed by a signal.
func exitCodeOf(state *os.ProcessState, fallback int) int {
	if state == nil {
		return fallback
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return state.ExitCode()
}

// ExitCode returns the exit code of the process
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

// setupSignalForwarding sets up signal forwarding to the child process.
// SIGWINCH is not forwarded: resizing the PTY delivers it.
func (m *Manager) setupSignalForwarding() {
	m.sigChan = make(chan os.Signal, 1)
	signal.Notify(m.sigChan,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGQUIT,
		syscall.SIGUSR1,
		syscall.SIGUSR2,
	)

	go m.forwardSignals(m.sigChan)
}

// forwardSignals forwards signals to the child process
func (m *Manager) forwardSignals(sigChan <-chan os.Signal) {
	for {
		select {
		case sig, ok := <-sigChan:
			if !ok {
				return
			}
			if proc := m.ptyManager.Process(); proc != nil {
				if err := proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
					m.logger.Warn("signal forward error", "signal", sig, "error", err)
				}
			}
		case <-m.done:
			return
		}
	}
}

// cleanupSignals stops signal forwarding
func (m *Manager) cleanupSignals() {
	if m.sigChan != nil {
		signal.Stop(m.sigChan)
	}
}

// Stop restores the terminal and asks the process to terminate
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ptyManager == nil {
		return nil
	}

	_ = m.ptyManager.Stop()

	if proc := m.ptyManager.Process(); proc != nil {
		if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return proc.Kill()
		}
	}

	return nil
}
