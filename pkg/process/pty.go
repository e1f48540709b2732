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
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// drainTimeout bounds how long Wait lets buffered output reach the
// terminal after the program exits. Background children holding the PTY
// open would otherwise block it forever.
const drainTimeout = 200 * time.Millisecond

// PTYManager handles PTY-based process execution
type PTYManager struct {
	cmd         *exec.Cmd
	pty         *os.File
	mu          sync.Mutex
	stopChan    chan struct{}
	copyDone    chan struct{}
	wg          sync.WaitGroup
	restoreFunc func()
	onResize    func()
	logger      *slog.Logger
}

// Ensure PTYManager implements PTY
var _ PTY = (*PTYManager)(nil)

// NewPTYManager creates a new PTY manager
func NewPTYManager(logger *slog.Logger) *PTYManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &PTYManager{
		stopChan: make(chan struct{}),
		copyDone: make(chan struct{}),
		logger:   logger,
	}
}

// Start starts a process with PTY
func (p *PTYManager) Start(command string, args []string, env []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("process already started")
	}

	p.cmd = exec.Command(command, args...)
	p.cmd.Env = env

	var err error
	p.pty, err = pty.Start(p.cmd)
	if err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}

	// Not fatal: stdin is not always a terminal.
	if err := pty.InheritSize(os.Stdin, p.pty); err != nil {
		p.logger.Debug("failed to copy terminal size", "error", err)
	}

	p.wg.Add(1)
	go p.monitorTerminalSize()

	return nil
}

// GetPTY returns the PTY file descriptor
func (p *PTYManager) GetPTY() *os.File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pty
}

// Wait waits for the process to complete
func (p *PTYManager) Wait() error {
	if p.cmd == nil {
		return fmt.Errorf("process not started")
	}

	err := p.cmd.Wait()

	close(p.stopChan)
	p.wg.Wait()

	select {
	case <-p.copyDone:
	case <-time.After(drainTimeout):
	}

	p.mu.Lock()
	if p.pty != nil {
		_ = p.pty.Close()
	}
	p.mu.Unlock()

	return err
}

// ProcessState returns the process state
func (p *PTYManager) ProcessState() *os.ProcessState {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.ProcessState
}

// Process returns the underlying process
func (p *PTYManager) Process() *os.Process {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.Process
}

// Stop restores the terminal state. It is safe to call more than once.
func (p *PTYManager) Stop() error {
	p.mu.Lock()
	restore := p.restoreFunc
	p.restoreFunc = nil
	p.mu.Unlock()

	if restore != nil {
		restore()
	}
	return nil
}

// monitorTerminalSize monitors for terminal size changes
func (p *PTYManager) monitorTerminalSize() {
	defer p.wg.Done()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			p.mu.Lock()
			if p.pty != nil {
				if err := pty.InheritSize(os.Stdin, p.pty); err != nil {
					p.logger.Debug("failed to resize PTY", "error", err)
				}
			}
			onResize := p.onResize
			p.mu.Unlock()

			if onResize != nil {
				onResize()
			}
		case <-p.stopChan:
			return
		}
	}
}

// CopyIO puts stdin in raw mode when it is a terminal and copies between
// it, the PTY, and stdout until the program's output ends.
func (p *PTYManager) CopyIO(stdin io.Reader, stdout io.Writer, hooks IOHooks) error {
	p.mu.Lock()
	if p.pty == nil {
		p.mu.Unlock()
		return fmt.Errorf("PTY not initialized")
	}
	ptyFile := p.pty
	p.onResize = hooks.OnResize
	p.mu.Unlock()

	defer close(p.copyDone)

	if file, ok := stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fd := int(file.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			p.logger.Warn("failed to enter raw mode", "error", err)
		} else {
			p.mu.Lock()
			p.restoreFunc = func() {
				if len(hooks.TerminalReset) > 0 {
					_, _ = stdout.Write(hooks.TerminalReset)
				}
				_ = term.Restore(fd, state)
			}
			p.mu.Unlock()
			defer func() { _ = p.Stop() }()

			if len(hooks.TerminalSetup) > 0 {
				_, _ = stdout.Write(hooks.TerminalSetup)
			}
		}
	}

	// Stdin never reaches EOF in interactive use, so only the output side
	// decides when copying is over.
	go func() {
		if err := pump(ptyFile, stdin, hooks.OnInput, hooks.FilterInput); err != nil {
			p.logger.Debug("stdin copy ended", "error", err)
		}
	}()

	if err := pump(stdout, ptyFile, hooks.OnOutput, hooks.FilterOutput); err != nil {
		return fmt.Errorf("stdout copy error: %w", err)
	}
	return nil
}

// pump copies src to dst chunk by chunk, letting observe see each chunk and
// filter rewrite it. The end of a PTY (EIO once the program exits, or a
// closed file) counts as a clean end.
func pump(dst io.Writer, src io.Reader, observe func([]byte), filter func([]byte) []byte) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			data := buf[:n]
			if observe != nil {
				observe(data)
			}
			if filter != nil {
				data = filter(data)
			}
			if len(data) > 0 {
				if _, werr := dst.Write(data); werr != nil {
					return werr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}
