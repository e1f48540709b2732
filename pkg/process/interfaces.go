package process

import (
	"io"
	"os"
)

// PTY defines the interface for PTY operations
type PTY interface {
	Start(command string, args []string, env []string) error
	Wait() error
	Stop() error
	ProcessState() *os.ProcessState
	Process() *os.Process
	GetPTY() *os.File
	CopyIO(stdin io.Reader, stdout io.Writer, hooks IOHooks) error
}

// IOHooks observe and rewrite the bytes flowing between the user's terminal
// and the wrapped program. Any field may be nil.
type IOHooks struct {
	// OnInput sees every chunk typed by the user, before filtering.
	OnInput func([]byte)
	// FilterInput rewrites input before it reaches the program.
	FilterInput func([]byte) []byte
	// OnOutput sees every chunk the program writes, before filtering.
	OnOutput func([]byte)
	// FilterOutput rewrites output before it reaches the terminal.
	FilterOutput func([]byte) []byte
	// OnResize runs after the PTY has taken the terminal's new size.
	OnResize func()

	// TerminalSetup is written to the terminal once it is in raw mode and
	// TerminalReset just before raw mode is left.
	TerminalSetup []byte
	TerminalReset []byte
}
