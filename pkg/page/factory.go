package page

import (
	"fmt"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
)

// Page modes accepted by New.
const (
	ModeAuto     = "auto"
	ModeTerminal = "terminal"
	ModeTmux     = "tmux"
	ModeNone     = "none"
)

// New creates the page for mode. Auto picks tmux when running inside a
// reachable tmux server and terminal focus reporting otherwise. ModeNone
// returns a nil page, which the detector treats as never focused.
func New(mode string, target interfaces.Target) (interfaces.Page, error) {
	switch mode {
	case ModeAuto, "":
		if tmux := NewTmuxPage(""); tmux.IsAvailable() {
			return tmux, nil
		}
		return NewTerminalPage(target), nil
	case ModeTerminal:
		return NewTerminalPage(target), nil
	case ModeTmux:
		return NewTmuxPage(""), nil
	case ModeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown page mode %q", mode)
	}
}
