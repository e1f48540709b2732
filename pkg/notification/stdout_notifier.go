package notification

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// StdoutNotifier prints one line per notification, for scripts reading
// idlewatch's output in watch mode.
type StdoutNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdoutNotifier creates a notifier writing to w, or stdout when w is nil.
func NewStdoutNotifier(w io.Writer) *StdoutNotifier {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutNotifier{w: w}
}

// Send writes "<RFC3339 time> <transition> <message>".
func (n *StdoutNotifier) Send(notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintf(n.w, "%s %s %s\n",
		notification.Time.Format(time.RFC3339),
		notification.Transition,
		notification.Message)
	return err
}
