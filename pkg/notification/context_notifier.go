package notification

import (
	"os"
	"path/filepath"
)

// ContextNotifier wraps another notifier and names the session in the
// title, so notifications from several terminals can be told apart.
type ContextNotifier struct {
	underlying Notifier
	context    string
}

// NewContextNotifier creates a context notifier. label overrides the
// default of "<host>:<cwd basename>".
func NewContextNotifier(underlying Notifier, label string) *ContextNotifier {
	if label == "" {
		label = sessionLabel()
	}
	return &ContextNotifier{
		underlying: underlying,
		context:    label,
	}
}

func sessionLabel() string {
	var host, dir string
	if h, err := os.Hostname(); err == nil {
		host = h
	}
	if cwd, err := os.Getwd(); err == nil {
		dir = filepath.Base(cwd)
	}

	switch {
	case host != "" && dir != "":
		return host + ":" + dir
	case host != "":
		return host
	default:
		return dir
	}
}

// Send implements the Notifier interface
func (cn *ContextNotifier) Send(notification Notification) error {
	if cn.context != "" {
		notification.Title = notification.Title + " (" + cn.context + ")"
	}
	return cn.underlying.Send(notification)
}
