// Package notification delivers idle/active transitions to the user's
// phone or another process.
package notification

import (
	"fmt"
	"time"
)

// Notification represents a notification to be sent.
type Notification struct {
	Title   string
	Message string
	Time    time.Time
	// Transition is the detector edge that caused it: idle, active, hide,
	// show, or batch for a combined notification.
	Transition string
}

// Notifier sends notifications.
type Notifier interface {
	Send(notification Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification) error

// Send implements Notifier
func (f NotifierFunc) Send(n Notification) error {
	return f(n)
}

// ForTransition builds the notification for a detector transition. since
// is when the previous state began; a zero since leaves the duration out.
func ForTransition(transition string, at, since time.Time) Notification {
	n := Notification{
		Title:      "idlewatch: " + transition,
		Time:       at,
		Transition: transition,
	}

	var state string
	switch transition {
	case "idle":
		n.Message = "No input"
		state = "active"
	case "active":
		n.Message = "Input resumed"
		state = "idle"
	case "hide":
		n.Message = "Terminal lost focus"
		state = "focused"
	case "show":
		n.Message = "Terminal regained focus"
		state = "unfocused"
	default:
		n.Message = transition
	}

	if !since.IsZero() && state != "" {
		n.Message += fmt.Sprintf(" after %s %s", formatDuration(at.Sub(since)), state)
	}
	return n
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return d.Round(time.Second).String()
	default:
		return d.Round(time.Minute).String()
	}
}
