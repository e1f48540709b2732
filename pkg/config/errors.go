package config

import "errors"

var (
	// ErrMissingTopic is returned when notifications are on but no ntfy topic is set
	ErrMissingTopic = errors.New("ntfy_topic is required when not in quiet mode")

	// ErrInvalidIdleCheckPeriod is returned when the idle check period is not positive
	ErrInvalidIdleCheckPeriod = errors.New("idle_check_period must be positive")

	// ErrNegativeValue is returned for a negative interval, window or count
	ErrNegativeValue = errors.New("must be non-negative")

	// ErrUnknownPage is returned for a page mode other than auto, terminal, tmux or none
	ErrUnknownPage = errors.New("unknown page mode")

	// ErrUnknownTransition is returned for a notify_on entry that isn't a transition name
	ErrUnknownTransition = errors.New("unknown transition")

	// ErrInvalidBool is returned when a boolean environment variable can't be parsed
	ErrInvalidBool = errors.New("invalid boolean (use true/false)")
)
