package idle

import "errors"

var (
	// ErrInvalidMethod is returned by Invoke for an unknown method name.
	ErrInvalidMethod = errors.New("invalid method")

	// ErrInvalidArgument is returned by Invoke when a method gets an argument it can't use.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoTargets is returned when a selection with no targets is initialized.
	ErrNoTargets = errors.New("no targets to attach to")
)
