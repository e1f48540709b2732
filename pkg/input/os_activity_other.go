//go:build !darwin && !windows

package input

import "time"

func osIdleTime() (time.Duration, error) {
	return 0, ErrOSIdleUnsupported
}
