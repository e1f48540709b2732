//go:build darwin || windows

package input

import (
	"time"

	"github.com/lextoumbourou/idle"
)

func osIdleTime() (time.Duration, error) {
	return idle.Get()
}
