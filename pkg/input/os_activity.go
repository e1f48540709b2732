package input

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
)

// DefaultOSPollInterval is how often OS idle time is sampled.
const DefaultOSPollInterval = 5 * time.Second

// ErrOSIdleUnsupported is returned where the platform has no idle time source.
var ErrOSIdleUnsupported = errors.New("OS idle time unsupported on this platform")

// OSActivity is a target for input anywhere on the machine, not just in
// the wrapped terminal. It samples the system idle time and emits
// mousemove whenever input happened since the previous sample.
type OSActivity struct {
	*Bus

	interval time.Duration
	idleTime func() (time.Duration, error)
	logger   *slog.Logger

	mu       sync.Mutex
	ticker   *time.Ticker
	stopChan chan struct{}
	running  bool
	warned   bool
}

// NewOSActivity creates a stopped OS activity target.
func NewOSActivity(interval time.Duration, logger *slog.Logger) *OSActivity {
	if interval <= 0 {
		interval = DefaultOSPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OSActivity{
		Bus:      NewBus(),
		interval: interval,
		idleTime: osIdleTime,
		logger:   logger,
	}
}

// Ensure OSActivity implements Target
var _ interfaces.Target = (*OSActivity)(nil)

// Available reports whether the platform can report idle time.
func (o *OSActivity) Available() bool {
	_, err := o.idleTime()
	return err == nil
}

// Start begins sampling. Calling it twice is a no-op.
func (o *OSActivity) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return
	}
	o.running = true
	o.stopChan = make(chan struct{})
	o.ticker = time.NewTicker(o.interval)

	go o.pollLoop(o.ticker, o.stopChan)
}

// Stop stops sampling.
func (o *OSActivity) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return
	}
	o.running = false
	close(o.stopChan)
	o.ticker.Stop()
}

func (o *OSActivity) pollLoop(ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-ticker.C:
			o.sample()
		case <-stop:
			return
		}
	}
}

// sample emits mousemove if the OS saw input within the last interval.
func (o *OSActivity) sample() {
	idleFor, err := o.idleTime()
	if err != nil {
		o.mu.Lock()
		warned := o.warned
		o.warned = true
		o.mu.Unlock()
		if !warned {
			o.logger.Warn("OS idle time unavailable", "error", err)
		}
		return
	}

	if idleFor < o.interval {
		o.Emit("mousemove")
	}
}
