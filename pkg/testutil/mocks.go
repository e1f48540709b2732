package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/idlewatch/pkg/interfaces"
	"github.com/Veraticus/idlewatch/pkg/notification"
)

// MockNotifier is a thread-safe mock implementation of notification.Notifier for testing
type MockNotifier struct {
	mu            sync.Mutex
	notifications []notification.Notification
	attempts      []notification.Notification // Track all send attempts
	sendErr       error
	sent          chan struct{}
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		sent: make(chan struct{}, 1024),
	}
}

// Ensure MockNotifier implements Notifier
var _ notification.Notifier = (*MockNotifier)(nil)

// Send implements the Notifier interface
func (m *MockNotifier) Send(n notification.Notification) error {
	m.mu.Lock()
	m.attempts = append(m.attempts, n)
	err := m.sendErr
	if err == nil {
		m.notifications = append(m.notifications, n)
	}
	m.mu.Unlock()

	select {
	case m.sent <- struct{}{}:
	default:
	}
	return err
}

// GetNotifications returns a copy of successfully sent notifications
func (m *MockNotifier) GetNotifications() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.notifications))
	copy(result, m.notifications)
	return result
}

// GetAttempts returns a copy of all attempted sends (including failures)
func (m *MockNotifier) GetAttempts() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.attempts))
	copy(result, m.attempts)
	return result
}

// Transitions returns the transition of every attempted send, in order.
func (m *MockNotifier) Transitions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]string, 0, len(m.attempts))
	for _, n := range m.attempts {
		result = append(result, n.Transition)
	}
	return result
}

// SetError sets the error to return on Send calls
func (m *MockNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// WaitForAttempts blocks until n sends have been attempted in total.
func (m *MockNotifier) WaitForAttempts(t *testing.T, n int) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		m.mu.Lock()
		got := len(m.attempts)
		m.mu.Unlock()
		if got >= n {
			return
		}

		select {
		case <-m.sent:
		case <-deadline:
			t.Fatalf("timed out waiting for %d notifications, got %d", n, got)
		}
	}
}

// MockRateLimiter is a mock implementation of interfaces.RateLimiter for testing
type MockRateLimiter struct {
	mu          sync.Mutex
	allowResult bool
	allowCount  int
	resetCount  int
}

// NewMockRateLimiter creates a new mock rate limiter
func NewMockRateLimiter(allowResult bool) *MockRateLimiter {
	return &MockRateLimiter{
		allowResult: allowResult,
	}
}

// Ensure MockRateLimiter implements RateLimiter
var _ interfaces.RateLimiter = (*MockRateLimiter)(nil)

// Allow implements the RateLimiter interface
func (m *MockRateLimiter) Allow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowCount++
	return m.allowResult
}

// Reset implements the RateLimiter interface
func (m *MockRateLimiter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCount++
}

// SetAllowResult sets the result that Allow() will return
func (m *MockRateLimiter) SetAllowResult(allow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowResult = allow
}

// GetAllowCount returns how many times Allow was called
func (m *MockRateLimiter) GetAllowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowCount
}

// GetResetCount returns how many times Reset was called
func (m *MockRateLimiter) GetResetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCount
}

// CountingRateLimiter is a rate limiter that allows first N calls
type CountingRateLimiter struct {
	mu           sync.Mutex
	maxAllowed   int
	currentCount int
}

// NewCountingRateLimiter creates a new counting rate limiter
func NewCountingRateLimiter(maxAllowed int) *CountingRateLimiter {
	return &CountingRateLimiter{
		maxAllowed: maxAllowed,
	}
}

// Allow implements the RateLimiter interface
func (c *CountingRateLimiter) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentCount++
	return c.currentCount <= c.maxAllowed
}

// Reset implements the RateLimiter interface
func (c *CountingRateLimiter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentCount = 0
}
