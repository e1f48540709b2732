// Package loop provides a single-goroutine cooperative task loop.
//
// Every detector handler runs as a task on the loop. Tasks run one at a
// time in the order they were posted, so a handler always finishes (and
// cancels whatever timer it replaces) before the next one starts. Timers,
// input sources and pages only ever post tasks; they never touch detector
// state directly.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when work is submitted to a closed loop.
var ErrClosed = errors.New("loop closed")

// CallbackError wraps a panic raised by a task, usually by a user callback.
type CallbackError struct {
	Value any
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *CallbackError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used by SetTimeout and SetInterval.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithPanicHandler sets the handler for panics raised by posted tasks.
// The default handler re-panics on the loop goroutine.
func WithPanicHandler(h func(*CallbackError)) Option {
	return func(l *Loop) {
		l.onPanic = h
	}
}

type ctxKey struct{}

// token marks a context as belonging to a running task.
type token struct {
	loop   *Loop
	active atomic.Bool
}

type task struct {
	fn     func(ctx context.Context)
	result chan error
	// claimed is set by whichever side gets the task first: the loop
	// running it or a caller giving up on it. Posted tasks leave it nil.
	claimed *atomic.Bool
}

// Loop runs posted tasks sequentially on a single goroutine.
type Loop struct {
	clock   Clock
	logger  *slog.Logger
	onPanic func(*CallbackError)

	mu      sync.Mutex
	queue   []task
	started bool
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	exited  chan struct{}
}

// New creates a loop. Call Start before posting work that must run.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock:  RealClock(),
		logger: slog.Default(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.onPanic == nil {
		l.onPanic = func(err *CallbackError) {
			panic(err.Value)
		}
	}
	return l
}

// Clock returns the loop's clock.
func (l *Loop) Clock() Clock {
	return l.clock
}

// Start launches the loop goroutine. Calling it twice is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started || l.closed {
		return
	}
	l.started = true
	go l.run()
}

// Close stops the loop after the running task, dropping queued tasks.
// Callers blocked in Call receive ErrClosed.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	started := l.started
	l.queue = nil
	close(l.done)
	l.mu.Unlock()

	if started {
		<-l.exited
	}
}

// Post queues fn to run on the loop. It never blocks.
func (l *Loop) Post(fn func(ctx context.Context)) error {
	return l.enqueue(task{fn: fn})
}

// Call runs fn on the loop and waits for it to finish.
//
// When ctx was handed out by this loop to the running task, fn runs inline
// instead, so callbacks may call back into code that uses Call without
// deadlocking. A panic in fn is returned as a *CallbackError when fn ran as
// a separate task; inline panics propagate to the running task.
//
// If ctx is done before fn starts, fn never runs and ctx.Err() is returned.
// Once fn has started, Call waits for it regardless of ctx.
func (l *Loop) Call(ctx context.Context, fn func(ctx context.Context)) error {
	if l.OnLoop(ctx) {
		fn(ctx)
		return nil
	}

	t := task{fn: fn, result: make(chan error, 1), claimed: new(atomic.Bool)}
	if err := l.enqueue(t); err != nil {
		return err
	}

	select {
	case err := <-t.result:
		return err
	case <-ctx.Done():
		if t.claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
	case <-l.done:
		if t.claimed.CompareAndSwap(false, true) {
			return ErrClosed
		}
	}

	select {
	case err := <-t.result:
		return err
	case <-l.exited:
		select {
		case err := <-t.result:
			return err
		default:
			return ErrClosed
		}
	}
}

// OnLoop reports whether ctx belongs to the task this loop is running.
func (l *Loop) OnLoop(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	tok, ok := ctx.Value(ctxKey{}).(*token)
	return ok && tok.loop == l && tok.active.Load()
}

func (l *Loop) enqueue(t task) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.queue = append(l.queue, t)

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (l *Loop) run() {
	defer close(l.exited)

	for {
		select {
		case <-l.wake:
		case <-l.done:
			return
		}

		for {
			l.mu.Lock()
			if l.closed || len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			t := l.queue[0]
			l.queue[0] = task{}
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.execute(t)
		}
	}
}

func (l *Loop) execute(t task) {
	if t.claimed != nil && !t.claimed.CompareAndSwap(false, true) {
		return
	}

	tok := &token{loop: l}
	tok.active.Store(true)
	ctx := context.WithValue(context.Background(), ctxKey{}, tok)

	err := l.protect(ctx, t.fn)
	tok.active.Store(false)

	if t.result != nil {
		t.result <- err
		return
	}
	if err != nil {
		var cbErr *CallbackError
		if errors.As(err, &cbErr) {
			l.logger.Error("task panicked", "error", cbErr)
			l.onPanic(cbErr)
		}
	}
}

func (l *Loop) protect(ctx context.Context, fn func(ctx context.Context)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{Value: r}
		}
	}()
	fn(ctx)
	return nil
}
