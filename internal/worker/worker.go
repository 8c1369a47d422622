// Package worker runs one completion request at a time off the caller's
// thread and reports exactly one outcome per request, unless the request is
// stopped first.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hpn/vocab-master/internal/completion"
	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/domain"
)

// Outcome is the result of a request: Success, RateLimited or Failed.
type Outcome interface {
	outcome()
}

// Success carries the provider text.
type Success struct {
	Text string
}

// RateLimited tells the caller to wait before trying again.
type RateLimited struct {
	Message     string
	WaitSeconds int
}

// Failed carries a message ready to show to a user.
type Failed struct {
	Message string
	Err     error
}

func (Success) outcome()     {}
func (RateLimited) outcome() {}
func (Failed) outcome()      {}

// Emitter receives the outcome of a started task.
type Emitter func(Outcome)

// Worker loads a fresh configuration snapshot for every request and keeps at
// most one task in flight.
type Worker struct {
	configPath string
	logger     *slog.Logger
	clientOpts []completion.Option

	mu      sync.Mutex
	current *Task
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger for task events. It is also handed to every
// completion client the worker builds.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClientOptions passes options to every completion client the worker builds.
func WithClientOptions(opts ...completion.Option) Option {
	return func(w *Worker) {
		w.clientOpts = append(w.clientOpts, opts...)
	}
}

// New creates a Worker reading its configuration from configPath.
func New(configPath string, opts ...Option) *Worker {
	w := &Worker{
		configPath: configPath,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ConfigPath returns the configuration file the worker reads.
func (w *Worker) ConfigPath() string {
	return w.configPath
}

// Task is a started request.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	// settled flips exactly once, either by Stop or by delivery.
	settled atomic.Bool
}

// Stop cancels the task. If the outcome has not been delivered yet it never
// will be. Stop is safe to call more than once and from the emitter.
func (t *Task) Stop() {
	t.settled.Store(true)
	t.cancel()
}

// Wait blocks until the task's goroutine has exited.
func (t *Task) Wait() {
	<-t.done
}

// Done is closed when the task's goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) deliver(emit Emitter, o Outcome) bool {
	if !t.settled.CompareAndSwap(false, true) {
		return false
	}
	if emit != nil {
		emit(o)
	}
	return true
}

// Start runs the request in a new goroutine and passes its outcome to emit.
// A task already in flight is stopped first.
func (w *Worker) Start(ctx context.Context, tag string, params map[string]any, emit Emitter) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	w.mu.Lock()
	if prev := w.current; prev != nil {
		prev.Stop()
		w.logger.Debug("stopped previous task before starting a new one", "action", tag)
	}
	w.current = t
	w.mu.Unlock()

	go func() {
		defer close(t.done)
		defer cancel()

		o := w.Execute(taskCtx, tag, params)
		if !t.deliver(emit, o) {
			w.logger.Debug("task stopped, outcome discarded", "action", tag)
		}

		w.mu.Lock()
		if w.current == t {
			w.current = nil
		}
		w.mu.Unlock()
	}()
	return t
}

// Stop stops the task in flight, if any.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil {
		w.current.Stop()
		w.current = nil
	}
}

// Execute runs the request on the calling goroutine. The configuration is
// read from disk at the start so a concurrent save never affects a request
// already running.
func (w *Worker) Execute(ctx context.Context, tag string, params map[string]any) Outcome {
	cfg, err := config.NewStore(w.configPath, config.WithLogger(w.logger)).Read()
	if err != nil {
		return w.classify(tag, err)
	}

	opts := append([]completion.Option{completion.WithLogger(w.logger)}, w.clientOpts...)
	client, err := completion.New(cfg, opts...)
	if err != nil {
		return w.classify(tag, err)
	}

	text, err := client.Dispatch(ctx, tag, params)
	if err != nil {
		return w.classify(tag, err)
	}
	return Success{Text: text}
}

// Classify maps an error onto the outcome a user should see.
func Classify(err error) Outcome {
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		return RateLimited{Message: rl.Error(), WaitSeconds: rl.WaitSeconds()}
	}
	if domain.IsAPIError(err) {
		return Failed{Message: "API Error: " + err.Error(), Err: err}
	}
	return Failed{Message: "Error: " + err.Error(), Err: err}
}

func (w *Worker) classify(tag string, err error) Outcome {
	o := Classify(err)
	if errors.Is(err, context.Canceled) {
		w.logger.Debug("request cancelled", "action", tag)
	} else if _, limited := o.(RateLimited); !limited {
		w.logger.Error("request failed", "action", tag, "error", err)
	}
	return o
}
