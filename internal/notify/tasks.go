package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"cash-request-service/internal/logger"
)

// ErrRunnerClosed is returned by Shutdown when called twice.
var ErrRunnerClosed = errors.New("task runner closed")

// TaskRunner runs post-commit side effects in the background. Tasks get their
// own context derived from the runner, never from the request that spawned
// them, and are cancelled on shutdown.
type TaskRunner struct {
	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	log     *logger.Logger
}

// NewTaskRunner constructs a runner whose tasks time out after timeout.
func NewTaskRunner(timeout time.Duration, log *logger.Logger) *TaskRunner {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskRunner{ctx: ctx, cancel: cancel, timeout: timeout, log: log.Named("tasks")}
}

// Go schedules fn. Tasks submitted after shutdown are dropped.
func (r *TaskRunner) Go(name string, fn func(ctx context.Context)) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn("task dropped after shutdown", zap.String("task", name))
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("task panicked", zap.String("task", name), zap.Any("panic", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until every scheduled task has returned.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting tasks and waits for running ones until ctx is
// done, after which the remaining tasks are cancelled.
func (r *TaskRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRunnerClosed
	}
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
