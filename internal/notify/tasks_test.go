package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskRunnerRunsAndWaits(t *testing.T) {
	r := NewTaskRunner(time.Second, nil)
	var n int32
	for i := 0; i < 10; i++ {
		r.Go("inc", func(context.Context) { atomic.AddInt32(&n, 1) })
	}
	r.Wait()
	assert.EqualValues(t, 10, atomic.LoadInt32(&n))
}

func TestTaskRunnerRecoversPanics(t *testing.T) {
	r := NewTaskRunner(time.Second, nil)
	r.Go("boom", func(context.Context) { panic("boom") })
	r.Wait()
}

func TestTaskRunnerShutdownCancelsSlowTasks(t *testing.T) {
	r := NewTaskRunner(time.Minute, nil)
	cancelled := make(chan struct{})
	r.Go("slow", func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.Shutdown(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	<-cancelled

	var ran int32
	r.Go("late", func(context.Context) { atomic.StoreInt32(&ran, 1) })
	r.Wait()
	assert.EqualValues(t, 0, atomic.LoadInt32(&ran))
	assert.ErrorIs(t, r.Shutdown(context.Background()), ErrRunnerClosed)
}
