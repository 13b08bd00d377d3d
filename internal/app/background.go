package app

import (
	"context"
	"sync"

	"github.com/yungbote/companion-backend/internal/modules/companion/steps"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

// backgroundRunner owns post-reply work (fact extraction, indexing) so it
// outlives the request that started it but not the process. Close blocks
// until every task returns.
type backgroundRunner struct {
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newBackgroundRunner(log *logger.Logger) *backgroundRunner {
	ctx, cancel := context.WithCancel(context.Background())
	return &backgroundRunner{log: log.With("component", "Background"), ctx: ctx, cancel: cancel}
}

func (b *backgroundRunner) Func() steps.Background {
	return b.run
}

func (b *backgroundRunner) run(name string, fn func(ctx context.Context)) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.log.Warn("Background task dropped after shutdown", "task", name)
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Error("Background task panic", "task", name, "panic", r)
			}
		}()
		fn(b.ctx)
	}()
}

// Close waits for running tasks, then cancels whatever is still blocked
// once ctx expires.
func (b *backgroundRunner) Close(ctx context.Context) {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.log.Warn("Background tasks still running at shutdown; cancelling")
		b.cancel()
		<-done
	}
	b.cancel()
}
