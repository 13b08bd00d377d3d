package steps

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

const DefaultInactivityTimeout = 30 * time.Second

type TimerState int

const (
	TimerAbsent TimerState = iota
	TimerArmed
	TimerCancelling
)

func (s TimerState) String() string {
	switch s {
	case TimerArmed:
		return "armed"
	case TimerCancelling:
		return "cancelling"
	default:
		return "absent"
	}
}

// InactivityTimer is the countdown owned by one connection. After each
// expiry the fire func runs and, unless the timer was cancelled meanwhile,
// the countdown starts again. Arm, Cancel and Close are mutually exclusive and
// Cancel returns only once the countdown goroutine has exited, so at most one
// countdown exists at any time.
type InactivityTimer struct {
	log     *logger.Logger
	timeout time.Duration
	fire    func(ctx context.Context) error

	opMu sync.Mutex

	mu     sync.Mutex
	state  TimerState
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

func NewInactivityTimer(log *logger.Logger, timeout time.Duration, fire func(ctx context.Context) error) *InactivityTimer {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultInactivityTimeout
	}
	return &InactivityTimer{log: log, timeout: timeout, fire: fire}
}

func (t *InactivityTimer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Arm stops any pending countdown and starts a fresh one bound to ctx.
// Arming a closed timer does nothing.
func (t *InactivityTimer) Arm(ctx context.Context) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.stopLocked()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel, t.done, t.state = cancel, done, TimerArmed
	go t.loop(runCtx, done)
}

// Cancel stops the countdown and waits for it to exit. Cancelling a timer
// that is not armed is a no-op.
func (t *InactivityTimer) Cancel() {
	t.opMu.Lock()
	defer t.opMu.Unlock()
	t.stopLocked()
}

// Close cancels and refuses further arming.
func (t *InactivityTimer) Close() {
	t.opMu.Lock()
	defer t.opMu.Unlock()
	t.stopLocked()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *InactivityTimer) stopLocked() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	if cancel == nil {
		t.mu.Unlock()
		return
	}
	t.state = TimerCancelling
	t.mu.Unlock()

	cancel()
	<-done

	t.mu.Lock()
	t.cancel, t.done, t.state = nil, nil, TimerAbsent
	t.mu.Unlock()
}

func (t *InactivityTimer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(t.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		err := t.runFire(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			t.log.Warn("inactivity message failed; rearming", "error", err)
		}
		timer.Reset(t.timeout)
	}
}

func (t *InactivityTimer) runFire(ctx context.Context) (err error) {
	if t.fire == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("inactivity handler panicked", "panic", r)
		}
	}()
	return t.fire(ctx)
}
