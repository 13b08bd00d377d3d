package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"

	"github.com/yungbote/companion-backend/internal/modules/companion"
	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

const DefaultSweepSpec = "@every 1m"

// ErrSweepRunning is returned by RunOnce when the previous sweep is still going.
var ErrSweepRunning = errors.New("proactive sweep already running")

type SweepFunc func(ctx context.Context) (companion.SweepReport, error)

// Sweeper runs the proactive sweep on a cron schedule. Ticks that land while a
// sweep is still running are skipped rather than queued.
type Sweeper struct {
	log     *logger.Logger
	cron    *cron.Cron
	spec    string
	sweep   SweepFunc
	metrics *observability.Metrics

	running atomic.Bool
	wg      sync.WaitGroup
}

func NewSweeper(log *logger.Logger, loc *time.Location, spec string, sweep SweepFunc, metrics *observability.Metrics) (*Sweeper, error) {
	if sweep == nil {
		return nil, fmt.Errorf("sweep func required")
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSweepSpec
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Sweeper{
		log:     log.With("component", "ProactiveSweeper"),
		cron:    cron.NewWithLocation(loc),
		spec:    spec,
		sweep:   sweep,
		metrics: metrics,
	}, nil
}

// Start schedules the sweep and stops the scheduler when ctx ends. Wait
// blocks until the last in-flight sweep returns.
func (s *Sweeper) Start(ctx context.Context) error {
	if err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Info("Proactive sweeper started", "spec", s.spec)
	go func() {
		<-ctx.Done()
		s.cron.Stop()
		s.log.Info("Proactive sweeper stopped")
	}()
	return nil
}

func (s *Sweeper) Wait() { s.wg.Wait() }

func (s *Sweeper) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrSweepRunning) {
			s.log.Debug("Skipping sweep tick; previous run still active")
			return
		}
		s.log.Warn("Proactive sweep failed", "error", err)
	}
}

// RunOnce performs one sweep unless another is in flight.
func (s *Sweeper) RunOnce(ctx context.Context) (rep companion.SweepReport, err error) {
	if !s.running.CompareAndSwap(false, true) {
		return rep, ErrSweepRunning
	}
	s.wg.Add(1)
	defer func() {
		s.running.Store(false)
		s.wg.Done()
	}()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Proactive sweep panic", "panic", r)
			err = fmt.Errorf("sweep panic: %v", r)
		}
		s.metrics.ObserveSweep(map[string]int{
			"sent":       rep.Sent,
			"pending":    rep.Pending,
			"no_trigger": rep.NoTrigger,
			"failed":     rep.Failed,
		}, time.Since(start))
	}()

	rep, err = s.sweep(ctx)
	if err != nil {
		return rep, err
	}
	s.log.Info("Proactive sweep finished",
		"users", rep.Users,
		"sent", rep.Sent,
		"pending", rep.Pending,
		"no_trigger", rep.NoTrigger,
		"failed", rep.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rep, nil
}
