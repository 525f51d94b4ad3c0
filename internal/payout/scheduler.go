package payout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSchedule = "@every 1m"

// Scheduler runs the sweep on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	engine   *Engine
	cron     *cron.Cron
	schedule string
	timeout  time.Duration

	mu  sync.Mutex
	ctx context.Context
}

func NewScheduler(engine *Engine, schedule string, timeout time.Duration) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	logger := cronLogger{log: zap.L().Named("cron")}
	s := &Scheduler{
		engine:   engine,
		schedule: schedule,
		timeout:  timeout,
		ctx:      context.Background(),
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid payout schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins scheduling; ticks run under ctx
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	zap.L().Info("Payout scheduler started", zap.String("schedule", s.schedule))
}

// Stop halts scheduling and waits for a running sweep, up to ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		zap.L().Info("Payout scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("payout scheduler did not stop: %w", ctx.Err())
	}
}

// Trigger runs a sweep out of band for operational recovery
func (s *Scheduler) Trigger(ctx context.Context) (int, error) {
	zap.L().Info("Manual payout sweep triggered")
	return s.engine.Sweep(ctx)
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.engine.Sweep(ctx); err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			zap.L().Warn("Payout sweep skipped, previous run still in progress")
			return
		}
		zap.L().Error("Scheduled payout sweep failed", zap.Error(err))
	}
}

// cronLogger routes cron's logr-style calls to zap
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
