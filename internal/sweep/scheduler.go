package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"duyurubot/internal/runtime/supervisor"
	"duyurubot/pkg/logx"
)

// SchedulerConfig controls the sweep trigger.
type SchedulerConfig struct {
	Interval     time.Duration // default 1h
	StartupDelay time.Duration // first sweep after this; default 10s
}

// Scheduler fires sweeps on a fixed interval, plus one early run shortly
// after startup. It never runs the job concurrently with itself (the
// Runner's in-flight guard enforces that even if a sweep outlasts the
// interval).
type Scheduler struct {
	cfg SchedulerConfig
	job func(ctx context.Context)
	log logx.Logger

	c   *cron.Cron
	sup *supervisor.Supervisor
}

func NewScheduler(cfg SchedulerConfig, job func(ctx context.Context), log logx.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.StartupDelay <= 0 {
		cfg.StartupDelay = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{cfg: cfg, job: job, log: log}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.c != nil {
		return nil
	}
	s.sup = supervisor.New(ctx, supervisor.WithLogger(s.log))
	runCtx := s.sup.Context()

	s.c = cron.New()
	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	if _, err := s.c.AddFunc(spec, func() {
		if runCtx.Err() != nil {
			return
		}
		s.job(runCtx)
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.c.Start()

	// First run after a short delay so the bot is reachable before the
	// first fan-out.
	s.sup.Go("sweep.first_run", func(c context.Context) {
		t := time.NewTimer(s.cfg.StartupDelay)
		defer t.Stop()
		select {
		case <-c.Done():
		case <-t.C:
			s.job(c)
		}
	})

	s.log.Info("sweep schedule registered",
		logx.Duration("interval", s.cfg.Interval),
		logx.Duration("first_run_in", s.cfg.StartupDelay),
	)
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) {
	if s.c == nil {
		return
	}
	s.sup.Cancel()
	// Stop() waits for an in-flight cron job to return.
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
	_ = s.sup.Wait(ctx)
	s.c = nil
	s.log.Info("scheduler stopped")
}
