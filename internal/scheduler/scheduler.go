package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/address-forecast/internal/weather"
)

const jobTimeout = 30 * time.Second

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Fetcher is satisfied by *weather.Service.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (weather.Result, error)
}

// Config describes which background jobs run. A zero interval or a nil
// dependency disables the corresponding job.
type Config struct {
	SweepInterval time.Duration
	Sweeper       Sweeper

	WarmInterval  time.Duration
	WarmAddresses []string
	Fetcher       Fetcher
}

// Scheduler runs cache maintenance in the background: expired-entry sweeps
// and periodic refreshes of frequently requested addresses.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cfg       Config
	log       *slog.Logger
}

// New creates a new Scheduler.
func New(cfg Config) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		cfg:       cfg,
		log:       slog.Default().With("service", "scheduler"),
	}
}

// Start schedules the configured jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	jobs := 0

	if s.cfg.Sweeper != nil && s.cfg.SweepInterval > 0 {
		if _, err := s.scheduler.Every(s.cfg.SweepInterval).WaitForSchedule().Do(s.runSweep); err != nil {
			return err
		}
		jobs++
	}

	if s.cfg.Fetcher != nil && s.cfg.WarmInterval > 0 && len(s.cfg.WarmAddresses) > 0 {
		if _, err := s.scheduler.Every(s.cfg.WarmInterval).Do(s.runWarm); err != nil {
			return err
		}
		jobs++
	}

	if jobs == 0 {
		s.log.Info("no jobs configured; nothing to schedule", "event", "scheduler_idle")
		return nil
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	s.Sweep(ctx)
}

func (s *Scheduler) runWarm() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	s.Warm(ctx)
}

// Sweep runs one expired-entry sweep and returns the number removed.
func (s *Scheduler) Sweep(ctx context.Context) int {
	removed, err := s.cfg.Sweeper.Sweep(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "cache sweep failed", "event", "cache_sweep_failed", "detail", err.Error())
		return 0
	}
	s.log.DebugContext(ctx, "cache sweep completed", "event", "cache_sweep", "removed", removed)
	return removed
}

// Warm fetches every warm address concurrently. Failures are logged and
// otherwise ignored; a failed fetch leaves no cache entry behind.
func (s *Scheduler) Warm(ctx context.Context) {
	s.log.InfoContext(ctx, "running warm job", "event", "warm_start", "addresses", len(s.cfg.WarmAddresses))

	var wg sync.WaitGroup
	for _, address := range s.cfg.WarmAddresses {
		address := address
		wg.Add(1)
		go func() {
			defer wg.Done()

			result, err := s.cfg.Fetcher.Fetch(ctx, address)
			if err != nil {
				var fe *weather.Error
				code := "unknown"
				if errors.As(err, &fe) {
					code = string(fe.Code)
				}
				s.log.WarnContext(ctx, "warm fetch failed", "event", "warm_failed", "address", address, "code", code, "detail", err.Error())
				return
			}
			s.log.DebugContext(ctx, "warm fetch completed", "event", "warm_done", "address", address, "from_cache", result.FromCache)
		}()
	}
	wg.Wait()
	s.log.InfoContext(ctx, "completed warm job", "event", "warm_complete")
}
