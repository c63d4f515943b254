package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

const defaultInterval = time.Hour

type jobRecorder interface {
	ObserveJob(job string, ok bool, duration time.Duration)
}

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Metrics  jobRecorder
	Interval time.Duration
}

// Service runs the registered jobs on a fixed cadence inside this process.
// Each instance refreshes its own state, so cycles are not coordinated
// across replicas.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	metrics  jobRecorder
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Registry == nil || params.Registry.Len() == 0:
		return nil, errors.New("at least one job required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		jobs:     params.Registry.Jobs(),
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run ticks until ctx is canceled. The first cycle waits one interval since
// callers load their state at startup.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logg.Info(s.logg.WithField(ctx, "interval", s.interval.String()), "cron.started")
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
			// Failures are logged per job; the next tick retries them.
			_ = s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every job in registration order. One job failing does not
// skip the rest; all failures come back combined.
func (s *Service) RunOnce(ctx context.Context) error {
	var errs error
	for _, job := range s.jobs {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		errs = multierr.Append(errs, s.runJob(ctx, job))
	}
	return errs
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(jobCtx)
	took := time.Since(started)

	if s.metrics != nil {
		s.metrics.ObserveJob(job.Name(), err == nil, took)
	}
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron.job_failed", err)
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	s.logg.Info(jobCtx, "cron.job_done")
	return nil
}
