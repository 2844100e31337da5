package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"
)

const (
	sweepConcurrency = 4
	sweepTimeout     = 2 * time.Minute
)

// SweepReport summarizes one scheduler pass.
type SweepReport struct {
	Generated int
	Advanced  int
	Failed    int
}

// Scheduler periodically generates stages for tournaments whose registration has
// closed and advances ladders whose current round finished without triggering
// advancement.
type Scheduler struct {
	scheduler gocron.Scheduler
	store     *repositories.Store
	stages    StageService
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewScheduler(store *repositories.Store, stages StageService, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %v", interval)
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: sched,
		store:     store,
		stages:    stages,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// Start registers the sweep job and starts the scheduler. The first pass runs immediately.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			defer cancel()
			s.RunOnce(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to register sweep job: %w", err)
	}
	s.scheduler.Start()
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

// RunOnce performs a single pass: stage generation first, then the ladder sweep.
func (s *Scheduler) RunOnce(ctx context.Context) SweepReport {
	var report SweepReport
	var generated, advanced, failed atomic.Int64

	due, err := s.store.Tournaments.ListDueForGeneration(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to list tournaments due for generation", slog.Any("error", err))
		report.Failed++
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, t := range due {
		g.Go(func() error {
			_, err := s.stages.GenerateStage(gctx, t.ID, GenerateOptions{})
			switch {
			case err == nil:
				generated.Add(1)
			case errors.Is(err, ErrStageAlreadyGenerated):
				// Generated by a concurrent request.
			default:
				failed.Add(1)
				s.logger.Error("scheduled stage generation failed", slog.Int("tournament_id", t.ID), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	ladders, err := s.store.Tournaments.ListOpenLadders(ctx)
	if err != nil {
		s.logger.Error("failed to list open ladders", slog.Any("error", err))
		report.Failed++
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, t := range ladders {
		g.Go(func() error {
			adv, err := s.stages.AdvanceLadder(gctx, t.ID)
			if err != nil {
				failed.Add(1)
				s.logger.Error("ladder sweep failed", slog.Int("tournament_id", t.ID), slog.Any("error", err))
				return nil
			}
			if adv != nil {
				advanced.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Generated = int(generated.Load())
	report.Advanced = int(advanced.Load())
	report.Failed += int(failed.Load())
	if report.Generated > 0 || report.Advanced > 0 || report.Failed > 0 {
		s.logger.Info("scheduler pass finished",
			slog.Int("generated", report.Generated),
			slog.Int("advanced", report.Advanced),
			slog.Int("failed", report.Failed))
	}
	return report
}
