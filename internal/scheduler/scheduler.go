// Package scheduler runs a single recurring job on top of gocron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// JobFunc is the function signature for scheduled jobs
type JobFunc func(ctx context.Context) error

// Scheduler wraps gocron v2 with one job, run either every Interval or on
// clock-aligned boundaries.
type Scheduler struct {
	gocronScheduler gocron.Scheduler
	job             gocron.Job
	name            string
	interval        time.Duration
	alignToClock    bool
	timezone        *time.Location
	logger          *slog.Logger
}

// Config holds scheduler configuration
type Config struct {
	Name           string         // Job name used in logs
	Interval       time.Duration  // Time between runs
	AlignToClock   bool           // Run on wall-clock boundaries (e.g. :00, :30) instead of every Interval from start
	Timezone       *time.Location // Timezone for aligned schedules (default: UTC)
	RunImmediately bool           // Execute once as soon as the scheduler starts
	Logger         *slog.Logger
}

var (
	// ErrInvalidInterval is returned for zero or negative intervals
	ErrInvalidInterval = errors.New("interval must be positive")

	// validMinuteIntervals are minute intervals that divide evenly into 60
	validMinuteIntervals = map[int]bool{
		1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 10: true, 12: true,
		15: true, 20: true, 30: true,
	}

	// validHourIntervals are hour intervals that divide evenly into 24
	validHourIntervals = map[int]bool{
		1: true, 2: true, 3: true, 4: true, 6: true, 8: true, 12: true, 24: true,
	}

	// validSecondIntervals are second intervals that divide evenly into 60
	validSecondIntervals = validMinuteIntervals
)

// NewScheduler creates a scheduler for jobFunc. The job is not run until Start.
func NewScheduler(ctx context.Context, cfg Config, jobFunc JobFunc) (*Scheduler, error) {
	if err := ValidateInterval(cfg.Interval, cfg.AlignToClock); err != nil {
		return nil, err
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "job"
	}

	s := &Scheduler{
		name:         cfg.Name,
		interval:     cfg.Interval,
		alignToClock: cfg.AlignToClock,
		timezone:     cfg.Timezone,
		logger:       cfg.Logger.With("job", cfg.Name),
	}

	gocronScheduler, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Timezone),
		gocron.WithLogger(newGocronLoggerAdapter(cfg.Logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.gocronScheduler = gocronScheduler

	var definition gocron.JobDefinition
	if cfg.AlignToClock {
		cronExpr, err := durationToCron(cfg.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
		s.logger.Info("Converting duration to cron", "duration", cfg.Interval, "cron", cronExpr, "timezone", cfg.Timezone.String())
		definition = gocron.CronJob(cronExpr, strings.Count(cronExpr, " ") == 5)
	} else {
		definition = gocron.DurationJob(cfg.Interval)
	}

	opts := []gocron.JobOption{
		gocron.WithName(cfg.Name),
		// A slow run delays the next one instead of overlapping it
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if cfg.RunImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := gocronScheduler.NewJob(
		definition,
		gocron.NewTask(func() {
			if err := jobFunc(ctx); err != nil {
				s.logger.Error("Job execution failed", "error", err)
			}
		}),
		opts...,
	)
	if err != nil {
		_ = gocronScheduler.Shutdown()
		return nil, fmt.Errorf("failed to create scheduled job: %w", err)
	}
	s.job = job

	return s, nil
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	s.gocronScheduler.Start()

	nextRun, err := s.NextRun()
	if err == nil {
		s.logger.Info("Scheduler started", "schedule", s.Describe(), "next_run", nextRun.Format(time.RFC3339))
	} else {
		s.logger.Info("Scheduler started", "schedule", s.Describe())
	}
}

// Stop waits for a running job to finish and stops the scheduler
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.gocronScheduler.Shutdown()
}

// NextRun returns the next scheduled run time
func (s *Scheduler) NextRun() (time.Time, error) {
	nextRun, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return nextRun, nil
}

// LastRun returns the last run time
func (s *Scheduler) LastRun() (time.Time, error) {
	lastRun, err := s.job.LastRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}
	return lastRun, nil
}

// Interval returns the configured time between runs.
// The health checker derives its staleness threshold from it.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Describe returns a human-readable description of the schedule
func (s *Scheduler) Describe() string {
	return DescribeSchedule(s.interval, s.alignToClock, s.timezone)
}

// ValidateInterval checks that interval can be scheduled. Clock-aligned
// intervals must divide evenly into a minute, an hour, or a day.
func ValidateInterval(interval time.Duration, alignToClock bool) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	if !alignToClock {
		return nil
	}
	_, err := durationToCron(interval)
	return err
}

// durationToCron converts a duration to a clock-aligned cron expression
// Examples:
//
//	5m  -> "*/5 * * * *"
//	1h  -> "0 */1 * * *"
//	30s -> "*/30 * * * * *"
func durationToCron(duration time.Duration) (string, error) {
	switch {
	case duration <= 0:
		return "", ErrInvalidInterval

	case duration < time.Minute:
		if duration%time.Second != 0 {
			return "", fmt.Errorf("duration must be whole seconds (got %s)", duration)
		}
		seconds := int(duration.Seconds())
		if !validSecondIntervals[seconds] {
			return "", fmt.Errorf("second interval %ds is not a standard divisor of 60", seconds)
		}
		return fmt.Sprintf("*/%d * * * * *", seconds), nil

	case duration < time.Hour:
		if duration%time.Minute != 0 {
			return "", fmt.Errorf("duration must be whole minutes (got %s)", duration)
		}
		minutes := int(duration.Minutes())
		if !validMinuteIntervals[minutes] {
			return "", fmt.Errorf("minute interval %dm is not a standard divisor of 60", minutes)
		}
		return fmt.Sprintf("*/%d * * * *", minutes), nil

	case duration%time.Hour == 0:
		hours := int(duration.Hours())
		if !validHourIntervals[hours] {
			return "", fmt.Errorf("hour interval %dh is not a standard divisor of 24", hours)
		}
		return fmt.Sprintf("0 */%d * * *", hours), nil

	default:
		return "", fmt.Errorf("duration must be whole seconds, minutes, or hours (got %s)", duration)
	}
}

// DescribeSchedule provides a human-readable description of a schedule
func DescribeSchedule(interval time.Duration, alignToClock bool, timezone *time.Location) string {
	if timezone == nil {
		timezone = time.UTC
	}
	if !alignToClock {
		return fmt.Sprintf("every %s", interval)
	}

	cronExpr, err := durationToCron(interval)
	if err != nil {
		return fmt.Sprintf("every %s (non-aligned)", interval)
	}
	return fmt.Sprintf("every %s (aligned to clock, cron: %s, %s)", interval, cronExpr, timezone.String())
}

// gocronLoggerAdapter adapts slog.Logger to gocron.Logger interface
type gocronLoggerAdapter struct {
	logger *slog.Logger
}

func newGocronLoggerAdapter(logger *slog.Logger) gocron.Logger {
	return &gocronLoggerAdapter{logger: logger}
}

func (a *gocronLoggerAdapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}

func (a *gocronLoggerAdapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

func (a *gocronLoggerAdapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

func (a *gocronLoggerAdapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}
