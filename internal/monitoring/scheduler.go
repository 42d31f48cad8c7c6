package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	maintenanceTimeout = time.Minute
	// Rate limiter entries idle longer than this are forgotten.
	limiterIdle = time.Hour
)

// UserCounter is the part of the user service the maintenance job reports on.
type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
}

// Sweeper drops idle per-client state, e.g. the login rate limiter.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// Scheduler runs periodic database housekeeping on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	db      *sql.DB
	users   UserCounter
	limiter Sweeper
}

// NewScheduler creates a new scheduler instance. An invalid cron expression is an error.
// limiter may be nil.
func NewScheduler(expr string, db *sql.DB, users UserCounter, limiter Sweeper) (*Scheduler, error) {
	logger := cronLogger{log.With().Str("component", "scheduler").Logger()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		db:      db,
		users:   users,
		limiter: limiter,
	}
	if _, err := s.cron.AddFunc(expr, s.RunMaintenance); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", expr, err)
	}
	return s, nil
}

// Run starts the scheduler in its own goroutine.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

// Report summarizes one maintenance pass.
type Report struct {
	Users        int64
	LimiterSwept int
	Took         time.Duration
}

// Maintain performs one housekeeping pass.
func (s *Scheduler) Maintain(ctx context.Context) (Report, error) {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return Report{}, fmt.Errorf("optimize: %w", err)
	}

	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("count users: %w", err)
	}

	r := Report{Users: users}
	if s.limiter != nil {
		r.LimiterSwept = s.limiter.Sweep(limiterIdle)
	}
	r.Took = time.Since(start)
	return r, nil
}

// RunMaintenance is the cron job. Failures are logged, not returned.
func (s *Scheduler) RunMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	r, err := s.Maintain(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Maintenance failed")
		return
	}
	log.Info().
		Int64("users", r.Users).
		Int("limiter_swept", r.LimiterSwept).
		Dur("took", r.Took).
		Msg("Maintenance completed")
}

// cronLogger routes cron's internal logging through zerolog.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
