// Package scheduler runs the periodic refresh job.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const refreshJobName = "refresh"

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler owns a single refresh entry whose interval follows the user
// config. An interval of 0 disables auto refresh.
type Scheduler struct {
	cron       *cron.Cron
	job        Job
	jobTimeout time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	entryID  cron.EntryID
	interval int
}

func New(job Job, jobTimeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		job:        job,
		jobTimeout: jobTimeout,
		logger:     logger,
	}
}

// Schedule returns the cron spec for an interval in minutes.
func Schedule(minutes int) string {
	return fmt.Sprintf("@every %dm", minutes)
}

// Reschedule replaces the refresh entry. Unchanged intervals are a no-op.
func (s *Scheduler) Reschedule(minutes int) error {
	if minutes < 0 {
		return fmt.Errorf("refresh interval must not be negative: %d", minutes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if minutes == s.interval {
		return nil
	}

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	s.interval = minutes

	if minutes == 0 {
		s.logger.Info("Auto refresh disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(Schedule(minutes), s.run)
	if err != nil {
		s.interval = 0
		return fmt.Errorf("failed to schedule %s job: %w", refreshJobName, err)
	}
	s.entryID = entryID

	s.logger.Info("Auto refresh scheduled", zap.Int("interval_minutes", minutes))
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	s.logger.Debug("Scheduled job starting", zap.String("job", refreshJobName))

	if err := s.job(ctx); err != nil {
		s.logger.Warn("Scheduled job failed", zap.String("job", refreshJobName), zap.Error(err))
		return
	}
	s.logger.Info("Scheduled job completed",
		zap.String("job", refreshJobName),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Interval is the active interval in minutes, 0 when disabled.
func (s *Scheduler) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// NextRun is the next fire time; zero when disabled.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()

	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *Scheduler) Start() {
	s.logger.Info("Scheduler starting")
	s.cron.Start()
}

// Stop halts scheduling and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Scheduler stopping")
	return s.cron.Stop()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
