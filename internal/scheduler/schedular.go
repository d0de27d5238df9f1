package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher is the work run on every tick.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Scheduler refreshes the weather on a fixed interval. A tick that arrives
// while the previous refresh is still running is skipped.
type Scheduler struct {
	refresher Refresher
	logger    *zap.Logger
	interval  time.Duration
	timeout   time.Duration
	cron      *cron.Cron
	job       cron.Job
	mu        sync.Mutex
	running   bool
	entryID   cron.EntryID
	lastRun   time.Time
	runs      int
}

func NewScheduler(refresher Refresher, interval time.Duration, logger *zap.Logger) *Scheduler {
	cronLog := cronLogger{logger.Sugar()}
	s := &Scheduler{
		refresher: refresher,
		logger:    logger,
		interval:  interval,
		timeout:   60 * time.Second,
		cron:      cron.New(cron.WithLogger(cronLog)),
	}
	s.job = cron.NewChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)).
		Then(cron.FuncJob(s.runRefresh))
	return s
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if s.interval <= 0 {
		return errors.New("refresh interval must be positive")
	}

	id, err := s.cron.AddJob(fmt.Sprintf("@every %s", s.interval), s.job)
	if err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.interval),
		zap.Time("next_run", s.cron.Entry(id).Next))
	return nil
}

func (s *Scheduler) runRefresh() {
	s.mu.Lock()
	s.lastRun = time.Now()
	s.runs++
	s.mu.Unlock()

	startTime := time.Now()
	s.logger.Info("Starting scheduled weather refresh")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.refresher.Refresh(ctx)

	s.logger.Info("Scheduled weather refresh completed",
		zap.Duration("duration", time.Since(startTime)))
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// ForceRun triggers a refresh now, subject to the same skip rule as ticks.
func (s *Scheduler) ForceRun() {
	s.logger.Info("Manually triggering weather refresh")
	go s.job.Run()
}

func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"running":  s.running,
		"interval": s.interval.String(),
		"last_run": s.lastRun,
		"runs":     s.runs,
	}
	if s.running {
		status["next_run"] = s.cron.Entry(s.entryID).Next
	}
	return status
}

// cronLogger adapts zap to cron's logger interface.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
