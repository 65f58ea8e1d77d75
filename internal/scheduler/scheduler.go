package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/trainwatch/internal/monitor"
)

// Runner performs one watchdog invocation.
type Runner interface {
	Run(ctx context.Context) monitor.Result
}

// Scheduler invokes a Runner on a fixed interval. Every tick is an independent
// invocation; nothing is carried from one run to the next.
type Scheduler struct {
	runner Runner
	every  time.Duration
	logger *logrus.Logger

	mu       sync.Mutex
	runs     int
	failures int
	last     monitor.Result

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(runner Runner, every time.Duration, logger *logrus.Logger) *Scheduler {
	if every <= 0 {
		every = 15 * time.Minute
	}
	return &Scheduler{
		runner: runner,
		every:  every,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start runs once immediately, then on every tick until ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	s.logger.WithField("every", s.every.String()).Info("scheduler started")
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped: context cancelled")
			return
		case <-s.stopCh:
			s.logger.Info("scheduler stopped: stop signal received")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	res := s.runner.Run(ctx)

	s.mu.Lock()
	s.runs++
	if !res.OK() {
		s.failures++
	}
	s.last = res
	runs, failures := s.runs, s.failures
	s.mu.Unlock()

	fields := logrus.Fields{
		"run_id":   res.RunID,
		"outcome":  res.Outcome,
		"alerts":   res.Alerts,
		"runs":     runs,
		"failures": failures,
		"took":     time.Since(start).Round(time.Millisecond).String(),
	}
	if !res.OK() {
		fields["error"] = res.Err
		s.logger.WithFields(fields).Error("scheduled run failed")
		return
	}
	s.logger.WithFields(fields).Info("scheduled run finished")
}

// Stats reports how many runs have completed and how many of them failed.
func (s *Scheduler) Stats() (runs, failures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.failures
}

// Last returns the most recent run result.
func (s *Scheduler) Last() monitor.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
