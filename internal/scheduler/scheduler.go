package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"news_relay/internal/domain"
)

// Syncer runs one job's sync pass.
type Syncer interface {
	JobID() string
	Sync(ctx context.Context) (*domain.SyncStats, error)
	State() domain.RunState
	LastRun() *domain.SyncStats
}

// Job pairs a syncer with its polling interval.
type Job struct {
	Syncer   Syncer
	Interval time.Duration
}

// JobStatus is the externally visible state of one job.
type JobStatus struct {
	JobID    string             `json:"jobId"`
	Interval string             `json:"interval"`
	State    domain.RunState    `json:"state"`
	LastRun  *domain.SyncResult `json:"lastRun,omitempty"`
	LastAt   *time.Time         `json:"lastRunAt,omitempty"`
}

// Scheduler drives every job on its own ticker. Ticks never wait for the
// previous run of the same job; overlap is handled by the syncer.
type Scheduler struct {
	jobs       []Job
	byID       map[string]Job
	clock      clockwork.Clock
	runTimeout time.Duration
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewScheduler(jobs []Job, clock clockwork.Clock, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	byID := make(map[string]Job, len(jobs))
	for _, job := range jobs {
		byID[job.Syncer.JobID()] = job
	}
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &Scheduler{
		jobs:       jobs,
		byID:       byID,
		clock:      clock,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start runs every job once immediately and then on its interval. It blocks
// until ctx is done and in-flight runs have returned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "jobs", len(s.jobs))

	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job Job) {
			defer s.wg.Done()
			s.loop(ctx, job)
		}(job)
	}

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	logger := s.logger.With("job", job.Syncer.JobID())
	logger.Info("job scheduled", "interval", job.Interval)

	s.launch(ctx, job)

	ticker := s.clock.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.launch(ctx, job)
		}
	}
}

func (s *Scheduler) launch(ctx context.Context, job Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSync(ctx, job)
	}()
}

func (s *Scheduler) runSync(ctx context.Context, job Job) *domain.SyncStats {
	syncCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	stats, err := job.Syncer.Sync(syncCtx)
	if err != nil {
		s.logger.Error("sync failed", "job", job.Syncer.JobID(), "error", err)
	}
	return stats
}

// Trigger runs one job now through the same path as a tick and waits for it.
func (s *Scheduler) Trigger(ctx context.Context, jobID string) (domain.SyncResult, error) {
	job, ok := s.byID[jobID]
	if !ok {
		return domain.SyncResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownJob, jobID)
	}

	stats := s.runSync(ctx, job)
	if stats == nil {
		return domain.SyncResult{Success: false, Message: jobID + " sync produced no result"}, nil
	}
	return stats.Result(), nil
}

// TriggerAll runs every job concurrently and returns the per-job results
// together with the total number of inserted items.
func (s *Scheduler) TriggerAll(ctx context.Context) (map[string]domain.SyncResult, int) {
	var mu sync.Mutex
	results := make(map[string]domain.SyncResult, len(s.jobs))
	total := 0

	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			result, _ := s.Trigger(ctx, job.Syncer.JobID())

			mu.Lock()
			defer mu.Unlock()
			results[job.Syncer.JobID()] = result
			total += result.Count
		}(job)
	}
	wg.Wait()

	return results, total
}

func (s *Scheduler) Status() []JobStatus {
	out := make([]JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		status := JobStatus{
			JobID:    job.Syncer.JobID(),
			Interval: job.Interval.String(),
			State:    job.Syncer.State(),
		}
		if last := job.Syncer.LastRun(); last != nil {
			result := last.Result()
			startedAt := last.StartedAt
			status.LastRun = &result
			status.LastAt = &startedAt
		}
		out = append(out, status)
	}
	return out
}
