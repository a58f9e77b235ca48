package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"news_relay/internal/domain"
	"news_relay/internal/metrics"
)

const skippedMessage = "skipped: run in progress"

// JobOptions are the per-job knobs of a SyncService.
type JobOptions struct {
	JobID      string
	NotifyRoom *domain.Room // nil disables realtime pushes
	Exclusive  bool         // reject overlapping runs instead of tolerating them
}

// SyncService runs fetch, normalize, dedup and persist for one job.
type SyncService struct {
	source    Source
	contents  ContentStore
	tags      TagStore
	syncState SyncStateStore
	txManager TransactionManager
	notifier  Notifier
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
	opts      JobOptions

	running atomic.Bool

	mu    sync.RWMutex
	state domain.RunState
	last  *domain.SyncStats
}

func NewSyncService(
	source Source,
	contents ContentStore,
	tags TagStore,
	syncState SyncStateStore,
	txManager TransactionManager,
	notifier Notifier,
	publisher Publisher,
	clock clockwork.Clock,
	logger *slog.Logger,
	opts JobOptions,
) *SyncService {
	if opts.JobID == "" {
		opts.JobID = source.ID()
	}
	return &SyncService{
		source:    source,
		contents:  contents,
		tags:      tags,
		syncState: syncState,
		txManager: txManager,
		notifier:  notifier,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With("job", opts.JobID, "source", source.ID()),
		opts:      opts,
		state:     domain.StateIdle,
	}
}

func (s *SyncService) JobID() string {
	return s.opts.JobID
}

// State is the position of the current run, or idle between runs.
func (s *SyncService) State() domain.RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastRun returns a copy of the stats of the last finished run, or nil.
func (s *SyncService) LastRun() *domain.SyncStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	stats := *s.last
	return &stats
}

// Sync performs one run. The returned stats are never nil; err is set only
// when the run failed as a whole.
func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	if s.opts.Exclusive {
		if !s.running.CompareAndSwap(false, true) {
			s.logger.Info("sync skipped, previous run still in progress")
			metrics.SyncRuns.WithLabelValues(s.opts.JobID, "skipped").Inc()
			return &domain.SyncStats{
				JobID:     s.opts.JobID,
				SourceID:  s.source.ID(),
				State:     domain.StateSuccess,
				Message:   skippedMessage,
				StartedAt: s.clock.Now(),
			}, nil
		}
		defer s.running.Store(false)
	}

	stats := &domain.SyncStats{
		JobID:     s.opts.JobID,
		SourceID:  s.source.ID(),
		StartedAt: s.clock.Now(),
	}

	s.logger.Info("starting sync", "source_name", s.source.Name(), "category", s.source.Category())

	s.transition(stats, domain.StateFetching)
	raws, err := s.source.Fetch(ctx)
	if err != nil {
		return s.finish(ctx, stats, fmt.Errorf("fetch items: %w", err))
	}
	stats.Fetched = len(raws)
	s.logger.Info("fetched items from source", "count", len(raws))

	s.transition(stats, domain.StateNormalizing)
	items := s.normalize(raws, stats)

	s.transition(stats, domain.StatePersisting)
	var inserted []*domain.ContentItem
	for i := range items {
		item := &items[i]
		isNew, err := s.persist(ctx, item)
		if err != nil {
			stats.Errors++
			s.logger.Error("failed to persist item",
				"publish_time", item.PublishTime,
				"fingerprint", item.Fingerprint,
				"error", err,
			)
			continue
		}
		if !isNew {
			stats.Skipped++
			continue
		}
		stats.New++
		stats.Latest = item
		inserted = append(inserted, item)
	}

	s.publish(ctx, inserted, stats)
	s.notify(stats)

	return s.finish(ctx, stats, nil)
}

func (s *SyncService) normalize(raws []domain.RawItem, stats *domain.SyncStats) []domain.ContentItem {
	items := make([]domain.ContentItem, 0, len(raws))
	for i, raw := range raws {
		item, err := s.source.Normalize(raw)
		if err != nil {
			stats.Invalid++
			level := slog.LevelWarn
			if !errors.Is(err, domain.ErrFormat) {
				level = slog.LevelError
			}
			s.logger.Log(context.Background(), level, "item rejected", "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items
}

// persist inserts item unless an equal item is already stored. It reports
// whether a row was created.
func (s *SyncService) persist(ctx context.Context, item *domain.ContentItem) (bool, error) {
	exists, err := s.exists(ctx, item)
	if err != nil {
		return false, fmt.Errorf("check existing: %w", err)
	}
	if exists {
		return false, nil
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		id, err := s.contents.Insert(txCtx, item)
		if err != nil {
			return err
		}
		item.ID = id

		if len(item.Tags) > 0 {
			if err := s.tags.LinkToContent(txCtx, id, item.Tags); err != nil {
				return fmt.Errorf("link tags: %w", err)
			}
		}
		return nil
	})

	switch {
	case errors.Is(err, domain.ErrDuplicate):
		// Lost a race with an overlapping run of the same job.
		return false, nil
	case err != nil:
		return false, fmt.Errorf("insert item: %w", err)
	}
	return true, nil
}

func (s *SyncService) exists(ctx context.Context, item *domain.ContentItem) (bool, error) {
	if item.HasStableID() {
		return s.contents.ExistsByExternalID(ctx, item.SourceID, *item.ExternalID)
	}
	return s.contents.ExistsByNaturalKey(ctx, item.NaturalKey())
}

func (s *SyncService) publish(ctx context.Context, inserted []*domain.ContentItem, stats *domain.SyncStats) {
	if s.publisher == nil {
		return
	}
	for _, item := range inserted {
		if err := s.publisher.Publish(ctx, item); err != nil {
			stats.Errors++
			s.logger.Error("failed to publish item", "content_id", item.ID, "error", err)
			continue
		}
		stats.Published++
	}
}

func (s *SyncService) notify(stats *domain.SyncStats) {
	if stats.New == 0 || s.opts.NotifyRoom == nil || s.notifier == nil {
		return
	}
	stats.Notified = s.notifier.Push(*s.opts.NotifyRoom, stats.Latest)
	s.logger.Info("latest item pushed",
		"room", s.opts.NotifyRoom.String(),
		"delivered", stats.Notified,
	)
}

func (s *SyncService) finish(ctx context.Context, stats *domain.SyncStats, runErr error) (*domain.SyncStats, error) {
	stats.Finish(runErr)
	stats.Duration = s.clock.Since(stats.StartedAt)

	if err := s.updateSyncState(ctx, stats); err != nil {
		s.logger.Error("failed to update sync state", "error", err)
	}

	metrics.SyncRuns.WithLabelValues(s.opts.JobID, string(stats.State)).Inc()
	metrics.SyncRunDuration.WithLabelValues(s.opts.JobID).Observe(stats.Duration.Seconds())
	metrics.SyncItems.WithLabelValues(s.opts.JobID, "new").Add(float64(stats.New))
	metrics.SyncItems.WithLabelValues(s.opts.JobID, "skipped").Add(float64(stats.Skipped))
	metrics.SyncItems.WithLabelValues(s.opts.JobID, "invalid").Add(float64(stats.Invalid))
	metrics.SyncItems.WithLabelValues(s.opts.JobID, "error").Add(float64(stats.Errors))

	if runErr != nil {
		s.logger.Error("sync failed", "error", runErr, "duration", stats.Duration)
	} else {
		s.logger.Info("sync completed",
			"state", stats.State,
			"fetched", stats.Fetched,
			"new", stats.New,
			"skipped", stats.Skipped,
			"invalid", stats.Invalid,
			"errors", stats.Errors,
			"published", stats.Published,
			"notified", stats.Notified,
			"duration", stats.Duration,
		)
	}

	s.mu.Lock()
	s.state = domain.StateIdle
	snapshot := *stats
	s.last = &snapshot
	s.mu.Unlock()

	return stats, runErr
}

func (s *SyncService) transition(stats *domain.SyncStats, next domain.RunState) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	stats.State = next
	s.logger.Debug("sync state changed", "state", next)
}

func (s *SyncService) updateSyncState(ctx context.Context, stats *domain.SyncStats) error {
	state, err := s.syncState.Get(ctx, s.opts.JobID)
	if err != nil {
		return err
	}

	state.JobID = s.opts.JobID
	state.LastSyncedAt = s.clock.Now()
	state.LastSuccess = stats.State != domain.StateFailed
	state.LastCount = stats.New
	state.LastMessage = stats.Message
	state.TotalSynced += int64(stats.New)

	return s.syncState.Update(ctx, state)
}
