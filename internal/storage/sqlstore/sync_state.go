package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"news_relay/internal/domain"
)

type SyncStateStore struct {
	db *sqlx.DB
}

func NewSyncStateStore(db *sqlx.DB) *SyncStateStore {
	return &SyncStateStore{db: db}
}

// Get returns the stored state, or a zero state for a job that never ran.
func (s *SyncStateStore) Get(ctx context.Context, jobID string) (*domain.SyncState, error) {
	var state domain.SyncState
	query := s.db.Rebind(`
		SELECT id, job_id, last_synced_at, last_success, last_count, last_message, total_synced
		FROM sync_state
		WHERE job_id = ?`)

	err := s.db.GetContext(ctx, &state, query, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.SyncState{JobID: jobID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	return &state, nil
}

func (s *SyncStateStore) Update(ctx context.Context, state *domain.SyncState) error {
	query := s.db.Rebind(`
		INSERT INTO sync_state (job_id, last_synced_at, last_success, last_count, last_message, total_synced)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			last_success = EXCLUDED.last_success,
			last_count = EXCLUDED.last_count,
			last_message = EXCLUDED.last_message,
			total_synced = EXCLUDED.total_synced`)

	_, err := s.db.ExecContext(ctx, query,
		state.JobID,
		state.LastSyncedAt.UTC(),
		state.LastSuccess,
		state.LastCount,
		state.LastMessage,
		state.TotalSynced,
	)
	if err != nil {
		return fmt.Errorf("upsert sync state: %w", err)
	}
	return nil
}

// List returns every stored job state ordered by job id.
func (s *SyncStateStore) List(ctx context.Context) ([]domain.SyncState, error) {
	var states []domain.SyncState
	err := s.db.SelectContext(ctx, &states, `
		SELECT id, job_id, last_synced_at, last_success, last_count, last_message, total_synced
		FROM sync_state
		ORDER BY job_id`)
	if err != nil {
		return nil, fmt.Errorf("list sync state: %w", err)
	}
	return states, nil
}
