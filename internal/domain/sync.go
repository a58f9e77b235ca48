package domain

import (
	"fmt"
	"time"
)

// RunState is the position of a single sync run in its state machine.
type RunState string

const (
	StateIdle        RunState = "idle"
	StateFetching    RunState = "fetching"
	StateNormalizing RunState = "normalizing"
	StatePersisting  RunState = "persisting"
	StateSuccess     RunState = "success"
	StatePartial     RunState = "partial"
	StateFailed      RunState = "failed"
)

// SyncStats holds statistics about a sync operation.
type SyncStats struct {
	JobID     string
	SourceID  string
	State     RunState
	Fetched   int
	New       int
	Skipped   int
	Invalid   int
	Errors    int
	Published int
	Notified  int
	Latest    *ContentItem
	Message   string
	StartedAt time.Time
	Duration  time.Duration
}

// SyncResult is the per-source outcome reported to callers.
type SyncResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

func (s *SyncStats) Result() SyncResult {
	return SyncResult{
		Success: s.State != StateFailed,
		Count:   s.New,
		Message: s.Message,
	}
}

// Finish settles the terminal state from the counters and builds the message.
func (s *SyncStats) Finish(err error) {
	switch {
	case err != nil:
		s.State = StateFailed
		s.Message = fmt.Sprintf("%s sync failed: %v", s.JobID, err)
	case s.Errors > 0 || s.Invalid > 0:
		s.State = StatePartial
		s.Message = fmt.Sprintf("%s sync completed with issues, inserted %d/%d items (%d invalid, %d errors)",
			s.JobID, s.New, s.Fetched, s.Invalid, s.Errors)
	default:
		s.State = StateSuccess
		s.Message = fmt.Sprintf("%s sync completed, inserted %d/%d items", s.JobID, s.New, s.Fetched)
	}
}

// SyncState is the persisted last result of a job.
type SyncState struct {
	ID           int64     `db:"id"`
	JobID        string    `db:"job_id"`
	LastSyncedAt time.Time `db:"last_synced_at"`
	LastSuccess  bool      `db:"last_success"`
	LastCount    int       `db:"last_count"`
	LastMessage  string    `db:"last_message"`
	TotalSynced  int64     `db:"total_synced"`
}
