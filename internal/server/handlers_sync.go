package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"news_relay/internal/domain"
	"news_relay/internal/scheduler"
)

type syncAllResponse struct {
	Success    bool                         `json:"success"`
	Results    map[string]domain.SyncResult `json:"results"`
	TotalCount int                          `json:"totalCount"`
}

type syncStatusResponse struct {
	Jobs      []scheduler.JobStatus `json:"jobs"`
	Persisted []persistedState      `json:"persisted"`
}

type persistedState struct {
	JobID        string `json:"jobId"`
	LastSyncedAt string `json:"lastSyncedAt"`
	LastSuccess  bool   `json:"lastSuccess"`
	LastCount    int    `json:"lastCount"`
	LastMessage  string `json:"lastMessage"`
	TotalSynced  int64  `json:"totalSynced"`
}

// syncContext outlives the request so a dropped client does not abort a run.
func (s *Server) syncContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request().Context()), s.syncTimeout)
}

func (s *Server) handleSyncAll(c echo.Context) error {
	ctx, cancel := s.syncContext(c)
	defer cancel()

	results, total := s.syncs.TriggerAll(ctx)

	success := true
	for _, r := range results {
		success = success && r.Success
	}
	return c.JSON(http.StatusOK, syncAllResponse{Success: success, Results: results, TotalCount: total})
}

func (s *Server) handleSyncJob(c echo.Context) error {
	ctx, cancel := s.syncContext(c)
	defer cancel()

	result, err := s.syncs.Trigger(ctx, c.Param("job"))
	if errors.Is(err, domain.ErrUnknownJob) {
		return c.JSON(http.StatusNotFound, domain.SyncResult{Message: err.Error()})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleSyncStatus(c echo.Context) error {
	resp := syncStatusResponse{Jobs: s.syncs.Status(), Persisted: []persistedState{}}

	if s.syncStates != nil {
		states, err := s.syncStates.List(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "load sync state").SetInternal(err)
		}
		for _, st := range states {
			resp.Persisted = append(resp.Persisted, persistedState{
				JobID:        st.JobID,
				LastSyncedAt: st.LastSyncedAt.Format(timeLayout),
				LastSuccess:  st.LastSuccess,
				LastCount:    st.LastCount,
				LastMessage:  st.LastMessage,
				TotalSynced:  st.TotalSynced,
			})
		}
	}
	return c.JSON(http.StatusOK, resp)
}
