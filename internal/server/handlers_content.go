package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"news_relay/internal/domain"
)

const (
	timeLayout   = time.RFC3339
	defaultLimit = 20
	maxLimit     = 100
)

type contentListResponse struct {
	Items []domain.ContentItem `json:"items"`
	Total int64                `json:"total"`
	Skip  int                  `json:"skip"`
	Limit int                  `json:"limit"`
}

func contentFilter(c echo.Context) domain.ContentFilter {
	return domain.ContentFilter{
		Category: c.QueryParam("category"),
		SourceID: c.QueryParam("source"),
		Author:   c.QueryParam("author"),
	}
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return v, nil
}

func (s *Server) handleListContent(c echo.Context) error {
	limit, err := intParam(c, "limit", defaultLimit)
	if err != nil {
		return err
	}
	if limit == 0 || limit > maxLimit {
		limit = maxLimit
	}
	skip, err := intParam(c, "skip", 0)
	if err != nil {
		return err
	}

	opts := domain.FindOptions{
		SortBy: c.QueryParam("sort"),
		Desc:   c.QueryParam("order") != "asc",
		Skip:   skip,
		Limit:  limit,
	}
	switch opts.SortBy {
	case "", "published_at", "publish_time", "created_at", "id":
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported sort field")
	}

	ctx := c.Request().Context()
	filter := contentFilter(c)

	items, err := s.contents.Find(ctx, filter, opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "load content").SetInternal(err)
	}
	total, err := s.contents.Count(ctx, filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "count content").SetInternal(err)
	}

	if items == nil {
		items = []domain.ContentItem{}
	}
	return c.JSON(http.StatusOK, contentListResponse{Items: items, Total: total, Skip: skip, Limit: limit})
}

func (s *Server) handleCountContent(c echo.Context) error {
	total, err := s.contents.Count(c.Request().Context(), contentFilter(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "count content").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": total})
}
