package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"news_relay/internal/domain"
)

const userAgent = "NewsRelay/1.0"

// errShape marks a response that arrived intact but has an unexpected top
// level. Retrying cannot fix it.
var errShape = errors.New("unexpected response shape")

type Config struct {
	URL            string
	Params         map[string]string
	ListField      string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client fetches a JSON list of records from one HTTP endpoint.
type Client struct {
	httpClient     *http.Client
	url            string
	listField      string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(cfg.Params) > 0 {
		q := u.Query()
		for k, v := range cfg.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	if cfg.ListField == "" {
		cfg.ListField = "data"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		url:            u.String(),
		listField:      cfg.ListField,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("url", u.Redacted()),
	}, nil
}

// Fetch performs the GET, retrying transport and status failures with
// exponential backoff. Every error wraps domain.ErrFetch.
func (c *Client) Fetch(ctx context.Context) ([]domain.RawItem, error) {
	var items []domain.RawItem
	var err error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		items, err = c.doRequest(ctx)
		if err == nil {
			return items, nil
		}
		if errors.Is(err, errShape) || attempt == c.maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrFetch, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
}

func (c *Client) doRequest(ctx context.Context) ([]domain.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return extractItems(body, c.listField)
}

// extractItems accepts a top-level array, or an object holding an array (or a
// single object) under listField.
func extractItems(body any, listField string) ([]domain.RawItem, error) {
	switch v := body.(type) {
	case []any:
		return toItems(v), nil
	case map[string]any:
		inner, ok := v[listField]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q field", errShape, listField)
		}
		switch list := inner.(type) {
		case []any:
			return toItems(list), nil
		case map[string]any:
			return []domain.RawItem{list}, nil
		default:
			return nil, fmt.Errorf("%w: %q is %T", errShape, listField, inner)
		}
	default:
		return nil, fmt.Errorf("%w: top level is %T", errShape, body)
	}
}

func toItems(list []any) []domain.RawItem {
	items := make([]domain.RawItem, 0, len(list))
	for i, e := range list {
		obj, ok := e.(map[string]any)
		if !ok {
			// Keep the slot so the adapter can reject it and the run counts it invalid.
			items = append(items, domain.RawItem{"_invalid": fmt.Sprintf("element %d is %T", i, e)})
			continue
		}
		items = append(items, obj)
	}
	return items
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}
