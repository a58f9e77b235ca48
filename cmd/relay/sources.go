package main

import (
	"fmt"
	"log/slog"

	"news_relay/internal/config"
	"news_relay/internal/source"
	"news_relay/internal/source/cls"
	"news_relay/internal/source/feed"
	"news_relay/internal/source/mapped"
	"news_relay/internal/source/rss"
	"news_relay/internal/source/sina"
)

// buildSource pairs the fetcher and adapter a job config asks for.
func buildSource(job config.JobConfig, retry config.RetryConfig, ts source.Timestamps, logger *slog.Logger) (*source.Source, error) {
	if job.Adapter == config.AdapterRSS {
		fetcher := rss.NewFetcher(job.URL, job.Timeout, logger)
		return source.New(job.ID, job.Name, job.Category, fetcher, rss.NewAdapter(job.Author, ts)), nil
	}

	fetcher, err := feed.New(feed.Config{
		URL:            job.URL,
		Params:         job.Params,
		ListField:      job.ListField,
		Timeout:        job.Timeout,
		MaxAttempts:    retry.MaxAttempts,
		InitialBackoff: retry.InitialBackoff,
		MaxBackoff:     retry.MaxBackoff,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}

	var adapter source.Adapter
	switch job.Adapter {
	case config.AdapterCLS:
		adapter = cls.New(job.Author, ts)
	case config.AdapterSina:
		adapter = sina.New(job.Author, ts)
	case config.AdapterMapped:
		adapter = mapped.New(job.Fields, job.Author, ts)
	default:
		return nil, fmt.Errorf("job %s: unknown adapter %q", job.ID, job.Adapter)
	}

	return source.New(job.ID, job.Name, job.Category, fetcher, adapter), nil
}
