// Package rss reads RSS and Atom feeds. The fetcher flattens each entry into
// a raw record so the shared normalize and dedup path applies unchanged.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"news_relay/internal/domain"
	"news_relay/internal/source"
)

// Keys of the flattened record.
const (
	FieldGUID        = "guid"
	FieldTitle       = "title"
	FieldBody        = "content"
	FieldDescription = "description"
	FieldLink        = "link"
	FieldAuthor      = "author"
	FieldPublished   = "published"
	FieldCategories  = "categories"
)

type Fetcher struct {
	url    string
	parser *gofeed.Parser
	logger *slog.Logger
}

func NewFetcher(url string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	p.UserAgent = "NewsRelay/1.0"
	return &Fetcher{url: url, parser: p, logger: logger.With("url", url)}
}

func (f *Fetcher) Fetch(ctx context.Context) ([]domain.RawItem, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %w", domain.ErrFetch, err)
	}

	items := make([]domain.RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		items = append(items, flatten(feed, it))
	}

	f.logger.Debug("feed fetched", "title", feed.Title, "items", len(items))
	return items, nil
}

func flatten(feed *gofeed.Feed, it *gofeed.Item) domain.RawItem {
	raw := domain.RawItem{
		FieldGUID:        it.GUID,
		FieldTitle:       it.Title,
		FieldBody:        it.Content,
		FieldDescription: it.Description,
		FieldLink:        it.Link,
	}

	switch {
	case it.Author != nil && it.Author.Name != "":
		raw[FieldAuthor] = it.Author.Name
	case len(it.Authors) > 0 && it.Authors[0] != nil:
		raw[FieldAuthor] = it.Authors[0].Name
	default:
		raw[FieldAuthor] = feed.Title
	}

	switch {
	case it.PublishedParsed != nil:
		raw[FieldPublished] = it.PublishedParsed.Format(time.RFC3339)
	case it.UpdatedParsed != nil:
		raw[FieldPublished] = it.UpdatedParsed.Format(time.RFC3339)
	}

	if len(it.Categories) > 0 {
		cats := make([]any, 0, len(it.Categories))
		for _, c := range it.Categories {
			cats = append(cats, c)
		}
		raw[FieldCategories] = cats
	}
	return raw
}

type Adapter struct {
	author string
	ts     source.Timestamps
}

// NewAdapter returns an adapter; a non-empty author replaces the entry author.
func NewAdapter(author string, ts source.Timestamps) *Adapter {
	return &Adapter{author: author, ts: ts}
}

func (a *Adapter) Normalize(raw domain.RawItem) (domain.ContentItem, error) {
	body := raw.String(FieldBody)
	if body == "" {
		body = raw.String(FieldDescription)
	}
	if body == "" {
		body = raw.String(FieldTitle)
	}
	if body == "" {
		return domain.ContentItem{}, fmt.Errorf("%w: entry without content", domain.ErrFormat)
	}

	item := domain.ContentItem{
		Title:  raw.String(FieldTitle),
		Body:   body,
		Author: a.author,
		Tags:   raw.Strings(FieldCategories),
	}
	if item.Author == "" {
		item.Author = raw.String(FieldAuthor)
	}

	id := raw.String(FieldGUID)
	if id == "" {
		id = raw.String(FieldLink)
	}
	if id = strings.TrimSpace(id); id != "" {
		item.ExternalID = &id
	}

	item.PublishTime, item.PublishedAt, _ = a.ts.Parse(raw.String(FieldPublished), time.RFC3339)
	return item, nil
}
