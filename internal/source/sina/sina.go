// Package sina normalizes the rolling finance feed, which carries one
// combined timestamp per item and no title.
package sina

import (
	"fmt"
	"strings"

	"news_relay/internal/domain"
	"news_relay/internal/source"
)

const (
	DefaultAuthor = "新浪财经"
	titleRunes    = 30
)

const (
	fieldTime = "时间"
	fieldBody = "内容"
)

type Adapter struct {
	author string
	ts     source.Timestamps
}

func New(author string, ts source.Timestamps) *Adapter {
	if author == "" {
		author = DefaultAuthor
	}
	return &Adapter{author: author, ts: ts}
}

func (a *Adapter) Normalize(raw domain.RawItem) (domain.ContentItem, error) {
	body := raw.String(fieldBody)
	if body == "" {
		return domain.ContentItem{}, fmt.Errorf("%w: missing %s", domain.ErrFormat, fieldBody)
	}

	publishTime, publishedAt, _ := a.ts.Parse(raw.String(fieldTime))

	return domain.ContentItem{
		Title:       headline(body),
		Body:        body,
		Author:      a.author,
		PublishTime: publishTime,
		PublishedAt: publishedAt,
	}, nil
}

// headline cuts body to its first sentence or titleRunes runes, whichever is shorter.
func headline(body string) string {
	if i := strings.IndexAny(body, "。\n"); i > 0 {
		body = body[:i]
	}
	runes := []rune(body)
	if len(runes) <= titleRunes {
		return body
	}
	return string(runes[:titleRunes]) + "…"
}
