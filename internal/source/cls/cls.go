// Package cls normalizes the telegraph feed, which splits the publish
// timestamp across a date field and a time-of-day field.
package cls

import (
	"fmt"

	"news_relay/internal/domain"
	"news_relay/internal/source"
)

const (
	DefaultAuthor = "财联社"
	untitled      = "--"
)

// Upstream field names.
const (
	fieldTitle = "标题"
	fieldBody  = "内容"
	fieldDate  = "发布日期"
	fieldTime  = "发布时间"
)

type Adapter struct {
	author string
	ts     source.Timestamps
}

// New returns an adapter stamping author on every item; empty means DefaultAuthor.
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

	title := raw.String(fieldTitle)
	if title == "" {
		title = untitled
	}

	publishTime, publishedAt, _ := a.ts.Join(raw.String(fieldDate), raw.String(fieldTime))

	return domain.ContentItem{
		Title:       title,
		Body:        body,
		Author:      a.author,
		PublishTime: publishTime,
		PublishedAt: publishedAt,
	}, nil
}
