// Package mapped normalizes JSON sources whose field names come from configuration.
package mapped

import (
	"fmt"

	"news_relay/internal/config"
	"news_relay/internal/domain"
	"news_relay/internal/source"
)

type Adapter struct {
	fields config.FieldMapping
	author string // fixed literal; overrides fields.Author when set
	ts     source.Timestamps
}

func New(fields config.FieldMapping, author string, ts source.Timestamps) *Adapter {
	return &Adapter{fields: fields, author: author, ts: ts}
}

func (a *Adapter) Normalize(raw domain.RawItem) (domain.ContentItem, error) {
	body := raw.String(a.fields.Body)
	if body == "" {
		return domain.ContentItem{}, fmt.Errorf("%w: missing %s", domain.ErrFormat, a.fields.Body)
	}

	item := domain.ContentItem{
		Title:  raw.String(a.fields.Title),
		Body:   body,
		Author: a.author,
		Tags:   raw.Strings(a.fields.Tags),
	}
	if item.Author == "" {
		item.Author = raw.String(a.fields.Author)
	}
	if id := raw.String(a.fields.ID); id != "" {
		item.ExternalID = &id
	}

	switch {
	case a.fields.Timestamp != "":
		item.PublishTime, item.PublishedAt, _ = a.ts.Parse(raw.String(a.fields.Timestamp), a.fields.TimestampLayouts...)
	case a.fields.Date != "":
		item.PublishTime, item.PublishedAt, _ = a.ts.Join(raw.String(a.fields.Date), raw.String(a.fields.Time))
	default:
		item.PublishTime, item.PublishedAt, _ = a.ts.Parse("")
	}

	return item, nil
}
