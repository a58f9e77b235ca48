package source

import (
	"context"
	"fmt"

	"news_relay/internal/domain"
)

// Fetcher retrieves one batch of raw upstream records.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.RawItem, error)
}

// Adapter maps one raw record into a content item. Returning an error
// wrapping domain.ErrFormat rejects just that record.
type Adapter interface {
	Normalize(raw domain.RawItem) (domain.ContentItem, error)
}

// Source binds a fetcher and an adapter to one configured job.
type Source struct {
	id       string
	name     string
	category string
	fetcher  Fetcher
	adapter  Adapter
}

func New(id, name, category string, fetcher Fetcher, adapter Adapter) *Source {
	return &Source{
		id:       id,
		name:     name,
		category: category,
		fetcher:  fetcher,
		adapter:  adapter,
	}
}

func (s *Source) ID() string {
	return s.id
}

func (s *Source) Name() string {
	return s.name
}

func (s *Source) Category() string {
	return s.category
}

func (s *Source) Fetch(ctx context.Context) ([]domain.RawItem, error) {
	return s.fetcher.Fetch(ctx)
}

// Normalize runs the adapter and stamps source, category and fingerprint.
func (s *Source) Normalize(raw domain.RawItem) (domain.ContentItem, error) {
	item, err := s.adapter.Normalize(raw)
	if err != nil {
		return domain.ContentItem{}, err
	}
	if item.Body == "" {
		return domain.ContentItem{}, fmt.Errorf("%w: empty body", domain.ErrFormat)
	}

	item.SourceID = s.id
	item.Category = s.category
	item.Fingerprint = item.ComputeFingerprint()
	return item, nil
}
