package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"news_relay/internal/domain"
)

type ContentStore interface {
	// Insert returns domain.ErrDuplicate when the fingerprint or external id already exists.
	Insert(ctx context.Context, item *domain.ContentItem) (int64, error)
	ExistsByNaturalKey(ctx context.Context, key domain.NaturalKey) (bool, error)
	ExistsByExternalID(ctx context.Context, sourceID, externalID string) (bool, error)
}

type TagStore interface {
	LinkToContent(ctx context.Context, contentID int64, tags []string) error
}

type SyncStateStore interface {
	Get(ctx context.Context, jobID string) (*domain.SyncState, error)
	Update(ctx context.Context, state *domain.SyncState) error
}

type Source interface {
	ID() string
	Name() string
	Category() string
	Fetch(ctx context.Context) ([]domain.RawItem, error)
	Normalize(raw domain.RawItem) (domain.ContentItem, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier announces new content to realtime subscribers.
type Notifier interface {
	Push(room domain.Room, content any) int
}

type Publisher interface {
	Publish(ctx context.Context, item *domain.ContentItem) error
	Close() error
}
