package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"news_relay/internal/domain"
)

const contentColumns = `id, category, source_id, external_id, title, body, author,
	publish_time, published_at, fingerprint, created_at`

// Sortable columns for Find.
var sortColumns = map[string]string{
	"":             "published_at",
	"published_at": "published_at",
	"publish_time": "publish_time",
	"created_at":   "created_at",
	"id":           "id",
}

type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

// Insert never updates. A row that collides on fingerprint or external id
// is reported as domain.ErrDuplicate.
func (s *ContentStore) Insert(ctx context.Context, item *domain.ContentItem) (int64, error) {
	exec := GetExecutor(ctx, s.db)

	if item.Fingerprint == "" {
		item.Fingerprint = item.ComputeFingerprint()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query := exec.Rebind(`
		INSERT INTO content_items (
			category, source_id, external_id, title, body, author,
			publish_time, published_at, fingerprint, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
		RETURNING id`)

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		item.Category,
		item.SourceID,
		item.ExternalID,
		item.Title,
		item.Body,
		item.Author,
		item.PublishTime,
		item.PublishedAt.UTC(),
		item.Fingerprint,
		item.CreatedAt.UTC(),
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("insert content: %w", err)
	}
	return id, nil
}

func (s *ContentStore) ExistsByNaturalKey(ctx context.Context, key domain.NaturalKey) (bool, error) {
	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`
		SELECT COUNT(1) FROM content_items
		WHERE category = ? AND publish_time = ? AND author = ? AND body = ?`)

	var n int
	if err := sqlx.GetContext(ctx, exec, &n, query, key.Category, key.PublishTime, key.Author, key.Body); err != nil {
		return false, fmt.Errorf("count by natural key: %w", err)
	}
	return n > 0, nil
}

func (s *ContentStore) ExistsByExternalID(ctx context.Context, sourceID, externalID string) (bool, error) {
	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`SELECT COUNT(1) FROM content_items WHERE source_id = ? AND external_id = ?`)

	var n int
	if err := sqlx.GetContext(ctx, exec, &n, query, sourceID, externalID); err != nil {
		return false, fmt.Errorf("count by external id: %w", err)
	}
	return n > 0, nil
}

// Find returns items matching filter with their tags loaded.
func (s *ContentStore) Find(ctx context.Context, filter domain.ContentFilter, opts domain.FindOptions) ([]domain.ContentItem, error) {
	column, ok := sortColumns[opts.SortBy]
	if !ok {
		return nil, fmt.Errorf("unsupported sort column %q", opts.SortBy)
	}
	direction := "ASC"
	if opts.Desc {
		direction = "DESC"
	}

	where, args := filterClause(filter)
	query := "SELECT " + contentColumns + " FROM content_items" + where +
		" ORDER BY " + column + " " + direction + ", id " + direction
	if opts.Limit > 0 || opts.Skip > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = math.MaxInt32
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, max(opts.Skip, 0))
	}

	var items []domain.ContentItem
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select content: %w", err)
	}

	if err := s.loadTags(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ContentStore) Count(ctx context.Context, filter domain.ContentFilter) (int64, error) {
	where, args := filterClause(filter)

	var n int64
	if err := s.db.GetContext(ctx, &n, s.db.Rebind("SELECT COUNT(1) FROM content_items"+where), args...); err != nil {
		return 0, fmt.Errorf("count content: %w", err)
	}
	return n, nil
}

func (s *ContentStore) loadTags(ctx context.Context, items []domain.ContentItem) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]int64, len(items))
	index := make(map[int64]int, len(items))
	for i, item := range items {
		ids[i] = item.ID
		index[item.ID] = i
	}

	query, args, err := sqlx.In(`SELECT content_id, tag FROM content_tags WHERE content_id IN (?) ORDER BY tag`, ids)
	if err != nil {
		return fmt.Errorf("build tag query: %w", err)
	}

	var rows []struct {
		ContentID int64  `db:"content_id"`
		Tag       string `db:"tag"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("select tags: %w", err)
	}

	for _, row := range rows {
		i := index[row.ContentID]
		items[i].Tags = append(items[i].Tags, row.Tag)
	}
	return nil
}

func filterClause(filter domain.ContentFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.SourceID != "" {
		conds = append(conds, "source_id = ?")
		args = append(args, filter.SourceID)
	}
	if filter.Author != "" {
		conds = append(conds, "author = ?")
		args = append(args, filter.Author)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
