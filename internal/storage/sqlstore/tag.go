package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type TagStore struct {
	db *sqlx.DB
}

func NewTagStore(db *sqlx.DB) *TagStore {
	return &TagStore{db: db}
}

// LinkToContent attaches tags to a content row. Blank and repeated tags are ignored.
func (s *TagStore) LinkToContent(ctx context.Context, contentID int64, tags []string) error {
	seen := make(map[string]bool, len(tags))
	var sb strings.Builder
	valueArgs := make([]any, 0, len(tags)*2)

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true

		if len(valueArgs) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?)")
		valueArgs = append(valueArgs, contentID, tag)
	}
	if len(valueArgs) == 0 {
		return nil
	}

	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind("INSERT INTO content_tags (content_id, tag) VALUES " + sb.String() + " ON CONFLICT DO NOTHING")
	if _, err := exec.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("insert tags: %w", err)
	}
	return nil
}

// ByContentID lists the tags of one content row.
func (s *TagStore) ByContentID(ctx context.Context, contentID int64) ([]string, error) {
	var tags []string
	err := s.db.SelectContext(ctx, &tags,
		s.db.Rebind("SELECT tag FROM content_tags WHERE content_id = ? ORDER BY tag"),
		contentID,
	)
	return tags, err
}
