package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"news_relay/internal/domain"
	"news_relay/testdata/utils"
)

// storeSuite holds the driver-independent store tests. Driver suites embed it
// and provide a migrated db in SetupSuite.
type storeSuite struct {
	suite.Suite
	ctx context.Context
	db  *sqlx.DB
}

func (s *storeSuite) SetupTest() {
	for _, table := range []string{"content_tags", "content_items", "sync_state"} {
		_, err := s.db.ExecContext(s.ctx, "DELETE FROM "+table)
		s.Require().NoError(err)
	}
}

func (s *storeSuite) newItem(body string) *domain.ContentItem {
	item := &domain.ContentItem{
		Category:    "finance",
		SourceID:    "cls",
		Title:       "--",
		Body:        body,
		Author:      "财联社",
		PublishTime: "2025-07-10 10:02:29",
		PublishedAt: time.Date(2025, 7, 10, 2, 2, 29, 0, time.UTC),
	}
	item.Fingerprint = item.ComputeFingerprint()
	return item
}

func (s *storeSuite) TestContentStore_InsertAndExists() {
	store := NewContentStore(s.db)
	item := s.newItem("rates held")

	id, err := store.Insert(s.ctx, item)
	s.Require().NoError(err)
	s.Greater(id, int64(0))

	exists, err := store.ExistsByNaturalKey(s.ctx, item.NaturalKey())
	s.NoError(err)
	s.True(exists)

	other := item.NaturalKey()
	other.Author = "新浪财经"
	exists, err = store.ExistsByNaturalKey(s.ctx, other)
	s.NoError(err)
	s.False(exists)

	other = item.NaturalKey()
	other.Category = "news"
	exists, err = store.ExistsByNaturalKey(s.ctx, other)
	s.NoError(err)
	s.False(exists)
}

func (s *storeSuite) TestContentStore_InsertDuplicateFingerprint() {
	store := NewContentStore(s.db)

	_, err := store.Insert(s.ctx, s.newItem("same"))
	s.Require().NoError(err)

	_, err = store.Insert(s.ctx, s.newItem("same"))
	s.ErrorIs(err, domain.ErrDuplicate)

	n, err := store.Count(s.ctx, domain.ContentFilter{})
	s.NoError(err)
	s.Equal(int64(1), n)
}

func (s *storeSuite) TestContentStore_ExternalID() {
	store := NewContentStore(s.db)

	item := s.newItem("wire story")
	item.SourceID = "wire"
	item.ExternalID = utils.Ptr("guid-1")
	item.Fingerprint = item.ComputeFingerprint()
	_, err := store.Insert(s.ctx, item)
	s.Require().NoError(err)

	exists, err := store.ExistsByExternalID(s.ctx, "wire", "guid-1")
	s.NoError(err)
	s.True(exists)

	exists, err = store.ExistsByExternalID(s.ctx, "other", "guid-1")
	s.NoError(err)
	s.False(exists)

	clash := s.newItem("edited wire story")
	clash.SourceID = "wire"
	clash.ExternalID = utils.Ptr("guid-1")
	_, err = store.Insert(s.ctx, clash)
	s.ErrorIs(err, domain.ErrDuplicate)
}

func (s *storeSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	contents := NewContentStore(s.db)
	tags := NewTagStore(s.db)
	item := s.newItem("tagged")

	var id int64
	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		var err error
		id, err = contents.Insert(ctx, item)
		if err != nil {
			return err
		}
		return tags.LinkToContent(ctx, id, []string{"macro", "fx", "macro", " "})
	})
	s.Require().NoError(err)

	linked, err := tags.ByContentID(s.ctx, id)
	s.NoError(err)
	s.ElementsMatch([]string{"fx", "macro"}, linked)
}

func (s *storeSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	contents := NewContentStore(s.db)
	item := s.newItem("rolled back")

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := contents.Insert(ctx, item); err != nil {
			return err
		}
		return errors.New("boom")
	})
	s.EqualError(err, "boom")

	exists, err := contents.ExistsByNaturalKey(s.ctx, item.NaturalKey())
	s.NoError(err)
	s.False(exists)
}

func (s *storeSuite) TestContentStore_FindAndCount() {
	store := NewContentStore(s.db)
	tags := NewTagStore(s.db)
	base := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		item := s.newItem(fmt.Sprintf("item %d", i))
		item.PublishedAt = base.Add(time.Duration(i) * time.Hour)
		item.PublishTime = item.PublishedAt.Format(domain.PublishTimeLayout)
		if i%2 == 1 {
			item.Category = "news"
			item.Author = "desk"
		}
		item.Fingerprint = item.ComputeFingerprint()
		id, err := store.Insert(s.ctx, item)
		s.Require().NoError(err)
		s.Require().NoError(tags.LinkToContent(s.ctx, id, []string{fmt.Sprintf("t%d", i)}))
	}

	items, err := store.Find(s.ctx, domain.ContentFilter{Category: "finance"}, domain.FindOptions{Desc: true})
	s.Require().NoError(err)
	s.Require().Len(items, 3)
	s.Equal("item 4", items[0].Body)
	s.Equal("item 0", items[2].Body)
	s.Equal([]string{"t4"}, items[0].Tags)

	page, err := store.Find(s.ctx, domain.ContentFilter{}, domain.FindOptions{SortBy: "published_at", Skip: 1, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal("item 1", page[0].Body)
	s.Equal("item 2", page[1].Body)

	byAuthor, err := store.Count(s.ctx, domain.ContentFilter{Author: "desk"})
	s.NoError(err)
	s.Equal(int64(2), byAuthor)

	_, err = store.Find(s.ctx, domain.ContentFilter{}, domain.FindOptions{SortBy: "body; DROP TABLE content_items"})
	s.Error(err)
}

func (s *storeSuite) TestSyncStateStore_GetNew() {
	store := NewSyncStateStore(s.db)

	state, err := store.Get(s.ctx, "new-job")
	s.NoError(err)
	s.Equal("new-job", state.JobID)
	s.True(state.LastSyncedAt.IsZero())
	s.Equal(int64(0), state.TotalSynced)
}

func (s *storeSuite) TestSyncStateStore_UpdateAndList() {
	store := NewSyncStateStore(s.db)
	now := time.Now().UTC().Truncate(time.Second)

	state := &domain.SyncState{
		JobID:        "cls",
		LastSyncedAt: now,
		LastSuccess:  true,
		LastCount:    3,
		LastMessage:  "cls sync completed, inserted 3/3 items",
		TotalSynced:  3,
	}
	s.Require().NoError(store.Update(s.ctx, state))

	state.LastCount = 0
	state.LastSuccess = false
	state.TotalSynced = 3
	s.Require().NoError(store.Update(s.ctx, state))
	s.Require().NoError(store.Update(s.ctx, &domain.SyncState{JobID: "sina", LastSyncedAt: now}))

	got, err := store.Get(s.ctx, "cls")
	s.Require().NoError(err)
	s.False(got.LastSuccess)
	s.Equal(0, got.LastCount)
	s.Equal(int64(3), got.TotalSynced)
	s.WithinDuration(now, got.LastSyncedAt, time.Second)

	all, err := store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("cls", all[0].JobID)
	s.Equal("sina", all[1].JobID)
}
