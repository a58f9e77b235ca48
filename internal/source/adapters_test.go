package source_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_relay/internal/config"
	"news_relay/internal/domain"
	"news_relay/internal/source"
	"news_relay/internal/source/cls"
	"news_relay/internal/source/mapped"
	"news_relay/internal/source/rss"
	"news_relay/internal/source/sina"
)

var shanghai = time.FixedZone("CST", 8*3600)

func timestamps() source.Timestamps {
	return source.NewTimestamps(clockwork.NewFakeClockAt(time.Date(2025, 7, 11, 1, 0, 0, 0, time.UTC)), shanghai)
}

func TestCLS_JoinsDateAndTime(t *testing.T) {
	a := cls.New("", timestamps())

	item, err := a.Normalize(domain.RawItem{
		"标题":   "Rate decision",
		"内容":   " Rates held steady ",
		"发布日期": "2025-07-10T00:00:00.000",
		"发布时间": "10:02:29",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rate decision", item.Title)
	assert.Equal(t, "Rates held steady", item.Body)
	assert.Equal(t, cls.DefaultAuthor, item.Author)
	assert.Equal(t, "2025-07-10 10:02:29", item.PublishTime)
	assert.True(t, item.PublishedAt.Equal(time.Date(2025, 7, 10, 10, 2, 29, 0, shanghai)))
}

func TestCLS_DefaultsAndFallbacks(t *testing.T) {
	a := cls.New("custom", timestamps())

	item, err := a.Normalize(domain.RawItem{"内容": "body", "发布日期": "garbage"})
	require.NoError(t, err)
	assert.Equal(t, "--", item.Title)
	assert.Equal(t, "custom", item.Author)
	assert.Equal(t, "2025-07-11 09:00:00", item.PublishTime)

	_, err = a.Normalize(domain.RawItem{"标题": "no body"})
	assert.ErrorIs(t, err, domain.ErrFormat)
}

func TestSina_ParsesCombinedTimestamp(t *testing.T) {
	a := sina.New("", timestamps())

	item, err := a.Normalize(domain.RawItem{
		"时间": "2025-07-10 21:15:00",
		"内容": "央行公开市场操作。净投放1000亿元",
	})
	require.NoError(t, err)
	assert.Equal(t, sina.DefaultAuthor, item.Author)
	assert.Equal(t, "2025-07-10 21:15:00", item.PublishTime)
	assert.Equal(t, "央行公开市场操作", item.Title)

	_, err = a.Normalize(domain.RawItem{"时间": "2025-07-10 21:15:00"})
	assert.ErrorIs(t, err, domain.ErrFormat)
}

func TestMapped_UsesConfiguredFields(t *testing.T) {
	a := mapped.New(config.FieldMapping{
		ID:        "id",
		Title:     "headline",
		Body:      "text",
		Author:    "by",
		Timestamp: "ts",
		Tags:      "tags",
	}, "", timestamps())

	item, err := a.Normalize(domain.RawItem{
		"id":       float64(42),
		"headline": "Hello",
		"text":     "World",
		"by":       "desk",
		"ts":       "2025-07-10T08:00:00Z",
		"tags":     []any{"macro", "", "fx"},
	})
	require.NoError(t, err)
	require.True(t, item.HasStableID())
	assert.Equal(t, "42", *item.ExternalID)
	assert.Equal(t, "desk", item.Author)
	assert.Equal(t, "2025-07-10 16:00:00", item.PublishTime)
	assert.Equal(t, []string{"macro", "fx"}, item.Tags)
}

func TestSource_NormalizeStampsIdentity(t *testing.T) {
	src := source.New("cls", "CLS telegraph", "finance", nil, cls.New("", timestamps()))

	item, err := src.Normalize(domain.RawItem{"内容": "x", "发布日期": "2025-07-10", "发布时间": "10:00:00"})
	require.NoError(t, err)
	assert.Equal(t, "cls", item.SourceID)
	assert.Equal(t, "finance", item.Category)
	assert.Equal(t, item.NaturalKey().Fingerprint(), item.Fingerprint)
	assert.Len(t, item.Fingerprint, 64)
}

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Wire</title>
  <item>
    <guid>wire-1</guid>
    <title>First</title>
    <description>First story</description>
    <category>markets</category>
    <pubDate>Thu, 10 Jul 2025 02:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Second</title>
    <link>https://wire.example.com/2</link>
  </item>
</channel>
</rss>`

func TestRSS_FetchAndNormalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, feedXML)
	}))
	t.Cleanup(srv.Close)

	fetcher := rss.NewFetcher(srv.URL, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	src := source.New("wire", "Wire", "news", fetcher, rss.NewAdapter("", timestamps()))

	raw, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raw, 2)

	first, err := src.Normalize(raw[0])
	require.NoError(t, err)
	assert.Equal(t, "wire-1", *first.ExternalID)
	assert.Equal(t, "First story", first.Body)
	assert.Equal(t, "Wire", first.Author)
	assert.Equal(t, "2025-07-10 10:00:00", first.PublishTime)
	assert.Equal(t, []string{"markets"}, first.Tags)

	second, err := src.Normalize(raw[1])
	require.NoError(t, err)
	assert.Equal(t, "https://wire.example.com/2", *second.ExternalID)
	assert.Equal(t, "Second", second.Body)
}

func TestRSS_FetchFailure(t *testing.T) {
	fetcher := rss.NewFetcher("http://127.0.0.1:1/feed", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := fetcher.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrFetch)
}
