package source

import (
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"news_relay/internal/domain"
)

// Timestamps formats publish times in the server zone. Values that cannot be
// parsed fall back to the current time.
type Timestamps struct {
	clock    clockwork.Clock
	location *time.Location
}

func NewTimestamps(clock clockwork.Clock, location *time.Location) Timestamps {
	if location == nil {
		location = time.UTC
	}
	return Timestamps{clock: clock, location: location}
}

func (t Timestamps) Now() time.Time {
	return t.clock.Now().In(t.location)
}

func (t Timestamps) Format(ts time.Time) string {
	return ts.In(t.location).Format(domain.PublishTimeLayout)
}

// Parse tries each layout in order. Layouts without a zone are read in the
// server zone. The returned bool is false when the fallback was used.
func (t Timestamps) Parse(value string, layouts ...string) (string, time.Time, bool) {
	value = strings.TrimSpace(value)
	if value != "" {
		if len(layouts) == 0 {
			layouts = DefaultLayouts
		}
		for _, layout := range layouts {
			ts, err := time.ParseInLocation(layout, value, t.location)
			if err == nil {
				return t.Format(ts), ts, true
			}
		}
	}
	now := t.Now()
	return t.Format(now), now, false
}

// Join combines a date field such as "2025-07-10T00:00:00.000" and a
// time-of-day field such as "10:02:29" into one parsed timestamp.
func (t Timestamps) Join(date, clock string) (string, time.Time, bool) {
	date = strings.TrimSpace(date)
	if i := strings.IndexByte(date, 'T'); i >= 0 {
		date = date[:i]
	}
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return t.Parse("")
	}
	return t.Parse(date+" "+clock, domain.PublishTimeLayout)
}

// DefaultLayouts are tried when a job configures none.
var DefaultLayouts = []string{
	domain.PublishTimeLayout,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
}
