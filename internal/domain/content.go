package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// PublishTimeLayout is the canonical formatting of ContentItem.PublishTime.
const PublishTimeLayout = "2006-01-02 15:04:05"

type ContentItem struct {
	ID          int64     `json:"id" db:"id"`
	Category    string    `json:"category" db:"category"`
	SourceID    string    `json:"sourceId" db:"source_id"` // identifies the job source (e.g., "cls", "sina")
	ExternalID  *string   `json:"externalId,omitempty" db:"external_id"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"content" db:"body"`
	Author      string    `json:"author" db:"author"`
	PublishTime string    `json:"publishTime" db:"publish_time"`
	PublishedAt time.Time `json:"publishedAt" db:"published_at"`
	Fingerprint string    `json:"-" db:"fingerprint"`
	Tags        []string  `json:"tags" db:"-"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// NaturalKey identifies an item by business fields when the source has no stable id.
type NaturalKey struct {
	Category    string
	PublishTime string
	Author      string
	Body        string
}

func (c *ContentItem) NaturalKey() NaturalKey {
	return NaturalKey{
		Category:    c.Category,
		PublishTime: c.PublishTime,
		Author:      c.Author,
		Body:        c.Body,
	}
}

// HasStableID reports whether dedup should use the source-provided identifier.
func (c *ContentItem) HasStableID() bool {
	return c.ExternalID != nil && *c.ExternalID != ""
}

// ComputeFingerprint returns the dedup fingerprint: the external identity for
// items with a stable id, otherwise the natural key.
func (c *ContentItem) ComputeFingerprint() string {
	if c.HasStableID() {
		return hashFields("id", c.SourceID, *c.ExternalID)
	}
	return c.NaturalKey().Fingerprint()
}

// Fingerprint hashes the key fields. Each field is length-prefixed so that
// ("a|b", "c") and ("a", "b|c") never collide.
func (k NaturalKey) Fingerprint() string {
	return hashFields(k.Category, k.PublishTime, k.Author, k.Body)
}

func hashFields(fields ...string) string {
	h := sha256.New()
	for _, field := range fields {
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RawItem is one undecoded upstream record, keyed by the upstream field vocabulary.
type RawItem map[string]any

// String returns the field as a trimmed string; numbers are formatted, other types yield "".
func (r RawItem) String(field string) string {
	if r == nil || field == "" {
		return ""
	}
	switch v := r[field].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Strings returns a list-valued field; a scalar string becomes a single element.
func (r RawItem) Strings(field string) []string {
	if r == nil || field == "" {
		return nil
	}
	switch v := r[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	}
	return nil
}

// ContentFilter narrows Find and Count. Empty fields match everything.
type ContentFilter struct {
	Category string
	SourceID string
	Author   string
}

type FindOptions struct {
	SortBy string // "published_at" or "created_at"
	Desc   bool
	Skip   int
	Limit  int
}
