package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ContentType identifies which ingestion source a record came from.
// Stored records carry it as a plain string, so the constants double as
// the wire representation.
type ContentType string

const (
	ContentTypeArticle    ContentType = "article"
	ContentTypeYouTube    ContentType = "youtube"
	ContentTypePodcast    ContentType = "podcast"
	ContentTypeInstapaper ContentType = "instapaper"
	ContentTypeDocument   ContentType = "document"
)

// AllContentTypes lists every supported content type, in the order
// maintenance sweeps visit them.
var AllContentTypes = []ContentType{
	ContentTypeArticle,
	ContentTypeYouTube,
	ContentTypePodcast,
	ContentTypeInstapaper,
	ContentTypeDocument,
}

// Valid reports whether t is one of the supported content types.
func (t ContentType) Valid() bool {
	for _, known := range AllContentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ContentRecord represents a single ingested item with its metadata and
// extracted text. The deduplication layer only reads these fields.
type ContentRecord struct {
	UID         string      `json:"uid"`
	ContentType ContentType `json:"content_type"`
	Title       string      `json:"title"`
	Content     string      `json:"content,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	URL         string      `json:"url"`
	Author      string      `json:"author,omitempty"`
	PublishedAt time.Time   `json:"published_at,omitempty"`
	FetchedAt   time.Time   `json:"fetched_at,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// Text returns the record's body text, falling back to the summary when no
// full content was extracted.
func (r *ContentRecord) Text() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Summary
}

// GenerateUID creates a stable record ID from a URL.
func GenerateUID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}
