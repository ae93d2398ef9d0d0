package models

import "time"

// Content is the immutable snapshot of what was collected from the
// messaging source. It is created once per run by the collection step and
// never mutated afterward.
type Content struct {
	// OriginalText is the exact text of the collected message.
	OriginalText string `json:"original_text"`

	// ExtractedURLs are the URLs found in the message, in discovery order,
	// de-duplicated.
	ExtractedURLs []string `json:"extracted_urls"`

	// MediaFiles holds paths or descriptions of photos/images/audio tied to
	// the message.
	MediaFiles []string `json:"media_files,omitempty"`

	// VideoFiles holds video paths, links, or descriptions.
	VideoFiles []string `json:"video_files,omitempty"`

	// Metadata is free-form collection metadata (source identifier, step
	// counts, hints for locating media).
	Metadata map[string]any `json:"metadata,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// PreparedPost holds the destination-shaped fields derived from Content and
// the context map. One is created fresh per destination per run and is never
// shared across destinations.
type PreparedPost struct {
	Platform string `json:"platform"`

	// Text is the main body (tweet text, caption, post body).
	Text string `json:"text"`

	// Headline is an optional leading line (used by LinkedIn).
	Headline string `json:"headline,omitempty"`

	Hashtags []string `json:"hashtags,omitempty"`

	// Emojis is a short emoji string appended to expressive platforms.
	Emojis string `json:"emojis,omitempty"`

	// Thread holds optional follow-up segments posted as replies.
	Thread []string `json:"thread,omitempty"`

	MediaURLs []string       `json:"media_urls,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	PreparedAt time.Time `json:"prepared_at"`
}

// PostResult records the outcome of attempting to execute a PreparedPost on
// one destination. Exactly one is produced per enabled destination per run,
// even when preparation or execution fails.
type PostResult struct {
	Platform  string    `json:"platform"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason"`
	PostID    string    `json:"post_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
