// Package models defines the server-side catalog types.
package models

import "time"

// Image is one catalog row. The binary itself lives at the relay; the row
// only carries the opaque references plus placement metadata.
//
// Invariants: ShortCode is globally unique; Folder always begins and ends
// with "/"; Hash, when present, is used for duplicate grouping only, never
// as a key.
type Image struct {
	ID          int64      `json:"id"`
	FileID      string     `json:"file_id"`
	ThumbFileID string     `json:"thumb_file_id"`
	ShortCode   string     `json:"short_code"`
	Tags        string     `json:"tags"`
	Filename    string     `json:"filename"`
	Size        int64      `json:"size"`
	Folder      string     `json:"folder"`
	ContentType string     `json:"content_type"`
	Hash        string     `json:"hash,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListFilter narrows a paged catalog select.
type ListFilter struct {
	Search   string
	Tag      string
	Filename string
	Folder   string
	// IncludeExpired keeps expired rows in the result. The deduplication
	// job sets it: expired rows still hold relay blobs and must be
	// grouped like any other.
	IncludeExpired bool
}

// Stats holds catalog-wide totals shown in the client.
type Stats struct {
	Images  int64 `json:"images"`
	Bytes   int64 `json:"bytes"`
	Folders int64 `json:"folders"`
	Tags    int64 `json:"tags"`
}
