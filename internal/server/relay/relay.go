// Package relay abstracts the external media store that holds raw image
// bytes. The catalog only keeps the opaque references the relay hands back:
// upload blob → get references, reference → get bytes, nothing more.
package relay

import "context"

// Relay is the media-store surface the services depend on.
type Relay interface {
	// Store uploads the blob plus a thumbnail rendition and returns the
	// primary and thumbnail references.
	Store(ctx context.Context, data []byte, contentType string) (ref, thumbRef string, err error)
	// Fetch retrieves the raw bytes for a reference.
	Fetch(ctx context.Context, ref string) ([]byte, error)
	// Delete removes objects best-effort. It is only used to clean up the
	// crash window between a relay store and a failed catalog insert.
	Delete(ctx context.Context, refs ...string) error
}
