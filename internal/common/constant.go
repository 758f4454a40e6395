package common

const (
	// HashChunkSize is the read granularity for content hashing. Blobs are
	// streamed through the digest in chunks of this size so that large files
	// never have to be materialized as a single buffer.
	HashChunkSize = 2 * 1024 * 1024

	// MaxUploadBytes is the size ceiling for a single upload. Oversized
	// images go through the compression adapter before being rejected.
	MaxUploadBytes = 10 * 1024 * 1024

	// MaxImageDimension caps either side of a recompressed image.
	MaxImageDimension = 1600

	// ThumbnailDimension caps either side of the relay-side thumbnail.
	ThumbnailDimension = 320

	// DefaultTag is assigned when an upload carries no tags.
	DefaultTag = "default"
)

// Expiry policies accepted by the upload endpoint. Everything except
// ExpireNever is a retention period in days.
const (
	ExpireNever = "forever"
	ExpireDay   = "1"
	ExpireWeek  = "7"
	ExpireMonth = "30"
)

// ValidExpire reports whether s is one of the accepted expiry policies.
func ValidExpire(s string) bool {
	switch s {
	case ExpireNever, ExpireDay, ExpireWeek, ExpireMonth:
		return true
	}
	return false
}
