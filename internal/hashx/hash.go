// Package hashx computes content digests for deduplication. The digest is a
// deterministic fingerprint of the blob's bytes, used as an equality key —
// not as a cryptographic integrity guarantee.
package hashx

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/dmitrijs2005/imgvault/internal/common"
)

// Sum streams r through SHA-256 in fixed-size chunks and returns the
// hex-encoded digest. The blob is never held in memory as one buffer, so
// inputs larger than available fast memory are fine. Any read error aborts
// the computation and is returned; callers must treat the operation as
// failed rather than retrying the hash silently.
func Sum(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, common.HashChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			// hash.Hash.Write never returns an error
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("hash read: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumBytes is a convenience wrapper for in-memory blobs.
func SumBytes(data []byte) string {
	// bytes.Reader never fails, so the error can't happen
	digest, _ := Sum(bytes.NewReader(data))
	return digest
}
