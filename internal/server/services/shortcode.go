package services

import (
	"crypto/rand"
	"math/big"
)

const (
	shortCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	shortCodeLength   = 8
)

// GenerateShortCode returns a fresh random code used to build direct links.
// Uniqueness is enforced by the catalog's unique constraint; collisions are
// handled by retrying the insert with a new code.
func GenerateShortCode() string {
	b := make([]byte, shortCodeLength)
	max := big.NewInt(int64(len(shortCodeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic(err)
		}
		b[i] = shortCodeAlphabet[n.Int64()]
	}
	return string(b)
}
