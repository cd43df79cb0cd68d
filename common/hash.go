package common

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ComputeHash computes the BLAKE2b-256 hash of the given data
func ComputeHash(data []byte) []byte {
	hash := blake2b.Sum256(data)
	return hash[:]
}

// HexHash is ComputeHash rendered as lowercase hex.
func HexHash(data []byte) string {
	return hex.EncodeToString(ComputeHash(data))
}
