// Package digest computes content hashes used to detect unchanged documents.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// ErrHashMismatch is returned by Verify when content does not match a hash.
var ErrHashMismatch = errors.New("hash mismatch")

// Sum computes the SHA-256 hash of data as a hex string.
func Sum(data []byte) string {
	hash := sha256.Sum256(data)

	return hex.EncodeToString(hash[:])
}

// File computes the hash of the file at path. A missing file hashes to the
// empty string without error.
func File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return Sum(data), nil
}

// Verify checks that data hashes to want.
func Verify(data []byte, want string) error {
	calculated := Sum(data)
	if calculated != want {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, want, calculated)
	}

	return nil
}
