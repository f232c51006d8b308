package upload

import (
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// contentDigest hashes the payload so the server can verify upload
// integrity, then rewinds the reader for the actual send.
func contentDigest(body io.ReadSeeker) (string, error) {
	hasher, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("upload: initializing digest: %w", err)
	}
	if _, err := io.Copy(hasher, body); err != nil {
		return "", fmt.Errorf("upload: hashing payload: %w", err)
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("upload: rewinding payload: %w", err)
	}
	return "blake2b:" + hex.EncodeToString(hasher.Sum(nil)), nil
}
