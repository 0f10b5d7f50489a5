// Package checksum computes the content digests recorded for every mirrored
// distribution file. A single streaming pass feeds MD5, SHA-256 and
// BLAKE2b-256 so large artifacts are read from disk only once. MD5 and
// BLAKE2b are not FIPS 140 approved; when FIPS 140 mode is enabled those
// digests are reported as absent while SHA-256 is always produced.
package checksum

import (
	"crypto/fips140"
	"crypto/md5" // #nosec G501 -- MD5 is published for index compatibility, never used for trust decisions
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// BufferSize is the fixed read buffer used for streaming digests.
const BufferSize = 64 * 1024

// Digests holds the hex-encoded digests of one file. MD5 and BLAKE2b256 are
// empty when the corresponding algorithm is unavailable.
type Digests struct {
	MD5        string
	SHA256     string
	BLAKE2b256 string
}

// Hasher feeds every enabled digest from one stream of writes.
type Hasher struct {
	md5    hash.Hash
	sha256 hash.Hash
	blake2 hash.Hash
}

// NewHasher creates a Hasher. MD5 and BLAKE2b-256 are skipped while FIPS 140
// mode is enabled.
func NewHasher() *Hasher {
	h := &Hasher{sha256: sha256.New()}
	if fips140.Enabled() {
		return h
	}
	h.md5 = md5.New() // #nosec G401
	if b, err := blake2b.New256(nil); err == nil {
		h.blake2 = b
	}
	return h
}

// Write implements io.Writer.
func (h *Hasher) Write(p []byte) (int, error) {
	if h.md5 != nil {
		h.md5.Write(p)
	}
	h.sha256.Write(p)
	if h.blake2 != nil {
		h.blake2.Write(p)
	}
	return len(p), nil
}

// Digests returns the hex digests of everything written so far.
func (h *Hasher) Digests() Digests {
	d := Digests{SHA256: hex.EncodeToString(h.sha256.Sum(nil))}
	if h.md5 != nil {
		d.MD5 = hex.EncodeToString(h.md5.Sum(nil))
	}
	if h.blake2 != nil {
		d.BLAKE2b256 = hex.EncodeToString(h.blake2.Sum(nil))
	}
	return d
}

// Calculate streams reader through every available digest using a fixed-size buffer
func Calculate(reader io.Reader) (Digests, error) {
	h := NewHasher()
	buf := make([]byte, BufferSize)
	if _, err := io.CopyBuffer(h, reader, buf); err != nil {
		return Digests{}, fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return h.Digests(), nil
}

// CalculateFile opens path and returns its digests.
func CalculateFile(path string) (Digests, error) {
	f, err := os.Open(path) // #nosec G304 -- caller supplies the artifact path
	if err != nil {
		return Digests{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Calculate(f)
}

// CalculateSHA256 calculates the SHA256 checksum of data from a reader
func CalculateSHA256(reader io.Reader) (string, error) {
	hasher := sha256.New()

	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifySHA256 verifies that the checksum of data matches the expected checksum.
// The comparison ignores hex case.
func VerifySHA256(reader io.Reader, expectedChecksum string) (bool, error) {
	actualChecksum, err := CalculateSHA256(reader)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(actualChecksum, expectedChecksum), nil
}
