// Package checksum computes the content digests used to version datasets and
// figure responses.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Digest accumulates fields into a SHA-256 digest. Fields are separated so
// that ("ab","c") and ("a","bc") differ.
type Digest struct {
	h hash.Hash
}

// NewDigest returns an empty Digest.
func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

// Add appends fields followed by a record terminator.
func (d *Digest) Add(fields ...string) {
	for _, f := range fields {
		d.h.Write([]byte(f))
		d.h.Write([]byte{0x1f})
	}
	d.h.Write([]byte{0x1e})
}

// Sum returns the hex-encoded digest so far.
func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
