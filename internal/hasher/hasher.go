// Package hasher computes the content fingerprints carried by atoms and chunks.
// The digests identify content for deduplication; they are not a security boundary.
package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
)

// Digests holds the three hex-encoded fingerprints of one byte sequence.
type Digests struct {
	MD5    string `json:"md5,omitempty"`
	SHA1   string `json:"sha1,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
}

// IsZero reports whether no digest is populated.
func (d Digests) IsZero() bool {
	return d.MD5 == "" && d.SHA1 == "" && d.SHA256 == ""
}

// Hash computes all three digests over data.
func Hash(data []byte) Digests {
	m := md5.Sum(data)
	s1 := sha1.Sum(data)
	s256 := sha256.Sum256(data)
	return Digests{
		MD5:    hex.EncodeToString(m[:]),
		SHA1:   hex.EncodeToString(s1[:]),
		SHA256: hex.EncodeToString(s256[:]),
	}
}

// Matches reports whether every populated digest in d equals the digest
// recomputed over data. Empty fields are not compared.
func (d Digests) Matches(data []byte) bool {
	got := Hash(data)
	if d.MD5 != "" && d.MD5 != got.MD5 {
		return false
	}
	if d.SHA1 != "" && d.SHA1 != got.SHA1 {
		return false
	}
	if d.SHA256 != "" && d.SHA256 != got.SHA256 {
		return false
	}
	return true
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
