// Package gitlib provides a thin interface over libgit2 for the git
// operations the analysis engine needs: opening and cloning repositories,
// walking commit history, diffing trees and reading blobs.
package gitlib

import (
	"encoding/hex"

	git2go "github.com/libgit2/git2go/v34"
)

// HashSize is the size of a SHA-1 hash in bytes.
const HashSize = 20

// Hash is a 20-byte git object id (SHA-1).
type Hash [HashSize]byte

// ZeroHash returns the all-zero hash.
func ZeroHash() Hash {
	return Hash{}
}

// NewHash creates a Hash from a 40-character hex string. Anything shorter,
// longer or non-hex yields the zero hash.
func NewHash(hexStr string) Hash {
	var hash Hash

	decoded, err := hex.DecodeString(hexStr)
	if err != nil || len(decoded) != HashSize {
		return hash
	}

	copy(hash[:], decoded)

	return hash
}

// HashFromOid converts a libgit2 Oid into a Hash.
func HashFromOid(oid *git2go.Oid) Hash {
	return Hash(*oid)
}

// String returns the lowercase hex form of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is the zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ToOid converts the hash into a libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := git2go.Oid(h)

	return &oid
}
