package concat

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Satisfied reports whether dest's current content already satisfies the
// requested operation, i.e. whether applying it would change nothing.
//
// Without force, dest is satisfied when it contains src's bytes anywhere
// as a contiguous run. A consequence worth knowing: an empty src is
// always satisfied, so it never creates a missing destination. With
// force, dest must equal src exactly.
func Satisfied(dest, src []byte, force bool) bool {
	if force {
		return bytes.Equal(dest, src)
	}
	return bytes.Contains(dest, src)
}

// Checksum returns the SHA-256 of data as a lowercase hex string. This
// is the content identity used in results and the journal.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
