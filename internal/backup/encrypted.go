package backup

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"concatfile-go/internal/concat"
)

// EncryptedStore wraps another store and encrypts content on Put.
// References are those of the inner store, computed over the
// ciphertext. Get returns ciphertext; callers decrypt through an
// unlocked concat.DecryptionContext.
type EncryptedStore struct {
	inner concat.BackupStore
	enc   concat.Encryptor
}

var _ concat.BackupStore = (*EncryptedStore)(nil)

// NewEncryptedStore wraps inner so everything it stores is encrypted
// with enc's public key.
func NewEncryptedStore(inner concat.BackupStore, enc concat.Encryptor) *EncryptedStore {
	return &EncryptedStore{inner: inner, enc: enc}
}

func (s *EncryptedStore) Put(dest string, r io.Reader, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := s.enc.Encrypt(r, &buf); err != nil {
		return "", fmt.Errorf("encrypting backup: %w", err)
	}
	return s.inner.Put(dest, &buf, now)
}

func (s *EncryptedStore) Get(ref string) (io.ReadCloser, error) {
	return s.inner.Get(ref)
}

func (s *EncryptedStore) Name() string { return s.inner.Name() }

func (s *EncryptedStore) Encrypted() bool { return true }
