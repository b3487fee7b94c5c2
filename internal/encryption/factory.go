package encryption

import (
	"fmt"

	"concatfile-go/internal/concat"
	"concatfile-go/internal/config"
)

// NewEncryptorFromConfig returns the configured Encryptor, or nil when
// encryption is disabled.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (concat.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("age encryption requires public_key_path and private_key_path")
		}
		return NewAgeEncryptor(cfg), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
