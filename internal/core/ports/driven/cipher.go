package driven

import "github.com/nexia-labs/nexia-core/internal/core/domain"

// CredentialCipher encrypts credential objects before persistence and
// decrypts them on load. Implementations must fail closed: any tamper,
// malformed payload, or wrong key yields domain.ErrDecryptionFailed
// without revealing which part was wrong.
type CredentialCipher interface {
	// Encrypt serializes and encrypts credentials into a self-describing
	// opaque string safe to persist.
	Encrypt(creds *domain.Credentials) (string, error)

	// Decrypt reverses Encrypt. Fails with domain.ErrDecryptionFailed on
	// any integrity or format problem.
	Decrypt(payload string) (*domain.Credentials, error)

	// IsEncrypted structurally checks whether a stored value is an
	// encrypted bundle, distinguishing legacy plaintext rows during the
	// migration window.
	IsEncrypted(value string) bool

	// SafeDecrypt tolerates legacy rows: decrypts encrypted bundles,
	// JSON-parses plaintext rows. Exists only to bridge the one-time
	// migration from plaintext storage.
	SafeDecrypt(value string) (*domain.Credentials, error)
}
