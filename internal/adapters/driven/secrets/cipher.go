package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const (
	// iterations is the PBKDF2 round count. Slow by design.
	iterations = 120_000

	// saltSize is the per-encryption random salt length in bytes.
	saltSize = 16

	// keySize is the derived key size for AES-256.
	keySize = 32

	// tagSize is the GCM authentication tag length in bytes.
	tagSize = 16
)

// Ensure Cipher implements the port.
var _ driven.CredentialCipher = (*Cipher)(nil)

// payload is the persisted bundle. All fields are lowercase hex.
type payload struct {
	Salt      string `json:"salt"`
	IV        string `json:"iv"`
	AuthTag   string `json:"authTag"`
	Encrypted string `json:"encrypted"`
}

// Cipher encrypts credential objects with AES-256-GCM under a key derived
// from a process-wide secret via PBKDF2-SHA256 with a fresh random salt
// per encryption.
type Cipher struct {
	secret []byte
}

// New creates a Cipher. An absent secret is a fatal configuration error,
// surfaced here at construction rather than deep inside a request.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, domain.ErrMissingSecret
	}
	return &Cipher{secret: []byte(secret)}, nil
}

// Encrypt serializes credentials and returns the self-describing bundle.
func (c *Cipher) Encrypt(creds *domain.Credentials) (string, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	// Seal appends the tag to the ciphertext; the bundle stores them
	// as separate fields.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	bundle, err := json.Marshal(payload{
		Salt:      hex.EncodeToString(salt),
		IV:        hex.EncodeToString(iv),
		AuthTag:   hex.EncodeToString(tag),
		Encrypted: hex.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}

	return string(bundle), nil
}

// Decrypt parses the bundle, rederives the key from the embedded salt,
// and verifies the authentication tag. Every failure mode returns the
// same generic error: callers learn that decryption failed, not why.
func (c *Cipher) Decrypt(value string) (*domain.Credentials, error) {
	var p payload
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	if p.Salt == "" || p.IV == "" || p.AuthTag == "" || p.Encrypted == "" {
		return nil, domain.ErrDecryptionFailed
	}

	salt, err := hex.DecodeString(p.Salt)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	iv, err := hex.DecodeString(p.IV)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	tag, err := hex.DecodeString(p.AuthTag)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	ciphertext, err := hex.DecodeString(p.Encrypted)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	if len(iv) != gcm.NonceSize() || len(tag) != tagSize {
		return nil, domain.ErrDecryptionFailed
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}

	var creds domain.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, domain.ErrDecryptionFailed
	}

	return &creds, nil
}

// IsEncrypted structurally checks for the four bundle fields. Used to
// tell legacy plaintext rows from encrypted ones during migration.
func (c *Cipher) IsEncrypted(value string) bool {
	if !strings.HasPrefix(strings.TrimSpace(value), "{") {
		return false
	}
	var p payload
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return false
	}
	return p.Salt != "" && p.IV != "" && p.AuthTag != "" && p.Encrypted != ""
}

// SafeDecrypt tolerates legacy rows written before encryption was
// introduced. Encrypted bundles decrypt normally; plaintext JSON parses
// directly; anything else is treated as a bare stored API key.
// Remove once the plaintext migration completes.
func (c *Cipher) SafeDecrypt(value string) (*domain.Credentials, error) {
	if c.IsEncrypted(value) {
		return c.Decrypt(value)
	}

	var creds domain.Credentials
	if err := json.Unmarshal([]byte(value), &creds); err == nil {
		return &creds, nil
	}

	return &domain.Credentials{APIKey: value}, nil
}

// aead derives the AES-256 key for a salt and builds the GCM instance.
func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.secret, salt, iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return gcm, nil
}
