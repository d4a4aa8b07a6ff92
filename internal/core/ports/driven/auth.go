package driven

import "github.com/nexia-labs/nexia-core/internal/core/domain"

// AuthAdapter handles API token operations for the HTTP surface.
type AuthAdapter interface {
	// GenerateToken creates a signed token from claims.
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken validates a token and extracts claims.
	ParseToken(token string) (*domain.TokenClaims, error)

	// HashSecret hashes an API secret for storage.
	HashSecret(secret string) (string, error)

	// VerifySecret checks a secret against its stored hash.
	VerifySecret(secret, hash string) bool
}
