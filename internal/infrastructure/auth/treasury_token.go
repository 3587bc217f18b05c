package auth

import (
	"crypto/subtle"

	"github.com/javila-dev/rojoz/internal/infrastructure/config"
	"golang.org/x/crypto/bcrypt"
)

// TreasuryTokenVerifier authenticates external treasury calls. Production
// deployments configure a bcrypt hash of the platform API token; outside
// production a plain dev token may be used instead.
type TreasuryTokenVerifier struct {
	tokenHash []byte
	devToken  string
}

// NewTreasuryTokenVerifier creates a verifier from treasury configuration
func NewTreasuryTokenVerifier(cfg config.TreasuryConfig) *TreasuryTokenVerifier {
	return &TreasuryTokenVerifier{
		tokenHash: []byte(cfg.APITokenHash),
		devToken:  cfg.DevToken,
	}
}

// Verify reports whether the presented token is the treasury API token.
// The bcrypt hash takes precedence when both are configured.
func (v *TreasuryTokenVerifier) Verify(token string) bool {
	if token == "" {
		return false
	}
	if len(v.tokenHash) > 0 {
		return bcrypt.CompareHashAndPassword(v.tokenHash, []byte(token)) == nil
	}
	if v.devToken != "" {
		return subtle.ConstantTimeCompare([]byte(v.devToken), []byte(token)) == 1
	}
	return false
}

// Configured reports whether any credential is configured at all. An
// unconfigured verifier rejects every request.
func (v *TreasuryTokenVerifier) Configured() bool {
	return len(v.tokenHash) > 0 || v.devToken != ""
}
