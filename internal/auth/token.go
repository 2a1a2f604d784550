package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TokenClaims is the claim set of an issued credential.
type TokenClaims struct {
	UserID  string   `json:"user_id"`
	Tenants []string `json:"tenants"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed credential and its expiry.
type IssuedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenIssuer signs credentials with tenant claims enriched at issuance time.
type TokenIssuer struct {
	keys     *KeyManager
	enricher *ClaimsEnricher
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates a token issuer.
func NewTokenIssuer(keys *KeyManager, enricher *ClaimsEnricher, issuer, audience string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		keys:     keys,
		enricher: enricher,
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue signs a credential for userID embedding the user's current tenant claims.
func (i *TokenIssuer) Issue(ctx context.Context, userID uuid.UUID) (*IssuedToken, error) {
	tenants, err := i.enricher.Claims(ctx, userID)
	if err != nil {
		return nil, err
	}

	tokenID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := &TokenClaims{
		UserID:  userID.String(),
		Tenants: tenants,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID.String(),
			Issuer:    i.issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tokenString, err := i.keys.SignJWT(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("tenants", len(tenants)).
		Msg("Issued user JWT")

	return &IssuedToken{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}
