package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// KeySource provides public keys for JWT verification by key id.
type KeySource interface {
	PublicKey(kid string) (*ecdsa.PublicKey, error)
}

// JWTVerifier verifies credentials issued by TokenIssuer.
type JWTVerifier struct {
	keys     KeySource
	issuer   string
	audience string
}

// NewJWTVerifier creates a new JWT verifier.
func NewJWTVerifier(keys KeySource, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
	}
}

// VerifyRequest extracts and verifies the bearer token of r.
func (v *JWTVerifier) VerifyRequest(r *http.Request) (*Principal, error) {
	tokenString := extractBearerToken(r)
	if tokenString == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	return v.Verify(tokenString)
}

// Verify checks signature, issuer, audience and expiry and returns the principal.
func (v *JWTVerifier) Verify(tokenString string) (*Principal, error) {
	var claims TokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("missing kid")
		}
		return v.keys.PublicKey(kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || userID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing or invalid user_id claim", ErrUnauthenticated)
	}

	return &Principal{
		UserID:       userID,
		TenantClaims: claims.Tenants,
	}, nil
}

// extractBearerToken extracts the JWT from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
