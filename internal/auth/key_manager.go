package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
)

// ErrUnknownKey is returned when a token names a key id the manager doesn't hold.
var ErrUnknownKey = errors.New("unknown signing key")

// KeyManager manages the ECDSA keypair used to sign credentials.
type KeyManager struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	kid        string // Key ID (fingerprint)
}

// NewKeyManager creates a new KeyManager with a fresh ECDSA P-256 keypair.
// Tokens signed by it do not survive a restart.
func NewKeyManager() (*KeyManager, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA key: %w", err)
	}

	return newKeyManager(privateKey)
}

// NewKeyManagerFromPEM loads a PEM-encoded EC private key (SEC 1 or PKCS #8).
func NewKeyManagerFromPEM(privateKeyPEM string) (*KeyManager, error) {
	if privateKeyPEM == "" {
		return nil, errors.New("signing key not provided")
	}

	privateKey, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	if privateKey.Curve != elliptic.P256() {
		return nil, errors.New("signing key must use curve P-256")
	}

	return newKeyManager(privateKey)
}

// newKeyManager computes the key ID as the base58-encoded SHA256 hash of the
// public key DER bytes.
func newKeyManager(privateKey *ecdsa.PrivateKey) (*KeyManager, error) {
	pubKeyDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	hash := sha256.Sum256(pubKeyDER)

	return &KeyManager{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		kid:        base58.Encode(hash[:]),
	}, nil
}

// Kid returns the key ID (fingerprint) for this keypair.
func (km *KeyManager) Kid() string {
	return km.kid
}

// PublicKey returns the verification key for kid.
func (km *KeyManager) PublicKey(kid string) (*ecdsa.PublicKey, error) {
	if kid != km.kid {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, kid)
	}
	return km.publicKey, nil
}

// SignJWT signs a JWT with the private key.
// The token header will include the kid for key identification.
func (km *KeyManager) SignJWT(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = km.kid

	tokenString, err := token.SignedString(km.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return tokenString, nil
}

// PrivateKeyPEM encodes the private key as PKCS #8 PEM.
func (km *KeyManager) PrivateKeyPEM() (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(km.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

// JWK returns the public key in JWK (JSON Web Key) format.
func (km *KeyManager) JWK() map[string]any {
	// P-256 coordinates are always encoded as 32 bytes
	x := make([]byte, 32)
	y := make([]byte, 32)
	km.publicKey.X.FillBytes(x)
	km.publicKey.Y.FillBytes(y)

	return map[string]any{
		"kty": "EC",    // Key Type: Elliptic Curve
		"use": "sig",   // Public Key Use: Signature
		"crv": "P-256", // Curve: P-256
		"kid": km.kid,
		"x":   base64.RawURLEncoding.EncodeToString(x),
		"y":   base64.RawURLEncoding.EncodeToString(y),
		"alg": "ES256",
	}
}
