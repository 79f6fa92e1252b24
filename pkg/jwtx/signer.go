package jwtx

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinHMACSecretSize is the smallest HS256 secret we accept.
const MinHMACSecretSize = 32

// Signer is anything that can sign session tokens.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	Validate() error

	// verificationKey is what a KeySet stores for this signer's kid.
	verificationKey() any
}

// NewSignerEdDSA creates an EdDSA signer from a PKCS8 PEM private key.
func NewSignerEdDSA(kid string, pemKey []byte) (Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}
	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not an Ed25519 private key")
	}

	return &eddsaSigner{kid: kid, key: key, pub: key.Public().(ed25519.PublicKey)}, nil
}

// NewSignerHS256 creates an HMAC-SHA256 signer. The same secret verifies.
func NewSignerHS256(kid string, secret []byte) (Signer, error) {
	s := &hmacSigner{kid: kid, secret: secret}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

type eddsaSigner struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

func (s *eddsaSigner) Alg() string          { return jwt.SigningMethodEdDSA.Alg() }
func (s *eddsaSigner) KID() string          { return s.kid }
func (s *eddsaSigner) verificationKey() any { return s.pub }

func (s *eddsaSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *eddsaSigner) Validate() error {
	if len(s.key) != ed25519.PrivateKeySize || len(s.pub) != ed25519.PublicKeySize {
		return errors.New("jwtx: invalid Ed25519 key size")
	}
	return nil
}

type hmacSigner struct {
	kid    string
	secret []byte
}

func (s *hmacSigner) Alg() string          { return jwt.SigningMethodHS256.Alg() }
func (s *hmacSigner) KID() string          { return s.kid }
func (s *hmacSigner) verificationKey() any { return s.secret }

func (s *hmacSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.secret)
}

func (s *hmacSigner) Validate() error {
	if len(s.secret) < MinHMACSecretSize {
		return fmt.Errorf("jwtx: HS256 secret must be at least %d bytes", MinHMACSecretSize)
	}
	return nil
}
