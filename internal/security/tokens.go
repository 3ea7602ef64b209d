package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidKey is returned when key material cannot be read or has an unsupported type.
	ErrInvalidKey = errors.New("invalid key")
	// ErrSigningDisabled is returned by Issue when the provider was built without a private key.
	ErrSigningDisabled = errors.New("token signing is not configured")
)

// IdentityClaims are the claims of an identity token issued after a phone number is verified.
// Subject is the identity UID.
type IdentityClaims struct {
	jwt.RegisteredClaims
	PhoneNumber string `json:"phone_number"`
}

// TokenProvider issues and validates identity JWTs (RS256 or ES256).
// A provider built with a nil private key can only validate.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	ttl        time.Duration
	clock      clockwork.Clock
}

// NewTokenProvider returns a TokenProvider that signs with privateKey and validates with publicKey.
// A nil clock means the real clock.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration, clock clockwork.Clock) *TokenProvider {
	if publicKey == nil && privateKey != nil {
		publicKey = privateKey.Public()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
		clock:      clock,
	}
}

// NewTokenProviderFromPEM builds a provider from PEM key material, each given inline or as a file path.
// privatePEM may be empty for a validate-only provider.
func NewTokenProviderFromPEM(privatePEM, publicPEM, issuer, audience string, ttl time.Duration, clock clockwork.Clock) (*TokenProvider, error) {
	var (
		signer crypto.Signer
		pub    crypto.PublicKey
		err    error
	)
	if privatePEM != "" {
		if signer, err = parseSigner(privatePEM); err != nil {
			return nil, err
		}
	}
	if publicPEM != "" {
		if pub, err = parseVerifyKey(publicPEM); err != nil {
			return nil, err
		}
	}
	if signer == nil && pub == nil {
		return nil, ErrInvalidKey
	}
	return NewTokenProvider(signer, pub, issuer, audience, ttl, clock), nil
}

// NewEphemeralTokenProvider signs with a P-256 key generated on the spot.
// Its tokens stop validating once the process exits.
func NewEphemeralTokenProvider(issuer, audience string, ttl time.Duration, clock clockwork.Clock) (*TokenProvider, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(key, nil, issuer, audience, ttl, clock), nil
}

// PublicKey is the key Validate checks signatures against.
func (p *TokenProvider) PublicKey() crypto.PublicKey { return p.publicKey }

// Issue signs an identity token for uid and phone. Returns the token and its expiry.
func (p *TokenProvider) Issue(uid, phone string) (string, time.Time, error) {
	if p.privateKey == nil {
		return "", time.Time{}, ErrSigningDisabled
	}
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", time.Time{}, ErrInvalidKey
	}

	jti := make([]byte, 16)
	if _, err := rand.Read(jti); err != nil {
		return "", time.Time{}, err
	}
	now := p.clock.Now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        hex.EncodeToString(jti),
			Subject:   uid,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		PhoneNumber: phone,
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate checks signature, expiry, issuer and audience and returns the claims.
func (p *TokenProvider) Validate(tokenString string) (*IdentityClaims, error) {
	if p.publicKey == nil {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithTimeFunc(p.clock.Now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer || !slices.Contains([]string(claims.Audience), p.audience) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// readPEMBlock accepts inline PEM (literal "\n" from single-line env vars is expanded) or a file path.
func readPEMBlock(s string) (*pem.Block, error) {
	s = strings.TrimSpace(s)
	var raw []byte
	switch {
	case s == "":
		return nil, ErrInvalidKey
	case strings.HasPrefix(s, "-----BEGIN"):
		raw = []byte(strings.ReplaceAll(s, `\n`, "\n"))
	default:
		b, err := os.ReadFile(s)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}

func parseSigner(s string) (crypto.Signer, error) {
	block, err := readPEMBlock(s)
	if err != nil {
		return nil, err
	}
	var key any
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrInvalidKey
	}
	return signer, nil
}

func parseVerifyKey(s string) (crypto.PublicKey, error) {
	block, err := readPEMBlock(s)
	if err != nil {
		return nil, err
	}
	if block.Type == "RSA PUBLIC KEY" {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}
	if block.Type != "PUBLIC KEY" {
		return nil, ErrInvalidKey
	}
	return x509.ParsePKIXPublicKey(block.Bytes)
}
