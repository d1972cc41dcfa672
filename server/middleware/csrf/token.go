package csrf

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// DefaultExpiry is the validity window used when none is configured.
const DefaultExpiry = 60 * time.Second

const (
	keySize = 32
	keyInfo = "x-csrf-jwt hs256 signing key"
)

// Claims is the payload of a CSRF token. The window is [IssuedAt, ExpiresAt).
type Claims struct {
	jwt.RegisteredClaims
}

// window is the length in seconds of the validity window the token was
// issued with.
func (c *Claims) window() int64 {
	if c.IssuedAt == nil || c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Unix() - c.IssuedAt.Unix()
}

// Signer issues and validates HS256 CSRF tokens. It holds no mutable
// state and is safe for concurrent use.
type Signer struct {
	key []byte
}

// NewSigner derives the signing key from secret.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("csrf: derive signing key: %w", err)
	}

	return &Signer{key: key}, nil
}

// Issue creates a token valid for expiry starting at now. Timestamps are
// kept at second precision; a non-positive or sub-second expiry falls back
// to DefaultExpiry.
func (s *Signer) Issue(now time.Time, expiry time.Duration) (string, error) {
	expiry = expiry.Truncate(time.Second)
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	issuedAt := jwt.NewNumericDate(now)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  issuedAt,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(expiry)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("csrf: sign token: %w", err)
	}
	return token, nil
}

// Validate checks a presented token at time now. It returns nil on accept,
// otherwise an error wrapping ErrMalformed, ErrBadSignature or ErrExpired,
// checked in that order.
func (s *Signer) Validate(now time.Time, token string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	// Header and claims must decode before the signature is looked at.
	var shape Claims
	if _, _, err := parser.ParseUnverified(token, &shape); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if shape.window() <= 0 {
		return fmt.Errorf("%w: missing or inverted iat/exp", ErrMalformed)
	}

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		// An undecodable signature segment lands here as ErrTokenMalformed,
		// since header and claims already parsed above.
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
}

// CheckDoubleSubmit compares the carrier copy of a token with the copy
// echoed in a request header.
func CheckDoubleSubmit(carrier, header string) error {
	if subtle.ConstantTimeCompare([]byte(carrier), []byte(header)) != 1 {
		return ErrMismatch
	}
	return nil
}

// IssueToken is the functional form of Signer.Issue.
func IssueToken(secret []byte, now time.Time, expirySeconds int) (string, error) {
	s, err := NewSigner(secret)
	if err != nil {
		return "", err
	}
	return s.Issue(now, time.Duration(expirySeconds)*time.Second)
}

// ValidateToken is the functional form of Signer.Validate.
func ValidateToken(secret []byte, now time.Time, token string) error {
	s, err := NewSigner(secret)
	if err != nil {
		return err
	}
	return s.Validate(now, token)
}
