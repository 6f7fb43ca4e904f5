package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenLifetime is how long an issued token stays valid.
const TokenLifetime = 3600 * time.Second

var (
	// ErrTokenExpired means the token was well-formed and correctly signed
	// but past its lifetime.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers malformed tokens and signature failures.
	ErrTokenInvalid = errors.New("token invalid")
)

var tokenSecret []byte

// InitTokenService sets the process-wide signing secret. When secret is empty
// a random one is generated, which invalidates all outstanding tokens on
// every restart — set JWT_SECRET in production.
func InitTokenService(secret string) {
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatal("Failed to generate token secret:", err)
		}
		secret = hex.EncodeToString(buf)
	}
	tokenSecret = []byte(secret)
}

// IssueToken produces a signed token embedding the account ID and issuance time.
func IssueToken(accountID uuid.UUID) (string, error) {
	if tokenSecret == nil {
		return "", errors.New("token service not initialized")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenSecret)
}

// ValidateToken verifies the signature and lifetime of a token and returns
// the embedded account ID. Expired tokens yield ErrTokenExpired; anything
// else wrong yields ErrTokenInvalid.
func ValidateToken(tokenString string) (uuid.UUID, error) {
	if tokenSecret == nil {
		return uuid.Nil, errors.New("token service not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return tokenSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, ErrTokenInvalid
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}

	return accountID, nil
}
