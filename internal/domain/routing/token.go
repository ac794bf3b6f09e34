package routing

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors.
var (
	ErrTokenInvalid  = errors.New("stickiness token invalid")
	ErrTokenMismatch = errors.New("stickiness token issued for a different session")
)

// stickinessClaims binds a token to one session on one instance.
type stickinessClaims struct {
	Instance string `json:"inst"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies stickiness tokens. The token travels
// with the client (query parameter on the VNC URLs) and proves the
// holder was handed this session by /start.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer. An empty secret gets a random one,
// which is fine for a single instance but means tokens do not verify
// across a fleet; deployments set STICKINESS_SECRET.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	key := []byte(secret)
	if len(key) == 0 {
		buf := make([]byte, 32)
		rand.Read(buf)
		key = []byte(base64.StdEncoding.EncodeToString(buf))
	}
	return &TokenIssuer{secret: key, ttl: ttl}
}

// Mint creates a stickiness token for a session.
func (i *TokenIssuer) Mint(sessionID, instance string) (string, error) {
	now := time.Now()
	claims := stickinessClaims{
		Instance: instance,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign stickiness token: %w", err)
	}
	return signed, nil
}

// Verify checks a token and confirms it was minted for sessionID.
// Returns the instance recorded in the token.
func (i *TokenIssuer) Verify(tokenString, sessionID string) (string, error) {
	var claims stickinessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrTokenInvalid
	}

	if claims.Subject != sessionID {
		return "", ErrTokenMismatch
	}

	return claims.Instance, nil
}
