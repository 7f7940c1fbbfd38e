package uifeed

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long a minted subscriber token remains valid. This is a
// local, single-machine convenience (it lets a UI process reconnect without
// re-deriving the session ID from the control transport), not a security
// boundary against a hostile network.
const TokenTTL = 10 * time.Minute

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenMinter issues and verifies HS256 tokens scoped to one session ID.
type TokenMinter struct {
	secret []byte
}

func NewTokenMinter(secret []byte) *TokenMinter {
	return &TokenMinter{secret: secret}
}

// Mint issues a short-lived token naming sessionID, for a UI to present
// when subscribing to that session's feed.
func (m *TokenMinter) Mint(sessionID string) (string, error) {
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// SessionID validates tokenStr and returns the session ID it was minted for.
func (m *TokenMinter) SessionID(tokenStr string) (string, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return claims.SessionID, nil
}
