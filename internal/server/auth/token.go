// Package auth issues and introspects bearer tokens and gates reads of
// DID-owned records on the key declared in the DID document.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ownyourdata/semcon/internal/common"
)

// Claims are the token claims issued by the /oauth/token endpoint. The
// public key bound to the client credentials travels inside the token so
// the gate can recover it without another lookup.
type Claims struct {
	jwt.RegisteredClaims
	PublicKey string `json:"public_key,omitempty"`
}

// GenerateToken issues an HS256 token for clientID, valid for ttl.
func GenerateToken(secret []byte, clientID, publicKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		PublicKey: publicKey,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Introspect validates tokenString and returns its claims.
// common.ErrUnauthorized covers every validation failure: bad signature,
// expiry, malformed input.
func Introspect(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, common.ErrUnauthorized
	}
	return claims, nil
}
