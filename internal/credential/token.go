package credential

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec encodes user ids into signed, expiring access tokens and
// decodes them back. Decode never returns a wrong id: any tampering,
// expiry or malformation yields an error.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenCodec constructs a TokenCodec with the given HMAC secret and
// token lifetime.
func NewTokenCodec(secret, issuer string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Encode issues a signed access token carrying userID.
func (c *TokenCodec) Encode(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("credential: sign token: %w", err)
	}
	return signed, nil
}

// Decode extracts the user id from an access token. It fails on expiry,
// corruption, or a mismatched signature.
func (c *TokenCodec) Decode(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("credential: unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithIssuer(c.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("credential: parse token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, fmt.Errorf("credential: token missing subject")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("credential: token subject: %w", err)
	}
	return id, nil
}
