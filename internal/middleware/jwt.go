package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionKey is the gin context key holding the plan session id.
const SessionKey = "session_id"

// renewWithin is how close to expiry a token gets before a fresh one is
// handed back in X-New-Token.
const renewWithin = 24 * time.Hour

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token that grants access to one plan session.
func IssueToken(secret []byte, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString(secret)
}

// ParseToken validates a token and returns its session id and expiry.
func ParseToken(secret []byte, raw string) (string, time.Time, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", time.Time{}, err
	}
	if !token.Valid || claims.SessionID == "" {
		return "", time.Time{}, errors.New("token carries no session")
	}
	return claims.SessionID, claims.ExpiresAt.Time, nil
}

// SessionAuth requires a bearer token and exposes its session id under
// SessionKey.
func SessionAuth(secret []byte, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		sid, exp, err := ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(SessionKey, sid)

		if time.Until(exp) < renewWithin {
			if fresh, err := IssueToken(secret, sid, ttl); err == nil {
				c.Header("X-New-Token", fresh)
			}
		}

		c.Next()
	}
}
