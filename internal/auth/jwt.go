// Package auth verifies the bearer tokens of the callable surface.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const claimsKey = "auth.claims"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims identifies the caller of an authenticated request.
type Claims struct {
	Subject string
	Role    string
}

// Verifier checks HS256 tokens against a shared secret.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewVerifier creates a Verifier. Issuer and audience are only enforced when set.
func NewVerifier(secret, issuer, audience string, leeway time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret must not be empty")
	}
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		leeway:   leeway,
	}, nil
}

// Verify parses and validates tokenString.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}
	sub, _ := mapClaims.GetSubject()
	if sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role, _ := mapClaims["role"].(string)

	return &Claims{Subject: sub, Role: role}, nil
}

// Sign issues a token for subject, valid for ttl. Used by the operator CLI
// and tests.
func (v *Verifier) Sign(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"role": role,
	}
	if v.issuer != "" {
		claims["iss"] = v.issuer
	}
	if v.audience != "" {
		claims["aud"] = v.audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Middleware rejects requests without a valid bearer token with the callable
// protocol's UNAUTHENTICATED envelope.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var claims *Claims
			if claims, err = v.Verify(tokenString); err == nil {
				c.Set(claimsKey, claims)
				c.Next()
				return
			}
		}

		slog.Warn("[Auth] Rejected request", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"status":  "UNAUTHENTICATED",
				"message": "The function must be called while authenticated.",
			},
		})
	}
}

// FromContext returns the claims stored by Middleware.
func FromContext(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func bearerToken(header string) (string, error) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
