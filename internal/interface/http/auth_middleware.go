package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// tokenVerifier checks HS256 bearer tokens issued for API clients.
type tokenVerifier struct {
	secret []byte
}

func newTokenVerifier(secret string) *tokenVerifier {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &tokenVerifier{secret: []byte(secret)}
}

func (v *tokenVerifier) verify(token string) (jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return jwt.RegisteredClaims{}, err
	}
	if !parsed.Valid {
		return jwt.RegisteredClaims{}, errors.New("token invalid")
	}
	return claims, nil
}

// authMiddleware rejects requests without a valid bearer token. A nil verifier disables the check.
func authMiddleware(verifier *tokenVerifier) gin.HandlerFunc {
	if verifier == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing authorization header", nil))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid authorization header", nil))
			return
		}
		claims, err := verifier.verify(strings.TrimSpace(parts[1]))
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusForbidden, "invalid_token", errMessage(err), err))
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}
