package api

import (
	"crypto"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AccessTokenCookie carries the signed access token between
	// requests.
	AccessTokenCookie = "access_token"

	principalContextKey = "giftbox-principal"
)

type JWT struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

func ParseAndValidateJWT(tokenString string, secret crypto.Signer) (*JWT, error) {
	const op = "ParseJWT"
	token, err := jwt.ParseWithClaims(tokenString, &JWT{}, func(token *jwt.Token) (interface{}, error) {
		return secret.Public(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: token is invalid", op)
	}
	claims, ok := token.Claims.(*JWT)
	if !ok {
		return nil, fmt.Errorf("%s: token claims are invalid", op)
	}
	return claims, nil
}

// Principal is the authenticated identity behind a request.
type Principal struct {
	ID      uuid.UUID
	Email   string
	Name    string
	IsAdmin bool
}

// RequireAuth rejects the request with 401 before any handler work when
// no valid access token is present, otherwise it stores the Principal
// in the gin context.
func (impl *ServerImpl) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "RequireAuth"
		tokenString, _ := c.Cookie(AccessTokenCookie)
		if tokenString == "" {
			// fallback for non-browser clients
			if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
				tokenString = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		token, err := ParseAndValidateJWT(tokenString, impl.config.Auth.PrivateKey)
		if err != nil {
			slog.Warn("Fail to parse and validate JWT", slog.String("op", op), slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		userID, err := uuid.Parse(token.Subject)
		if err != nil {
			slog.Warn("Token subject is not a user id", slog.String("op", op), slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		c.Set(principalContextKey, Principal{
			ID:      userID,
			Email:   token.Email,
			Name:    token.Name,
			IsAdmin: token.IsAdmin,
		})
		c.Next()
	}
}

// CurrentPrincipal returns the principal RequireAuth stored for this
// request.
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return Principal{}, false
	}
	principal, ok := v.(Principal)
	return principal, ok
}
