package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

var errUnauthenticated = errors.New("unauthenticated")

// Verify validates a bearer Authorization header value and, when repo is
// set, that the token was issued after the user's last logout or password
// change.
func Verify(ctx context.Context, tokens TokenService, repo *Repo, header string) (*Claims, error) {
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, errUnauthenticated
	}

	claims, err := tokens.Parse(strings.TrimSpace(header[len("Bearer "):]))
	if err != nil {
		return nil, err
	}
	if repo != nil {
		u, err := repo.GetByID(ctx, claims.UserID)
		if err != nil || u == nil || u.TokenVersion != claims.TokenVersion {
			return nil, errUnauthenticated
		}
		// role changes apply without a new login
		claims.Role = u.Role
	}
	return claims, nil
}

// HasRole reports whether claims carry one of roles.
func HasRole(claims *Claims, roles ...Role) bool {
	return claims != nil && slices.Contains(roles, claims.Role)
}

func authenticate(c *gin.Context, tokens TokenService, repo *Repo) (*Claims, error) {
	return Verify(c.Request.Context(), tokens, repo, c.GetHeader("Authorization"))
}

func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, tokens, repo)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, errUnauthenticated) && c.GetHeader("Authorization") == "" {
				msg = "missing bearer token"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := MustGetClaims(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		if !HasRole(claims, roles...) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
