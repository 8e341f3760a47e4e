package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/security"
)

const (
	claimsKey = "auth.claims"
	userIDKey = "auth.user_id"
)

type TokenParser interface {
	Parse(raw string) (*security.Claims, error)
}

type UserResolver interface {
	ResolveUserID(ctx context.Context, username string) (int64, error)
}

type Authz struct {
	tokens TokenParser
	users  UserResolver
}

func NewAuthz(tokens TokenParser, users UserResolver) *Authz {
	return &Authz{tokens: tokens, users: users}
}

// Authenticate checks the bearer token and resolves the caller's user id.
func (a *Authz) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		claims, err := a.tokens.Parse(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			logging.From(c).Debug("token rejected", "err", err)
			unauth(c, "invalid_token", "invalid jwt")
			return
		}

		uid, err := a.users.ResolveUserID(c.Request.Context(), claims.UserName)
		if errors.Is(err, entity.ErrUnauthorized) {
			unauth(c, "invalid_token", "unknown user")
			return
		}
		if err != nil {
			logging.From(c).Error("resolve user", "user", claims.UserName, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "internal server error"})
			return
		}

		c.Set(claimsKey, claims)
		c.Set(userIDKey, uid)
		logging.With(c, logging.From(c).With("user", claims.UserName))
		c.Next()
	}
}

// Require ensures the authenticated caller holds every role.
func (a *Authz) Require(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}
		for _, r := range roles {
			if !claims.HasRole(r) {
				forbidden(c, "insufficient_scope", "missing required role")
				return
			}
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) (*security.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*security.Claims)
	return claims, ok && claims != nil
}

// UserID is the caller resolved by Authenticate, 0 on public routes.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code, "message": desc})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code, "message": desc})
}
