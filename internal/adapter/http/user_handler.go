package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type IdentityService interface {
	Register(ctx context.Context, username, email, password string) (usecase.Token, error)
	Login(ctx context.Context, username, password string) (usecase.Token, error)
	Renew(ctx context.Context, username string) (usecase.Token, error)
	GrantAdmin(ctx context.Context, username string) error
	RevokeAdmin(ctx context.Context, username string) error
}

type UserHandler struct {
	identity IdentityService
}

func NewUserHandler(identity IdentityService) *UserHandler {
	return &UserHandler{identity: identity}
}

// Register handler (form or JSON): userName, email, password
func (h *UserHandler) Register(c *gin.Context) {
	var req registerReq
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	tok, err := h.identity.Register(ctx, req.UserName, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

// Login handler: wrong user name and wrong password answer the same way.
func (h *UserHandler) Login(c *gin.Context) {
	var req loginReq
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	tok, err := h.identity.Login(ctx, req.UserName, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

// RenewToken issues a fresh token for the caller, picking up role changes.
func (h *UserHandler) RenewToken(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		writeError(c, entity.ErrUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	tok, err := h.identity.Renew(ctx, claims.UserName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

func (h *UserHandler) MakeAdmin(c *gin.Context) {
	h.changeRole(c, h.identity.GrantAdmin)
}

func (h *UserHandler) RemoveAdmin(c *gin.Context) {
	h.changeRole(c, h.identity.RevokeAdmin)
}

func (h *UserHandler) changeRole(c *gin.Context, apply func(context.Context, string) error) {
	var req roleReq
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	if err := apply(ctx, req.UserName); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
