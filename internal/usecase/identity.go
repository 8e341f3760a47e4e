package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aq2208/gstore-api/internal/entity"
)

// Identity registers users, checks credentials and issues tokens carrying role claims.
type Identity struct {
	users           UserRepo
	hasher          PasswordHasher
	tokens          TokenIssuer
	bootstrapAdmins map[string]struct{}
}

func NewIdentity(users UserRepo, hasher PasswordHasher, tokens TokenIssuer, bootstrapAdmins []string) *Identity {
	admins := make(map[string]struct{}, len(bootstrapAdmins))
	for _, name := range bootstrapAdmins {
		admins[strings.ToLower(name)] = struct{}{}
	}
	return &Identity{users: users, hasher: hasher, tokens: tokens, bootstrapAdmins: admins}
}

func (uc *Identity) Register(ctx context.Context, username, email, password string) (Token, error) {
	if username == "" || email == "" || password == "" {
		return Token{}, fmt.Errorf("%w: username, email and password are required", entity.ErrInvalidRequest)
	}
	hash, err := uc.hasher.Hash(password)
	if err != nil {
		return Token{}, err
	}
	u := &entity.User{Username: username, Email: email, PasswordHash: hash}
	if _, ok := uc.bootstrapAdmins[strings.ToLower(username)]; ok {
		u.Roles = []string{entity.RoleAdmin}
	}
	if err := uc.users.Create(ctx, u); err != nil {
		return Token{}, err
	}
	return uc.tokens.Issue(u.Username, u.Roles)
}

func (uc *Identity) Login(ctx context.Context, username, password string) (Token, error) {
	u, err := uc.users.GetByUsername(ctx, username)
	if errors.Is(err, entity.ErrNotFound) {
		return Token{}, fmt.Errorf("%w: invalid login", entity.ErrUnauthorized)
	}
	if err != nil {
		return Token{}, err
	}
	if err := uc.hasher.Compare(u.PasswordHash, password); err != nil {
		return Token{}, fmt.Errorf("%w: invalid login", entity.ErrUnauthorized)
	}
	return uc.tokens.Issue(u.Username, u.Roles)
}

// Renew issues a fresh token with the user's current roles.
func (uc *Identity) Renew(ctx context.Context, username string) (Token, error) {
	u, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return Token{}, err
	}
	return uc.tokens.Issue(u.Username, u.Roles)
}

func (uc *Identity) GrantAdmin(ctx context.Context, username string) error {
	u, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	return uc.users.AddRole(ctx, u.ID, entity.RoleAdmin)
}

func (uc *Identity) RevokeAdmin(ctx context.Context, username string) error {
	u, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	return uc.users.RemoveRole(ctx, u.ID, entity.RoleAdmin)
}

// ResolveUserID maps the username claim of a token to the stored user id.
func (uc *Identity) ResolveUserID(ctx context.Context, username string) (int64, error) {
	u, err := uc.users.GetByUsername(ctx, username)
	if errors.Is(err, entity.ErrNotFound) {
		return 0, fmt.Errorf("%w: unknown user %q", entity.ErrUnauthorized, username)
	}
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}
