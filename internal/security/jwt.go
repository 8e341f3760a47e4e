package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aq2208/gstore-api/internal/usecase"
)

// Claims carried by every access token. Roles hold "admin" for administrators.
type Claims struct {
	UserName string   `json:"userName"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type JWTOptions struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
	Leeway   time.Duration
}

// JWT issues and verifies HS256 tokens.
type JWT struct {
	opts JWTOptions
	now  func() time.Time
}

func NewJWT(opts JWTOptions) (*JWT, error) {
	if len(opts.Secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Leeway == 0 {
		opts.Leeway = 30 * time.Second // small clock skew
	}
	return &JWT{opts: opts, now: time.Now}, nil
}

func (j *JWT) Issue(username string, roles []string) (usecase.Token, error) {
	now := j.now()
	exp := now.Add(j.opts.TTL)
	claims := Claims{
		UserName: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.opts.Issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if j.opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.opts.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.opts.Secret))
	if err != nil {
		return usecase.Token{}, fmt.Errorf("sign token: %w", err)
	}
	return usecase.Token{Value: signed, ExpiresAt: exp.UTC()}, nil
}

// Parse verifies signature, time claims, issuer and audience.
func (j *JWT) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(j.opts.Leeway),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	}
	if j.opts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.opts.Issuer))
	}
	if j.opts.Audience != "" {
		opts = append(opts, jwt.WithAudience(j.opts.Audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(j.opts.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.UserName == "" {
		return nil, errors.New("token has no userName claim")
	}
	return &claims, nil
}

var _ usecase.TokenIssuer = (*JWT)(nil)
