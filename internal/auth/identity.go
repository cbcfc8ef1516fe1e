package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

var (
	ErrNoToken      = errors.New("no bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the authenticated caller. It is threaded explicitly into
// every core call; nothing below the HTTP layer reads ambient session
// state.
type Identity struct {
	UserID int64
	Role   string
}

func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

type claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken validates a signed token issued by the identity provider and
// extracts the identity embedded in it. Token issuance (login, register)
// is out of scope here.
func ParseToken(secret, raw string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if c.UserID == 0 {
		return Identity{}, ErrInvalidToken
	}
	role := c.Role
	if role == "" {
		role = RoleCustomer
	}
	return Identity{UserID: c.UserID, Role: role}, nil
}

// FromAuthorizationHeader extracts the identity from an
// "Authorization: Bearer <token>" header value.
func FromAuthorizationHeader(secret, header string) (Identity, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return Identity{}, ErrNoToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if raw == "" {
		return Identity{}, ErrNoToken
	}
	return ParseToken(secret, raw)
}

type contextKey struct{}

func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
