// Package auth verifies bearer tokens and turns them into caller identities.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Egor213/JewelCRM/internal/domain"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

const defaultIssuer = "jewelcrm"

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator resolves a bearer token into a verified identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	jwtlib.RegisteredClaims
}

type JWTAuthenticator struct {
	secret []byte
	issuer string
}

func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer}
}

// GenerateToken issues an HS256 token for id valid for ttl.
func (a *JWTAuthenticator) GenerateToken(id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    id.UserID,
		SessionID: id.SessionID,
		Email:     id.Email,
		Role:      string(id.Role),
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, ErrMissingToken
	}

	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return a.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithIssuer(a.issuer),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Identity{}, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return domain.Identity{}, ErrInvalidToken
	}

	return domain.Identity{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Email:     claims.Email,
		Role:      domain.Role(claims.Role),
	}, nil
}
