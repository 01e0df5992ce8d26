package service

import (
	"errors"
	"time"

	"photoquest/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator issues and verifies access tokens.
type Authenticator interface {
	IssueToken(p domain.Principal) (string, error)
	VerifyToken(token string) (domain.Principal, error)
}

type claims struct {
	UserID int64       `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthenticator signs HS256 tokens with a secret given at construction.
type JWTAuthenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTAuthenticator(secret string, ttl time.Duration) (*JWTAuthenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTAuthenticator{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (a *JWTAuthenticator) IssueToken(p domain.Principal) (string, error) {
	now := a.now()
	c := claims{
		UserID: p.UserID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

func (a *JWTAuthenticator) VerifyToken(token string) (domain.Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Principal{}, domain.Unauthorized("invalid token")
	}
	if c.UserID == 0 {
		return domain.Principal{}, domain.Unauthorized("token has no user")
	}
	if c.Role != domain.RoleAdmin && c.Role != domain.RoleUser {
		return domain.Principal{}, domain.Unauthorized("token has unknown role")
	}
	return domain.Principal{UserID: c.UserID, Role: c.Role}, nil
}
