// README: Bearer tokens: HS256 JWT issuing and verification.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"moto/internal/apperr"
	"moto/internal/types"
)

var ErrInvalidToken = apperr.Unauthorized("invalid token")

// Verifier decodes a raw bearer credential into the caller's principal.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (types.Principal, error)
}

type Claims struct {
	Role types.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 tokens carrying {sub, role, iat, exp}.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

var _ Verifier = (*JWTIssuer)(nil)

func (j *JWTIssuer) Issue(p types.Principal) (string, time.Time, error) {
	if p.ID == "" || !p.Role.Valid() {
		return "", time.Time{}, errors.New("issue token: incomplete principal")
	}
	now := j.now()
	exp := now.Add(j.ttl)
	claims := &Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(p.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (j *JWTIssuer) Verify(_ context.Context, rawToken string) (types.Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(rawToken, &claims,
		func(*jwt.Token) (interface{}, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return types.Principal{}, ErrInvalidToken
	}
	return principalFor(types.ID(claims.Subject), claims.Role)
}

// Chain tries each verifier in order and returns the first success.
type Chain []Verifier

func (c Chain) Verify(ctx context.Context, rawToken string) (types.Principal, error) {
	for _, v := range c {
		if p, err := v.Verify(ctx, rawToken); err == nil {
			return p, nil
		}
	}
	return types.Principal{}, ErrInvalidToken
}

func principalFor(id types.ID, role types.Role) (types.Principal, error) {
	if id == "" {
		return types.Principal{}, ErrInvalidToken
	}
	switch role {
	case types.RoleRider:
		return types.RiderPrincipal(id), nil
	case types.RoleDriver:
		return types.DriverPrincipal(id), nil
	default:
		return types.Principal{}, ErrInvalidToken
	}
}
