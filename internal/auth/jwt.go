package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

type Claims struct {
	Role string `json:"role"`

	jwt.RegisteredClaims
}

// JWT verifies HS256 admin tokens. Tokens are minted outside the service with
// the shared secret and carry a role claim.
type JWT struct {
	Secret []byte
}

func (j JWT) Verify(token string) (Claims, error) {
	if len(j.Secret) == 0 {
		return Claims{}, errors.New("jwt secret is not configured")
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.Secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return *c, nil
}
