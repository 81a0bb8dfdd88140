package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"shop-orders/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 bearer tokens and turns them into a Principal.
type JWTVerifier struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTVerifier(secret string, ttl time.Duration) *JWTVerifier {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTVerifier{secret: []byte(secret), ttl: ttl}
}

func (v *JWTVerifier) Verify(token string) (models.Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Principal{}, errors.Wrap(ErrInvalidToken, err.Error())
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return models.Principal{}, errors.Wrapf(ErrInvalidToken, "bad subject %q", claims.Subject)
	}
	switch claims.Role {
	case models.RoleCustomer, models.RoleVendor:
	default:
		return models.Principal{}, errors.Wrapf(ErrInvalidToken, "unknown role %q", claims.Role)
	}
	return models.Principal{SubjectID: uint(id), Role: claims.Role}, nil
}

// Issue signs a token for p. Only seed tooling and tests mint tokens.
func (v *JWTVerifier) Issue(p models.Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(p.SubjectID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
