// internal/common/auth/jwt.go
package auth

import (
	"fmt"
	"time"

	apperrors "jelita/internal/common/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller as seen by service code.
type Principal struct {
	UserID   int64 `json:"id"`
	Role     Role  `json:"role"`
	OfficeID int64 `json:"opd_id"`
}

func (p Principal) Privileged() bool {
	return p.Role.Privileged()
}

func (p Principal) Can(c Capability) bool {
	return Allows(p.Role, c)
}

// Claims mirrors the token payload issued by the users service.
type Claims struct {
	UserID   int64  `json:"id"`
	Role     string `json:"role"`
	OfficeID *int64 `json:"opd_id,omitempty"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *TokenManager) Issue(p Principal) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		UserID: p.UserID,
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%d", p.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if p.OfficeID != 0 {
		office := p.OfficeID
		claims.OfficeID = &office
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates the token and resolves its principal. Tokens without an
// opd_id claim use the user id as the office id.
func (m *TokenManager) Parse(tokenString string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, apperrors.NewAuthenticationError(fmt.Sprintf("invalid token: %v", err))
	}
	if !token.Valid {
		return nil, apperrors.NewAuthenticationError("invalid token")
	}

	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, apperrors.NewAuthenticationError(err.Error())
	}

	p := &Principal{UserID: claims.UserID, Role: role, OfficeID: claims.UserID}
	if claims.OfficeID != nil {
		p.OfficeID = *claims.OfficeID
	}
	return p, nil
}
