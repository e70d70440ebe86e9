// Package auth implements HMAC-SHA256 JWT issuance/verification and
// multi-tenant access checks for the Gateway Core.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by VerifyToken for a malformed or
// signature-invalid token.
var ErrInvalidToken = errors.New("auth: invalid token")

// ErrTokenExpired is returned by VerifyToken for a structurally valid
// token whose exp claim has passed.
var ErrTokenExpired = errors.New("auth: token expired")

// Claims is the JWT payload issued for a Nexis member.
type Claims struct {
	Subject    string `json:"sub"`
	MemberType string `json:"member_type"`
	TenantID   string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Config configures token issuance and verification.
type Config struct {
	Secret        []byte
	Issuer        string
	Audience      string
	ExpirySeconds int64
}

// NewConfig builds a Config with the spec default expiry of one hour.
func NewConfig(secret, issuer, audience string) Config {
	return Config{Secret: []byte(secret), Issuer: issuer, Audience: audience, ExpirySeconds: 3600}
}

// GenerateToken signs an HS256 token for sub/memberType, with no tenant
// claim.
func (c Config) GenerateToken(sub, memberType string) (string, error) {
	return c.GenerateTokenWithTenant(sub, memberType, "")
}

// GenerateTokenWithTenant signs an HS256 token carrying tenantID when
// non-empty.
func (c Config) GenerateTokenWithTenant(sub, memberType, tenantID string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Subject:    sub,
		MemberType: memberType,
		TenantID:   tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			Audience:  jwt.ClaimStrings{c.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(c.ExpirySeconds) * time.Second)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.Secret)
	if err != nil {
		return "", ErrInvalidToken
	}
	return signed, nil
}

// VerifyToken checks signature, issuer, and audience, distinguishing an
// expired token from every other validation failure.
func (c Config) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(c.Issuer),
		jwt.WithAudience(c.Audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}
