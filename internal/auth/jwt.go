// Package auth validates the bearer tokens issued by the club's identity
// provider. Token issuance lives with the provider.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/pkg/middleware"
)

// Claims are the JWT claims of an access token. MemberID falls back to the
// standard subject claim and must be a UUID.
type Claims struct {
	MemberID string `json:"member_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Validator checks HS256-signed access tokens.
type Validator struct {
	secret []byte
	issuer string
}

// NewValidator creates a validator for secret. A non-empty issuer must match
// the token's iss claim.
func NewValidator(secret, issuer string) *Validator {
	return &Validator{secret: []byte(secret), issuer: issuer}
}

// Validate parses and validates tokenString and returns the caller identity.
// Tokens without a role are treated as USER tokens.
func (v *Validator) Validate(tokenString string) (*middleware.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid access token claims")
	}

	memberID := claims.MemberID
	if memberID == "" {
		memberID = claims.Subject
	}
	if memberID == "" {
		return nil, errors.New("access token has no member id")
	}
	if _, err := uuid.Parse(memberID); err != nil {
		return nil, fmt.Errorf("access token member id %q is not a uuid", memberID)
	}

	role := claims.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.IsValidRole(role) {
		return nil, fmt.Errorf("access token has unknown role %q", role)
	}

	return &middleware.Claims{MemberID: memberID, Role: role}, nil
}
