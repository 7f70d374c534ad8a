// Package iam authenticates submitters. The gateway does not issue
// tokens; it verifies the application JWTs minted by the cluster's auth
// service and exposes the identity to the submission pipeline.
package iam

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hivegate/hivegate/pkg/hapi/schemas"
	"github.com/hivegate/hivegate/pkg/herr"
)

// TokenAudience is the expected audience claim for access tokens.
const TokenAudience = "hivegate"

// IAMService validates bearer tokens and resolves principals.
type IAMService struct {
	jwtSecret []byte
}

// NewIAMService returns a service verifying tokens with secret.
func NewIAMService(secret []byte) *IAMService {
	return &IAMService{jwtSecret: secret}
}

// ValidateToken verifies an application JWT and returns the submitter
// identity carried in its claims.
func (s *IAMService) ValidateToken(tokenString string) (*schemas.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, herr.New(herr.CodeUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, herr.Newf(herr.CodeUnauthorized, "invalid token")
	}

	if aud, _ := claims["aud"].(string); aud != TokenAudience {
		return nil, herr.Newf(herr.CodeUnauthorized, "invalid audience: expected %q, got %q", TokenAudience, aud)
	}

	username, _ := claims["sub"].(string)
	if username == "" {
		return nil, herr.Newf(herr.CodeUnauthorized, "token has no subject")
	}
	email, _ := claims["email"].(string)

	return &schemas.User{Username: username, Email: email}, nil
}
