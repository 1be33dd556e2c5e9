package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is the uniform rejection for every verification failure.
// Callers must not learn whether a token was malformed, mis-signed, expired
// or missing its subject.
var ErrUnauthorized = errors.New("invalid or expired token")

// Verifier resolves a bearer token to a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// SessionClaims is the claim set of a locally issued session token.
type SessionClaims struct {
	Email        string                 `json:"email,omitempty"`
	Phone        string                 `json:"phone,omitempty"`
	Role         string                 `json:"role,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// LocalVerifier checks a token's HS256 signature and expiry against the
// configured secret and decodes its claims into a Principal.
type LocalVerifier struct {
	secret []byte
}

func NewLocalVerifier(secret string) *LocalVerifier {
	return &LocalVerifier{secret: []byte(secret)}
}

func (v *LocalVerifier) Verify(ctx context.Context, tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrUnauthorized
	}

	// A valid signature without a subject is still a hard rejection, not an
	// anonymous principal.
	if claims.Subject == "" {
		return nil, ErrUnauthorized
	}

	return principalFromClaims(claims), nil
}

func principalFromClaims(claims *SessionClaims) *Principal {
	principal := &Principal{
		ID:           claims.Subject,
		Email:        claims.Email,
		Phone:        claims.Phone,
		Role:         claims.Role,
		Audience:     "authenticated",
		AppMetadata:  claims.AppMetadata,
		UserMetadata: claims.UserMetadata,
	}
	if principal.Role == "" {
		principal.Role = "authenticated"
	}
	if len(claims.Audience) > 0 {
		principal.Audience = claims.Audience[0]
	}
	if principal.AppMetadata == nil {
		principal.AppMetadata = map[string]interface{}{}
	}
	if principal.UserMetadata == nil {
		principal.UserMetadata = map[string]interface{}{}
	}
	return principal
}

// Chain tries each verifier in order. A strategy failing just moves on to
// the next one; only exhausting the chain is a rejection.
type Chain struct {
	verifiers []Verifier
}

func NewChain(verifiers ...Verifier) *Chain {
	return &Chain{verifiers: verifiers}
}

func (c *Chain) Verify(ctx context.Context, token string) (*Principal, error) {
	for _, v := range c.verifiers {
		principal, err := v.Verify(ctx, token)
		if err == nil {
			return principal, nil
		}
	}
	return nil, ErrUnauthorized
}
