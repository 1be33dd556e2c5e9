package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSubject rejects an issuance request whose payload has no user id.
var ErrMissingSubject = errors.New("user data required")

// SessionTTLSeconds is the fixed lifetime of every issued session token.
const SessionTTLSeconds = 3600

// SessionPayload is the principal-shaped input to token issuance. Only ID is
// mandatory.
type SessionPayload struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email,omitempty"`
	Phone        string                 `json:"phone,omitempty"`
	Role         string                 `json:"role,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// Issuer mints signed, time-bounded session tokens. Signing is stateless;
// validity later is purely signature plus expiry, with no revocation list.
type Issuer struct {
	secret []byte
	issuer string
}

func NewIssuer(secret, issuer string) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer}
}

func (i *Issuer) Issue(payload SessionPayload) (string, error) {
	if payload.ID == "" {
		return "", ErrMissingSubject
	}

	role := payload.Role
	if role == "" {
		role = "authenticated"
	}

	userMetadata := payload.UserMetadata
	if userMetadata == nil {
		userMetadata = map[string]interface{}{}
	}

	now := time.Now()
	claims := SessionClaims{
		Email:        payload.Email,
		Phone:        payload.Phone,
		Role:         role,
		UserMetadata: userMetadata,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   payload.ID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTLSeconds * time.Second)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}
