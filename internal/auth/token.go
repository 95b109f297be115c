package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quiz-runner/internal/domain"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carries the identity of a quiz taker. Both sub and role are required.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authority issues and verifies HS256 tokens with one shared secret.
type Authority struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthority builds an authority. ttl <= 0 issues tokens without expiry.
func NewAuthority(secret string, ttl time.Duration) *Authority {
	return &Authority{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a token for subject with role.
func (a *Authority) Issue(subject, role string) (string, error) {
	if subject == "" || role == "" {
		return "", fmt.Errorf("%w: subject and role are required", domain.ErrInvalidConfiguration)
	}
	now := a.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses a token and returns the credential it grants.
func (a *Authority) Verify(token string) (domain.Credential, error) {
	if token == "" {
		return domain.Credential{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return domain.Credential{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.Role == "" {
		return domain.Credential{}, ErrInvalidToken
	}
	return domain.Credential{Token: token, Subject: claims.Subject, Role: claims.Role}, nil
}

// Inspect reads the identity of a token without checking its signature.
// Clients use it to label results; servers must call Verify.
func Inspect(token string) (domain.Credential, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return domain.Credential{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return domain.Credential{}, ErrInvalidToken
	}
	return domain.Credential{Token: token, Subject: claims.Subject, Role: claims.Role}, nil
}
