// Package signing issues short-lived tokens that authorise a single export
// download of a retained search run.
package signing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "timetable-sa"

var (
	ErrMissingSecret = errors.New("signing secret missing")
	ErrInvalidToken  = errors.New("invalid export token")
)

// ExportLink is what a token grants access to.
type ExportLink struct {
	RunID     string
	Format    string
	View      string
	Specialty string
	ExpiresAt time.Time
}

type exportClaims struct {
	Format    string `json:"fmt"`
	View      string `json:"view"`
	Specialty string `json:"spec,omitempty"`
	jwt.RegisteredClaims
}

// Signer creates and validates HS256 export tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer; a non-positive ttl defaults to 15 minutes.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Generate signs link; ExpiresAt is filled from the signer ttl.
func (s *Signer) Generate(link ExportLink) (string, time.Time, error) {
	if link.RunID == "" {
		return "", time.Time{}, fmt.Errorf("run id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)
	claims := exportClaims{
		Format:    link.Format,
		View:      link.View,
		Specialty: link.Specialty,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   link.RunID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign export token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates the signature, issuer and expiry of token.
func (s *Signer) Parse(token string) (*ExportLink, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}
	claims := &exportClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &ExportLink{
		RunID:     claims.Subject,
		Format:    claims.Format,
		View:      claims.View,
		Specialty: claims.Specialty,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
