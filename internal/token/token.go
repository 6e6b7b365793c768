package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/insport-app/auth-service/internal/identifier"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims binds a flow token to the identifier it was issued for and the last
// completed signup step. The token only proves a prior completion; the session
// store remains the source of truth for what is still live.
type Claims struct {
	IdentifierKind  string `json:"identifier_kind"`
	IdentifierValue string `json:"identifier_value"`
	Step            string `json:"step"`
	jwt.RegisteredClaims
}

// Identifier reconstructs the identifier the token was issued for.
func (c *Claims) Identifier() identifier.Identifier {
	return identifier.Identifier{
		Kind:  identifier.Kind(c.IdentifierKind),
		Value: c.IdentifierValue,
	}
}

// Signer issues and verifies HS256 flow tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Signer{secret: []byte(secret), ttl: ttl}, nil
}

func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue signs a flow token asserting that id has completed step.
func (s *Signer) Issue(id identifier.Identifier, step string) (string, error) {
	now := time.Now()
	claims := &Claims{
		IdentifierKind:  string(id.Kind),
		IdentifierValue: id.Value,
		Step:            step,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Value,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign flow token: %w", err)
	}
	return signed, nil
}

// Verify parses a flow token and returns its claims.
func (s *Signer) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
