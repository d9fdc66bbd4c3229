// Package security implements the signed confirmation-token codec.
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/domain"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

type confirmationClaims struct {
	Action string `json:"action"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ConfirmationTokenCodec signs HMAC tokens carrying the request id as the
// subject. The token is the only correlation round-tripped through the
// verification email, so signature and expiry failures map to domain errors
// the callbacks can treat as stale links.
type ConfirmationTokenCodec struct {
	secret []byte
	ttl    time.Duration
	nowFn  func() time.Time
}

func NewConfirmationTokenCodec(secret string, ttl time.Duration) (*ConfirmationTokenCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("confirmation token secret is required")
	}
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &ConfirmationTokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (c *ConfirmationTokenCodec) Sign(data ports.CorrelationData) (string, error) {
	now := c.nowFn()
	claims := confirmationClaims{
		Action: string(data.Action),
		Email:  data.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   data.RequestID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *ConfirmationTokenCodec) Verify(token string) (ports.CorrelationData, error) {
	var claims confirmationClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.nowFn() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.CorrelationData{}, domain.ErrTokenExpired
		}
		return ports.CorrelationData{}, fmt.Errorf("%w: invalid confirmation token", domain.ErrUnauthorized)
	}
	if !parsed.Valid {
		return ports.CorrelationData{}, fmt.Errorf("%w: invalid confirmation token", domain.ErrUnauthorized)
	}

	requestID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.CorrelationData{}, fmt.Errorf("%w: malformed token subject", domain.ErrUnauthorized)
	}
	action, err := domain.ParseActionType(claims.Action)
	if err != nil {
		return ports.CorrelationData{}, fmt.Errorf("%w: malformed token action", domain.ErrUnauthorized)
	}
	return ports.CorrelationData{
		RequestID: requestID,
		Action:    action,
		Email:     claims.Email,
	}, nil
}
