package ports

import (
	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/domain"
)

// CorrelationData is the opaque context round-tripped through the
// confirmation flow. The request id is the only correlation the core needs;
// the action type lets callbacks reject stale links after a request type is
// recycled.
type CorrelationData struct {
	RequestID uuid.UUID
	Action    domain.ActionType
	Email     string
}

// ConfirmationTokenCodec signs and verifies the confirmation tokens embedded
// in verification emails.
type ConfirmationTokenCodec interface {
	Sign(data CorrelationData) (string, error)
	// Verify returns ErrUnauthorized for tampered tokens and ErrTokenExpired
	// for aged-out ones.
	Verify(token string) (CorrelationData, error)
}
