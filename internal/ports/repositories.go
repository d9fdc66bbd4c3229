package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/domain"
)

// RequestFilter narrows a request listing. Nil/empty fields are ignored.
// Email matches the requester address exactly; EmailContains is the
// operator-facing substring search.
type RequestFilter struct {
	Status        *domain.Status
	ActionType    *domain.ActionType
	Email         string
	EmailContains string
}

// RequestSort orders a request listing. Field is validated by the repository
// against a whitelist; unknown fields fall back to created_at.
type RequestSort struct {
	Field      string
	Descending bool
}

const (
	SortFieldCreatedAt = "created_at"
	SortFieldEmail     = "requester_email"
	SortFieldStatus    = "status"
)

// RequestRepository persists privacy requests. Status mutators write the
// status column together with the matching timestamp column so the lifecycle
// invariants hold row by row.
type RequestRepository interface {
	Create(ctx context.Context, row domain.Request) error
	GetByID(ctx context.Context, requestID uuid.UUID) (domain.Request, error)
	MarkConfirmed(ctx context.Context, requestID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, requestID uuid.UUID) error
	MarkCompleted(ctx context.Context, requestID uuid.UUID, at time.Time) error
	// ResetToPending clears confirmed_at/completed_at and refreshes the
	// dispatch timestamp. Used only by resend.
	ResetToPending(ctx context.Context, requestID uuid.UUID, dispatchedAt time.Time) error
	// Delete reports whether a row was actually removed; deleting an unknown
	// id is not an error so bulk callers can tally counts.
	Delete(ctx context.Context, requestID uuid.UUID) (bool, error)
	List(ctx context.Context, filter RequestFilter, sort RequestSort, page, perPage int) ([]domain.Request, int64, error)
}

// OutboxEvent is a pending integration event written alongside domain state.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord is a claimed outbox row as seen by the publishing worker.
type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	CreatedAt    time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
