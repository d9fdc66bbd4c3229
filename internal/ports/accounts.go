package ports

import (
	"context"

	"github.com/google/uuid"
)

// AccountResolver maps a requester email to a known account, when one exists.
// Returning (nil, nil) means the request is anonymous; resolution is an
// enrichment, never a validity requirement.
type AccountResolver interface {
	ResolveUserID(ctx context.Context, email string) (*uuid.UUID, error)
}
