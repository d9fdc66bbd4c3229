package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionType identifies which privacy workflow a request drives.
type ActionType string

const (
	ActionExport ActionType = "export_personal_data"
	ActionErase  ActionType = "remove_personal_data"
)

// ParseActionType validates a raw action name against the closed set of
// recognized workflows.
func ParseActionType(raw string) (ActionType, error) {
	switch ActionType(raw) {
	case ActionExport:
		return ActionExport, nil
	case ActionErase:
		return ActionErase, nil
	default:
		return "", fmt.Errorf("%w: unknown action type %q", ErrInvalidInput, raw)
	}
}

// Status is the lifecycle state of a privacy request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
)

// Event is a lifecycle trigger applied to a request.
type Event string

const (
	EventConfirm  Event = "confirm"
	EventFail     Event = "fail"
	EventComplete Event = "complete"
	EventResend   Event = "resend"
)

// transitions is the closed (status, event) -> status table. Anything absent
// here is illegal; callers decide whether an illegal transition is an error or
// a defensive no-op (stale confirmation callbacks are the latter).
var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventConfirm: StatusConfirmed,
		EventFail:    StatusFailed,
		EventResend:  StatusPending,
	},
	StatusConfirmed: {
		EventComplete: StatusCompleted,
		EventResend:   StatusPending,
	},
	StatusFailed: {
		EventResend: StatusPending,
	},
	StatusCompleted: {
		EventResend: StatusPending,
	},
}

// Transition resolves the next status for an event, or ErrIllegalTransition.
func Transition(from Status, event Event) (Status, error) {
	if next, ok := transitions[from][event]; ok {
		return next, nil
	}
	return "", fmt.Errorf("%w: %s on %s", ErrIllegalTransition, event, from)
}

// Request is a single user-initiated export or erasure workflow instance.
//
// ConfirmedAt is set exactly when the request reaches confirmed and survives
// completion; CompletedAt is set only on completed. A resend resets both and
// refreshes CreatedAt to the new dispatch time.
type Request struct {
	RequestID       uuid.UUID
	RequesterEmail  string
	RequesterUserID *uuid.UUID
	ActionType      ActionType
	Status          Status
	CreatedAt       time.Time
	ConfirmedAt     *time.Time
	CompletedAt     *time.Time
}
