package postgres

import (
	"time"

	"github.com/google/uuid"
)

type privacyRequestModel struct {
	RequestID       uuid.UUID  `gorm:"column:request_id;type:uuid;primaryKey"`
	RequesterEmail  string     `gorm:"column:requester_email"`
	RequesterUserID *uuid.UUID `gorm:"column:requester_user_id"`
	ActionType      string     `gorm:"column:action_type"`
	Status          string     `gorm:"column:status"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	ConfirmedAt     *time.Time `gorm:"column:confirmed_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
}

func (privacyRequestModel) TableName() string { return "privacy_requests" }

type privacyOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (privacyOutboxModel) TableName() string { return "privacy_outbox" }
