package postgres

import (
	"gorm.io/gorm"

	"github.com/viralforge/privacy-requests-service/internal/ports"
)

type Repositories struct {
	Requests ports.RequestRepository
	Outbox   ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Requests: &requestRepository{db: db},
		Outbox:   &outboxRepository{db: db},
	}
}
