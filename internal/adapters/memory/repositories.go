// Package memory provides in-memory implementations of the service ports for
// unit/contract tests and broker-less local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/domain"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

type Repositories struct {
	Requests *RequestRepository
	Outbox   *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Requests: &RequestRepository{rowsByID: map[uuid.UUID]domain.Request{}},
		Outbox:   &OutboxRepository{},
	}
}

type RequestRepository struct {
	mu       sync.Mutex
	rowsByID map[uuid.UUID]domain.Request
}

func (r *RequestRepository) Create(_ context.Context, row domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rowsByID[row.RequestID]; ok {
		return domain.ErrConflict
	}
	r.rowsByID[row.RequestID] = row
	return nil
}

func (r *RequestRepository) GetByID(_ context.Context, requestID uuid.UUID) (domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rowsByID[requestID]
	if !ok {
		return domain.Request{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *RequestRepository) MarkConfirmed(_ context.Context, requestID uuid.UUID, at time.Time) error {
	return r.mutate(requestID, func(row *domain.Request) {
		row.Status = domain.StatusConfirmed
		row.ConfirmedAt = &at
	})
}

func (r *RequestRepository) MarkFailed(_ context.Context, requestID uuid.UUID) error {
	return r.mutate(requestID, func(row *domain.Request) {
		row.Status = domain.StatusFailed
	})
}

func (r *RequestRepository) MarkCompleted(_ context.Context, requestID uuid.UUID, at time.Time) error {
	return r.mutate(requestID, func(row *domain.Request) {
		row.Status = domain.StatusCompleted
		row.CompletedAt = &at
	})
}

func (r *RequestRepository) ResetToPending(_ context.Context, requestID uuid.UUID, dispatchedAt time.Time) error {
	return r.mutate(requestID, func(row *domain.Request) {
		row.Status = domain.StatusPending
		row.CreatedAt = dispatchedAt
		row.ConfirmedAt = nil
		row.CompletedAt = nil
	})
}

func (r *RequestRepository) Delete(_ context.Context, requestID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rowsByID[requestID]; !ok {
		return false, nil
	}
	delete(r.rowsByID, requestID)
	return true, nil
}

func (r *RequestRepository) List(_ context.Context, filter ports.RequestFilter, sortBy ports.RequestSort, page, perPage int) ([]domain.Request, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]domain.Request, 0, len(r.rowsByID))
	for _, row := range r.rowsByID {
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		if filter.ActionType != nil && row.ActionType != *filter.ActionType {
			continue
		}
		if filter.Email != "" && row.RequesterEmail != strings.ToLower(filter.Email) {
			continue
		}
		if filter.EmailContains != "" && !strings.Contains(row.RequesterEmail, strings.ToLower(filter.EmailContains)) {
			continue
		}
		items = append(items, row)
	}

	sort.SliceStable(items, func(i, j int) bool {
		var less bool
		switch sortBy.Field {
		case ports.SortFieldEmail:
			less = items[i].RequesterEmail < items[j].RequesterEmail
		case ports.SortFieldStatus:
			less = items[i].Status < items[j].Status
		default:
			less = items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		if sortBy.Descending {
			return !less
		}
		return less
	})

	total := int64(len(items))
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil, total, nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return append([]domain.Request(nil), items[start:end]...), total, nil
}

func (r *RequestRepository) mutate(requestID uuid.UUID, apply func(*domain.Request)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rowsByID[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	apply(&row)
	r.rowsByID[requestID] = row
	return nil
}

// OutboxRepository keeps enqueued events in order. FailEnqueue simulates a
// broken dispatch path for notification-failure tests.
type OutboxRepository struct {
	mu          sync.Mutex
	rows        []ports.OutboxEvent
	FailEnqueue error
}

func (r *OutboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailEnqueue != nil {
		return r.FailEnqueue
	}
	r.rows = append(r.rows, event)
	return nil
}

func (r *OutboxRepository) ClaimUnpublished(_ context.Context, limit int, _ string, _ time.Time) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.rows)
	if limit > 0 && n > limit {
		n = limit
	}
	records := make([]ports.OutboxRecord, 0, n)
	for _, event := range r.rows[:n] {
		records = append(records, ports.OutboxRecord{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      event.Payload,
			CreatedAt:    event.OccurredAt,
		})
	}
	return records, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, _ string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, event := range r.rows {
		if event.EventID == outboxID {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, _ uuid.UUID, _, _ string, _ time.Time) error {
	return nil
}

func (r *OutboxRepository) MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.MarkPublished(ctx, outboxID, claimToken, at)
}

// Events returns a copy of the still-unpublished events, oldest first.
func (r *OutboxRepository) Events() []ports.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.OutboxEvent(nil), r.rows...)
}
