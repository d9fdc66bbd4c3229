package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viralforge/privacy-requests-service/internal/domain"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

type requestRepository struct {
	db *gorm.DB
}

func (r *requestRepository) Create(ctx context.Context, row domain.Request) error {
	rec := toRequestModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (domain.Request, error) {
	var rec privacyRequestModel
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Request{}, domain.ErrNotFound
		}
		return domain.Request{}, err
	}
	return toDomainRequest(rec), nil
}

func (r *requestRepository) MarkConfirmed(ctx context.Context, requestID uuid.UUID, at time.Time) error {
	return r.updateStatus(ctx, requestID, map[string]any{
		"status":       string(domain.StatusConfirmed),
		"confirmed_at": at,
	})
}

func (r *requestRepository) MarkFailed(ctx context.Context, requestID uuid.UUID) error {
	return r.updateStatus(ctx, requestID, map[string]any{
		"status": string(domain.StatusFailed),
	})
}

func (r *requestRepository) MarkCompleted(ctx context.Context, requestID uuid.UUID, at time.Time) error {
	return r.updateStatus(ctx, requestID, map[string]any{
		"status":       string(domain.StatusCompleted),
		"completed_at": at,
	})
}

func (r *requestRepository) ResetToPending(ctx context.Context, requestID uuid.UUID, dispatchedAt time.Time) error {
	return r.updateStatus(ctx, requestID, map[string]any{
		"status":       string(domain.StatusPending),
		"created_at":   dispatchedAt,
		"confirmed_at": nil,
		"completed_at": nil,
	})
}

func (r *requestRepository) Delete(ctx context.Context, requestID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("request_id = ?", requestID).Delete(&privacyRequestModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *requestRepository) List(ctx context.Context, filter ports.RequestFilter, sort ports.RequestSort, page, perPage int) ([]domain.Request, int64, error) {
	query := r.db.WithContext(ctx).Model(&privacyRequestModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.ActionType != nil {
		query = query.Where("action_type = ?", string(*filter.ActionType))
	}
	if filter.Email != "" {
		query = query.Where("requester_email = ?", strings.ToLower(filter.Email))
	}
	if filter.EmailContains != "" {
		query = query.Where("requester_email ILIKE ? ESCAPE '\\'", "%"+escapeLikePattern(filter.EmailContains)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Sort fields are whitelisted; anything else orders by dispatch time.
	field := sort.Field
	switch field {
	case ports.SortFieldEmail, ports.SortFieldStatus, ports.SortFieldCreatedAt:
	default:
		field = ports.SortFieldCreatedAt
	}
	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}

	var rows []privacyRequestModel
	if err := query.
		Order(field + " " + direction).
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]domain.Request, 0, len(rows))
	for _, rec := range rows {
		items = append(items, toDomainRequest(rec))
	}
	return items, total, nil
}

// escapeLikePattern neutralizes LIKE wildcards in user-supplied search text
// so a literal % or _ cannot widen the match.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func (r *requestRepository) updateStatus(ctx context.Context, requestID uuid.UUID, changes map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&privacyRequestModel{}).
		Where("request_id = ?", requestID).
		Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
