package postgres

import "github.com/viralforge/privacy-requests-service/internal/domain"

func toDomainRequest(rec privacyRequestModel) domain.Request {
	return domain.Request{
		RequestID:       rec.RequestID,
		RequesterEmail:  rec.RequesterEmail,
		RequesterUserID: rec.RequesterUserID,
		ActionType:      domain.ActionType(rec.ActionType),
		Status:          domain.Status(rec.Status),
		CreatedAt:       rec.CreatedAt,
		ConfirmedAt:     rec.ConfirmedAt,
		CompletedAt:     rec.CompletedAt,
	}
}

func toRequestModel(row domain.Request) privacyRequestModel {
	return privacyRequestModel{
		RequestID:       row.RequestID,
		RequesterEmail:  row.RequesterEmail,
		RequesterUserID: row.RequesterUserID,
		ActionType:      string(row.ActionType),
		Status:          string(row.Status),
		CreatedAt:       row.CreatedAt,
		ConfirmedAt:     row.ConfirmedAt,
		CompletedAt:     row.CompletedAt,
	}
}
