package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/domain"
)

// JobProgress is the resumable cursor of one processing run. SourceNames pins
// the registry snapshot taken at the first step so mid-run registrations
// cannot shift indices.
type JobProgress struct {
	SourceIndex int      `json:"source_index"`
	PageIndex   int      `json:"page_index"`
	SourceNames []string `json:"source_names"`
}

// JobProgressStore holds per-request run cursors. Get returns nil when no run
// is in flight.
type JobProgressStore interface {
	Get(ctx context.Context, requestID uuid.UUID) (*JobProgress, error)
	Put(ctx context.Context, requestID uuid.UUID, progress JobProgress) error
	Clear(ctx context.Context, requestID uuid.UUID) error
}

// ExportBundleStore accumulates exported items for one request across steps,
// preserving append order.
type ExportBundleStore interface {
	Append(ctx context.Context, requestID uuid.UUID, items []domain.ExportItem) error
	Items(ctx context.Context, requestID uuid.UUID) ([]domain.ExportItem, error)
	Clear(ctx context.Context, requestID uuid.UUID) error
}

// ErasureReportStore accumulates eraser page results for one request.
type ErasureReportStore interface {
	Add(ctx context.Context, requestID uuid.UUID, page domain.ErasurePage) error
	Report(ctx context.Context, requestID uuid.UUID) (domain.ErasureReport, error)
	Clear(ctx context.Context, requestID uuid.UUID) error
}
