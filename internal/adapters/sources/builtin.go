package sources

import (
	"context"
	"fmt"

	"github.com/viralforge/privacy-requests-service/internal/domain"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

const historyPageSize = 25

// NewRequestHistoryExporter exports the requester's own privacy-request
// history, one repository page per step.
func NewRequestHistoryExporter(requests ports.RequestRepository) domain.Exporter {
	return domain.Exporter{
		Name:         "privacy_request_history",
		FriendlyName: "Privacy Request History",
		Export: func(ctx context.Context, email string, page int) (domain.ExportPage, error) {
			rows, total, err := requests.List(ctx,
				ports.RequestFilter{Email: email},
				ports.RequestSort{Field: ports.SortFieldCreatedAt},
				page, historyPageSize,
			)
			if err != nil {
				return domain.ExportPage{}, err
			}
			out := domain.ExportPage{
				Items: make([]domain.ExportItem, 0, len(rows)),
				Done:  int64(page*historyPageSize) >= total,
			}
			for _, row := range rows {
				out.Items = append(out.Items, domain.ExportItem{
					GroupLabel: "Privacy Requests",
					Fields: []domain.Field{
						{Name: "Request ID", Value: row.RequestID.String()},
						{Name: "Action", Value: string(row.ActionType)},
						{Name: "Status", Value: string(row.Status)},
						{Name: "Requested At", Value: row.CreatedAt.Format("2006-01-02 15:04:05")},
					},
				})
			}
			return out, nil
		},
	}
}

// NewRequestHistoryEraser removes the requester's finished request rows.
// In-flight requests are retained so the active workflow is not cut from
// under itself.
func NewRequestHistoryEraser(requests ports.RequestRepository) domain.Eraser {
	return domain.Eraser{
		Name:         "privacy_request_history",
		FriendlyName: "Privacy Request History",
		Erase: func(ctx context.Context, email string, _ int) (domain.ErasurePage, error) {
			completed := domain.StatusCompleted
			rows, _, err := requests.List(ctx,
				ports.RequestFilter{Email: email, Status: &completed},
				ports.RequestSort{Field: ports.SortFieldCreatedAt},
				1, historyPageSize,
			)
			if err != nil {
				return domain.ErasurePage{}, err
			}
			page := domain.ErasurePage{Done: len(rows) < historyPageSize}
			for _, row := range rows {
				removed, err := requests.Delete(ctx, row.RequestID)
				if err != nil {
					return domain.ErasurePage{}, err
				}
				if removed {
					page.ItemsRemoved++
				}
			}
			if page.Done && page.ItemsRemoved == 0 && len(rows) == 0 {
				page.Messages = append(page.Messages, fmt.Sprintf("no completed requests found for %s", email))
			}
			return page, nil
		},
	}
}
