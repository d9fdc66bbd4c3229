package contracts

import "github.com/viralforge/privacy-requests-service/internal/domain"

type CreatePrivacyRequest struct {
	Email       string `json:"email"`
	ActionType  string `json:"action_type"`
	Description string `json:"description,omitempty"`
}

type PrivacyRequestResponse struct {
	RequestID   string `json:"request_id"`
	Email       string `json:"email"`
	UserID      string `json:"user_id,omitempty"`
	ActionType  string `json:"action_type"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	ConfirmedAt string `json:"confirmed_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type PrivacyRequestListResponse struct {
	Items   []PrivacyRequestResponse `json:"items"`
	Total   int64                    `json:"total"`
	Page    int                      `json:"page"`
	PerPage int                      `json:"per_page"`
}

type BulkRequest struct {
	RequestIDs []string `json:"request_ids"`
}

type BulkResponse struct {
	Affected int `json:"affected"`
}

type StepRequest struct {
	SourceIndex int `json:"source_index"`
	PageIndex   int `json:"page_index"`
}

type StepResponse struct {
	SourceName      string                 `json:"source_name,omitempty"`
	Done            bool                   `json:"done"`
	NextSourceIndex int                    `json:"next_source_index"`
	NextPageIndex   int                    `json:"next_page_index"`
	FinalStep       bool                   `json:"final_step"`
	DownloadURL     string                 `json:"download_url,omitempty"`
	Report          *ErasureReportResponse `json:"report,omitempty"`
}

type ErasureReportResponse struct {
	ItemsRemoved  int      `json:"items_removed"`
	ItemsRetained int      `json:"items_retained"`
	Messages      []string `json:"messages,omitempty"`
}

type ExportBundleResponse struct {
	RequestID string               `json:"request_id"`
	Groups    []domain.ExportGroup `json:"groups"`
}
