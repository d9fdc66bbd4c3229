package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/application"
	"github.com/viralforge/privacy-requests-service/internal/contracts"
	"github.com/viralforge/privacy-requests-service/internal/domain"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

// Handler is the HTTP adapter entrypoint for privacy-request use-cases.
type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req contracts.CreatePrivacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	row, err := h.service.CreateRequest(r.Context(), application.CreateRequestInput{
		Email:       req.Email,
		ActionType:  req.ActionType,
		Description: req.Description,
	})
	if err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "create_request", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	writeSuccess(w, http.StatusCreated, toResponse(row))
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathRequestID(w, r)
	if !ok {
		return
	}
	row, err := h.service.GetRequest(r.Context(), requestID)
	if err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "get_request", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, toResponse(row))
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ports.RequestFilter{
		EmailContains: strings.TrimSpace(q.Get("email_contains")),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := domain.Status(raw)
		switch status {
		case domain.StatusPending, domain.StatusConfirmed, domain.StatusFailed, domain.StatusCompleted:
			filter.Status = &status
		default:
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown status filter")
			return
		}
	}
	if raw := strings.TrimSpace(q.Get("action_type")); raw != "" {
		action, err := domain.ParseActionType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown action_type filter")
			return
		}
		filter.ActionType = &action
	}

	sort := ports.RequestSort{Field: ports.SortFieldCreatedAt, Descending: true}
	switch strings.TrimSpace(q.Get("sort")) {
	case "", "created_at":
		sort.Field = ports.SortFieldCreatedAt
	case "email":
		sort.Field = ports.SortFieldEmail
	case "status":
		sort.Field = ports.SortFieldStatus
	default:
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown sort field")
		return
	}
	if strings.EqualFold(strings.TrimSpace(q.Get("order")), "asc") {
		sort.Descending = false
	}

	page := intQueryParam(q.Get("page"), 1)
	perPage := intQueryParam(q.Get("per_page"), 0)

	rows, total, err := h.service.ListRequests(r.Context(), application.ListRequestsInput{
		Filter:  filter,
		Sort:    sort,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "list_requests", status, code, message, err)
		writeError(w, status, code, message)
		return
	}

	resp := contracts.PrivacyRequestListResponse{
		Items:   make([]contracts.PrivacyRequestResponse, 0, len(rows)),
		Total:   total,
		Page:    page,
		PerPage: len(rows),
	}
	for _, row := range rows {
		resp.Items = append(resp.Items, toResponse(row))
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) deleteRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathRequestID(w, r)
	if !ok {
		return
	}
	removed, err := h.service.DeleteRequest(r.Context(), requestID)
	if err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "delete_request", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}
	writeMessage(w, http.StatusOK, "privacy request deleted")
}

func (h *Handler) resendRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathRequestID(w, r)
	if !ok {
		return
	}
	if err := h.service.ResendRequest(r.Context(), requestID); err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "resend_request", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	writeMessage(w, http.StatusOK, "confirmation resent")
}

func (h *Handler) bulkResend(w http.ResponseWriter, r *http.Request) {
	ids, ok := bulkIDs(w, r)
	if !ok {
		return
	}
	affected := h.service.ResendRequests(r.Context(), ids)
	writeSuccess(w, http.StatusOK, contracts.BulkResponse{Affected: affected})
}

func (h *Handler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	ids, ok := bulkIDs(w, r)
	if !ok {
		return
	}
	affected := h.service.DeleteRequests(r.Context(), ids)
	writeSuccess(w, http.StatusOK, contracts.BulkResponse{Affected: affected})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "missing token")
		return
	}
	if err := h.service.ConfirmByToken(r.Context(), token); err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "confirm_request", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	writeMessage(w, http.StatusOK, "request confirmed")
}

func (h *Handler) confirmFailed(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "missing token")
		return
	}
	if err := h.service.FailByToken(r.Context(), token); err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "fail_request", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	writeMessage(w, http.StatusOK, "request marked failed")
}

func (h *Handler) markCompleted(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathRequestID(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkCompleted(r.Context(), requestID); err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "mark_completed", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	writeMessage(w, http.StatusOK, "request completed")
}

func (h *Handler) runStep(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathRequestID(w, r)
	if !ok {
		return
	}
	var req contracts.StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	result, err := h.service.RunStep(r.Context(), requestID, req.SourceIndex, req.PageIndex)
	if err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "run_step", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, toStepResponse(result))
}

func (h *Handler) exportBundle(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathRequestID(w, r)
	if !ok {
		return
	}
	groups, err := h.service.ExportBundle(r.Context(), requestID)
	if err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "export_bundle", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.ExportBundleResponse{
		RequestID: requestID.String(),
		Groups:    groups,
	})
}

func pathRequestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "request_id"))
	requestID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request id")
		return uuid.Nil, false
	}
	return requestID, true
}

func bulkIDs(w http.ResponseWriter, r *http.Request) ([]uuid.UUID, bool) {
	var req contracts.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return nil, false
	}
	if len(req.RequestIDs) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request_ids is required")
		return nil, false
	}
	ids := make([]uuid.UUID, 0, len(req.RequestIDs))
	for _, raw := range req.RequestIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request id in request_ids")
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func intQueryParam(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func toResponse(row domain.Request) contracts.PrivacyRequestResponse {
	out := contracts.PrivacyRequestResponse{
		RequestID:  row.RequestID.String(),
		Email:      row.RequesterEmail,
		ActionType: string(row.ActionType),
		Status:     string(row.Status),
		CreatedAt:  row.CreatedAt.UTC().Format(time.RFC3339),
	}
	if row.RequesterUserID != nil {
		out.UserID = row.RequesterUserID.String()
	}
	if row.ConfirmedAt != nil {
		out.ConfirmedAt = row.ConfirmedAt.UTC().Format(time.RFC3339)
	}
	if row.CompletedAt != nil {
		out.CompletedAt = row.CompletedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func toStepResponse(result application.StepResult) contracts.StepResponse {
	out := contracts.StepResponse{
		SourceName:      result.SourceName,
		Done:            result.Done,
		NextSourceIndex: result.NextSourceIndex,
		NextPageIndex:   result.NextPageIndex,
		FinalStep:       result.FinalStep,
		DownloadURL:     result.DownloadURL,
	}
	if result.Report != nil {
		out.Report = &contracts.ErasureReportResponse{
			ItemsRemoved:  result.Report.ItemsRemoved,
			ItemsRetained: result.Report.ItemsRetained,
			Messages:      result.Report.Messages,
		}
	}
	return out
}
