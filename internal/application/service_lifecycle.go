package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/domain"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

const eventConfirmationRequested = "privacy.request.confirmation_requested"

// CreateRequest validates and persists a new pending request, then queues the
// confirmation email. A dispatch failure is surfaced as ErrNotification but
// never rolls the request back; the row stays visible for resend.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (domain.Request, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.Request{}, err
	}
	action, err := domain.ParseActionType(in.ActionType)
	if err != nil {
		return domain.Request{}, err
	}

	row := domain.Request{
		RequestID:      uuid.New(),
		RequesterEmail: email,
		ActionType:     action,
		Status:         domain.StatusPending,
		CreatedAt:      s.nowFn(),
	}
	if s.accounts != nil {
		userID, resolveErr := s.accounts.ResolveUserID(ctx, email)
		if resolveErr != nil {
			// Enrichment only; an unreachable account service never blocks
			// request intake.
			slog.Default().WarnContext(ctx, "account resolution failed",
				"service", s.cfg.ServiceName,
				"module", "application",
				"layer", "application",
				"operation", "create_request",
				"outcome", "warning",
				"error", resolveErr.Error(),
			)
		} else {
			row.RequesterUserID = userID
		}
	}

	if err := s.requests.Create(ctx, row); err != nil {
		return domain.Request{}, err
	}

	if err := s.dispatchConfirmation(ctx, row, in.Description); err != nil {
		return row, fmt.Errorf("%w: %v", domain.ErrNotification, err)
	}
	return row, nil
}

// ResendRequest resets a request to pending with a fresh dispatch timestamp
// and re-queues the confirmation email. Unknown ids and unrecognized stored
// actions both read as not-found.
func (s *Service) ResendRequest(ctx context.Context, requestID uuid.UUID) error {
	row, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if _, err := domain.ParseActionType(string(row.ActionType)); err != nil {
		return fmt.Errorf("%w: request %s has unrecognized action", domain.ErrNotFound, requestID)
	}
	if _, err := domain.Transition(row.Status, domain.EventResend); err != nil {
		return err
	}

	now := s.nowFn()
	if err := s.requests.ResetToPending(ctx, requestID, now); err != nil {
		return err
	}
	s.discardJobState(ctx, requestID)

	row.Status = domain.StatusPending
	row.CreatedAt = now
	row.ConfirmedAt = nil
	row.CompletedAt = nil
	if err := s.dispatchConfirmation(ctx, row, ""); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotification, err)
	}
	return nil
}

// ResendRequests re-sends a batch and reports how many succeeded, matching
// the bulk table action semantics.
func (s *Service) ResendRequests(ctx context.Context, requestIDs []uuid.UUID) int {
	count := 0
	for _, id := range requestIDs {
		if err := s.ResendRequest(ctx, id); err == nil {
			count++
		}
	}
	return count
}

// OnConfirmed is the verification callback. Unknown ids, mismatched actions
// and repeat confirmations are silent no-ops so forged or stale links cannot
// disturb request state.
func (s *Service) OnConfirmed(ctx context.Context, corr ports.CorrelationData) error {
	row, err := s.requests.GetByID(ctx, corr.RequestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if row.ActionType != corr.Action {
		return nil
	}
	if _, err := domain.Transition(row.Status, domain.EventConfirm); err != nil {
		return nil
	}

	if err := s.requests.MarkConfirmed(ctx, corr.RequestID, s.nowFn()); err != nil {
		return err
	}
	slog.Default().InfoContext(ctx, "privacy request confirmed",
		"service", s.cfg.ServiceName,
		"module", "application",
		"layer", "application",
		"operation", "on_confirmed",
		"outcome", "success",
		"privacy_request_id", corr.RequestID.String(),
		"action", string(corr.Action),
	)
	return nil
}

// OnFailed marks a request failed after a declined or expired verification.
// Guarded the same way as OnConfirmed.
func (s *Service) OnFailed(ctx context.Context, corr ports.CorrelationData) error {
	row, err := s.requests.GetByID(ctx, corr.RequestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if row.ActionType != corr.Action {
		return nil
	}
	if _, err := domain.Transition(row.Status, domain.EventFail); err != nil {
		return nil
	}
	return s.requests.MarkFailed(ctx, corr.RequestID)
}

// ConfirmByToken verifies a signed confirmation link and applies the
// confirmation. Tampered or expired tokens surface as errors; anything past
// verification follows OnConfirmed's no-op guards.
func (s *Service) ConfirmByToken(ctx context.Context, token string) error {
	corr, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}
	return s.OnConfirmed(ctx, corr)
}

// FailByToken is the declined-verification counterpart of ConfirmByToken.
func (s *Service) FailByToken(ctx context.Context, token string) error {
	corr, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}
	return s.OnFailed(ctx, corr)
}

// MarkCompleted finalizes a confirmed request after the operator has observed
// the final job step (export bundle sent, or erasure fully processed).
func (s *Service) MarkCompleted(ctx context.Context, requestID uuid.UUID) error {
	row, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if _, err := domain.Transition(row.Status, domain.EventComplete); err != nil {
		return err
	}
	return s.requests.MarkCompleted(ctx, requestID, s.nowFn())
}

// DeleteRequest removes a request permanently and reports whether a row
// existed. Job-run leftovers are discarded with it.
func (s *Service) DeleteRequest(ctx context.Context, requestID uuid.UUID) (bool, error) {
	removed, err := s.requests.Delete(ctx, requestID)
	if err != nil {
		return false, err
	}
	if removed {
		s.discardJobState(ctx, requestID)
	}
	return removed, nil
}

// DeleteRequests removes a batch and reports the deleted count.
func (s *Service) DeleteRequests(ctx context.Context, requestIDs []uuid.UUID) int {
	count := 0
	for _, id := range requestIDs {
		if removed, err := s.DeleteRequest(ctx, id); err == nil && removed {
			count++
		}
	}
	return count
}

func (s *Service) GetRequest(ctx context.Context, requestID uuid.UUID) (domain.Request, error) {
	return s.requests.GetByID(ctx, requestID)
}

func (s *Service) ListRequests(ctx context.Context, in ListRequestsInput) ([]domain.Request, int64, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	perPage := in.PerPage
	if perPage <= 0 {
		perPage = s.cfg.DefaultPerPage
	}
	if perPage > s.cfg.MaxPerPage {
		perPage = s.cfg.MaxPerPage
	}
	return s.requests.List(ctx, in.Filter, in.Sort, page, perPage)
}

// ExportBundle returns the accumulated export grouped by label for download.
func (s *Service) ExportBundle(ctx context.Context, requestID uuid.UUID) ([]domain.ExportGroup, error) {
	row, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if row.ActionType != domain.ActionExport {
		return nil, fmt.Errorf("%w: request %s is not an export request", domain.ErrInvalidInput, requestID)
	}
	items, err := s.bundles.Items(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return domain.GroupItems(items), nil
}

func (s *Service) dispatchConfirmation(ctx context.Context, row domain.Request, description string) error {
	token, err := s.tokens.Sign(ports.CorrelationData{
		RequestID: row.RequestID,
		Action:    row.ActionType,
		Email:     row.RequesterEmail,
	})
	if err != nil {
		return fmt.Errorf("sign confirmation token: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"privacy_request_id": row.RequestID.String(),
		"email":              row.RequesterEmail,
		"action":             string(row.ActionType),
		"description":        description,
		"confirm_url":        s.cfg.ConfirmBaseURL + "?token=" + token,
		"requested_at":       row.CreatedAt,
	})
	return s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventConfirmationRequested,
		PartitionKey: row.RequesterEmail,
		Payload:      payload,
		OccurredAt:   s.nowFn(),
	})
}

func (s *Service) discardJobState(ctx context.Context, requestID uuid.UUID) {
	if s.progress != nil {
		_ = s.progress.Clear(ctx, requestID)
	}
	if s.bundles != nil {
		_ = s.bundles.Clear(ctx, requestID)
	}
	if s.reports != nil {
		_ = s.reports.Clear(ctx, requestID)
	}
}

// normalizeEmail canonicalizes and validates email format before persistence.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}
