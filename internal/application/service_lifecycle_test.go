package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/adapters/memory"
	"github.com/viralforge/privacy-requests-service/internal/adapters/security"
	"github.com/viralforge/privacy-requests-service/internal/adapters/sources"
	"github.com/viralforge/privacy-requests-service/internal/application"
	"github.com/viralforge/privacy-requests-service/internal/domain"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

type testEnv struct {
	svc      *application.Service
	repos    *memory.Repositories
	stores   *memory.Stores
	registry *sources.Registry
	tokens   *security.ConfirmationTokenCodec
	accounts *memory.AccountResolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := security.NewConfirmationTokenCodec("test-secret", 0)
	if err != nil {
		t.Fatalf("init token codec: %v", err)
	}
	repos := memory.NewRepositories()
	stores := memory.NewStores()
	registry := sources.NewRegistry()
	accounts := memory.NewAccountResolver()
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ConfirmBaseURL: "https://example.com/v1/confirm",
		},
		Requests: repos.Requests,
		Outbox:   repos.Outbox,
		Accounts: accounts,
		Registry: registry,
		Progress: stores.Progress,
		Bundles:  stores.Bundles,
		Reports:  stores.Reports,
		Tokens:   tokens,
	})
	return &testEnv{svc: svc, repos: repos, stores: stores, registry: registry, tokens: tokens, accounts: accounts}
}

func (e *testEnv) mustCreate(t *testing.T, email, action string) domain.Request {
	t.Helper()
	row, err := e.svc.CreateRequest(context.Background(), application.CreateRequestInput{
		Email:      email,
		ActionType: action,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return row
}

func TestCreateRequestStartsPendingAndQueuesConfirmation(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	env.accounts.Register("dana@example.com", userID)

	row := env.mustCreate(t, "Dana@Example.com", "export_personal_data")
	if row.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", row.Status)
	}
	if row.RequesterEmail != "dana@example.com" {
		t.Fatalf("expected normalized email, got %q", row.RequesterEmail)
	}
	if row.RequesterUserID == nil || *row.RequesterUserID != userID {
		t.Fatalf("expected resolved user id %s, got %v", userID, row.RequesterUserID)
	}

	second := env.mustCreate(t, "dana@example.com", "export_personal_data")
	if second.RequestID == row.RequestID {
		t.Fatalf("expected distinct request ids for repeated requests")
	}

	events := env.repos.Outbox.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 queued confirmations, got %d", len(events))
	}
	var payload map[string]any
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	confirmURL, _ := payload["confirm_url"].(string)
	if !strings.HasPrefix(confirmURL, "https://example.com/v1/confirm?token=") {
		t.Fatalf("unexpected confirm url: %q", confirmURL)
	}
	if payload["action"] != "export_personal_data" {
		t.Fatalf("unexpected action in payload: %v", payload["action"])
	}
}

func TestCreateRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.CreateRequest(context.Background(), application.CreateRequestInput{
		Email:      "not-an-email",
		ActionType: "export_personal_data",
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad email, got %v", err)
	}
	if _, err := env.svc.CreateRequest(context.Background(), application.CreateRequestInput{
		Email:      "dana@example.com",
		ActionType: "export",
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown action, got %v", err)
	}
}

func TestCreateRequestSurvivesNotificationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repos.Outbox.FailEnqueue = errors.New("broker down")

	row, err := env.svc.CreateRequest(context.Background(), application.CreateRequestInput{
		Email:      "dana@example.com",
		ActionType: "remove_personal_data",
	})
	if !errors.Is(err, domain.ErrNotification) {
		t.Fatalf("expected ErrNotification, got %v", err)
	}

	kept, err := env.svc.GetRequest(context.Background(), row.RequestID)
	if err != nil {
		t.Fatalf("request row should persist after dispatch failure: %v", err)
	}
	if kept.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", kept.Status)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	row := env.mustCreate(t, "dana@example.com", "export_personal_data")
	corr := ports.CorrelationData{RequestID: row.RequestID, Action: row.ActionType, Email: row.RequesterEmail}

	if err := env.svc.OnConfirmed(context.Background(), corr); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	first, err := env.svc.GetRequest(context.Background(), row.RequestID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if first.Status != domain.StatusConfirmed || first.ConfirmedAt == nil {
		t.Fatalf("expected confirmed with timestamp, got %+v", first)
	}

	if err := env.svc.OnConfirmed(context.Background(), corr); err != nil {
		t.Fatalf("repeat confirm should be a no-op: %v", err)
	}
	second, _ := env.svc.GetRequest(context.Background(), row.RequestID)
	if !second.ConfirmedAt.Equal(*first.ConfirmedAt) {
		t.Fatalf("repeat confirm moved confirmed_at: %v -> %v", first.ConfirmedAt, second.ConfirmedAt)
	}
}

func TestConfirmIgnoresForgedAndStaleCallbacks(t *testing.T) {
	env := newTestEnv(t)
	row := env.mustCreate(t, "dana@example.com", "export_personal_data")

	// Unknown id.
	if err := env.svc.OnConfirmed(context.Background(), ports.CorrelationData{
		RequestID: uuid.New(),
		Action:    domain.ActionExport,
	}); err != nil {
		t.Fatalf("unknown id should be a silent no-op: %v", err)
	}

	// Action mismatch.
	if err := env.svc.OnConfirmed(context.Background(), ports.CorrelationData{
		RequestID: row.RequestID,
		Action:    domain.ActionErase,
	}); err != nil {
		t.Fatalf("action mismatch should be a silent no-op: %v", err)
	}
	kept, _ := env.svc.GetRequest(context.Background(), row.RequestID)
	if kept.Status != domain.StatusPending {
		t.Fatalf("stale callback changed status to %s", kept.Status)
	}
}

func TestConfirmByTokenRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	row := env.mustCreate(t, "dana@example.com", "export_personal_data")

	token, err := env.tokens.Sign(ports.CorrelationData{
		RequestID: row.RequestID,
		Action:    row.ActionType,
		Email:     row.RequesterEmail,
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if err := env.svc.ConfirmByToken(context.Background(), token); err != nil {
		t.Fatalf("confirm by token: %v", err)
	}
	kept, _ := env.svc.GetRequest(context.Background(), row.RequestID)
	if kept.Status != domain.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", kept.Status)
	}

	if err := env.svc.ConfirmByToken(context.Background(), token+"tampered"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for tampered token, got %v", err)
	}
}

func TestOnFailedMarksPendingRequestFailed(t *testing.T) {
	env := newTestEnv(t)
	row := env.mustCreate(t, "dana@example.com", "remove_personal_data")
	corr := ports.CorrelationData{RequestID: row.RequestID, Action: row.ActionType}

	if err := env.svc.OnFailed(context.Background(), corr); err != nil {
		t.Fatalf("fail: %v", err)
	}
	kept, _ := env.svc.GetRequest(context.Background(), row.RequestID)
	if kept.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", kept.Status)
	}

	// Failing again is not a legal transition and must be a no-op.
	if err := env.svc.OnFailed(context.Background(), corr); err != nil {
		t.Fatalf("repeat fail should be a no-op: %v", err)
	}
}

func TestMarkCompletedRequiresConfirmed(t *testing.T) {
	env := newTestEnv(t)
	row := env.mustCreate(t, "dana@example.com", "export_personal_data")

	if err := env.svc.MarkCompleted(context.Background(), row.RequestID); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition from pending, got %v", err)
	}

	corr := ports.CorrelationData{RequestID: row.RequestID, Action: row.ActionType}
	if err := env.svc.OnConfirmed(context.Background(), corr); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := env.svc.MarkCompleted(context.Background(), row.RequestID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	kept, _ := env.svc.GetRequest(context.Background(), row.RequestID)
	if kept.Status != domain.StatusCompleted || kept.CompletedAt == nil {
		t.Fatalf("expected completed with timestamp, got %+v", kept)
	}
}

func TestResendResetsLifecycleAndJobState(t *testing.T) {
	env := newTestEnv(t)
	row := env.mustCreate(t, "dana@example.com", "export_personal_data")
	corr := ports.CorrelationData{RequestID: row.RequestID, Action: row.ActionType}
	if err := env.svc.OnConfirmed(context.Background(), corr); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := env.svc.MarkCompleted(context.Background(), row.RequestID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	eventsBefore := len(env.repos.Outbox.Events())
	if err := env.svc.ResendRequest(context.Background(), row.RequestID); err != nil {
		t.Fatalf("resend: %v", err)
	}

	kept, _ := env.svc.GetRequest(context.Background(), row.RequestID)
	if kept.Status != domain.StatusPending {
		t.Fatalf("expected pending after resend, got %s", kept.Status)
	}
	if kept.ConfirmedAt != nil || kept.CompletedAt != nil {
		t.Fatalf("resend should clear lifecycle timestamps: %+v", kept)
	}
	if !kept.CreatedAt.After(row.CreatedAt) {
		t.Fatalf("resend should refresh the dispatch timestamp")
	}
	if got := len(env.repos.Outbox.Events()); got != eventsBefore+1 {
		t.Fatalf("expected one more queued confirmation, got %d (was %d)", got, eventsBefore)
	}
}

func TestResendUnknownRequest(t *testing.T) {
	env := newTestEnv(t)
	if err := env.svc.ResendRequest(context.Background(), uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBulkResendAndDeleteReportCounts(t *testing.T) {
	env := newTestEnv(t)
	first := env.mustCreate(t, "a@example.com", "export_personal_data")
	second := env.mustCreate(t, "b@example.com", "remove_personal_data")
	missing := uuid.New()

	if got := env.svc.ResendRequests(context.Background(), []uuid.UUID{first.RequestID, second.RequestID, missing}); got != 2 {
		t.Fatalf("expected 2 resends, got %d", got)
	}
	if got := env.svc.DeleteRequests(context.Background(), []uuid.UUID{first.RequestID, second.RequestID, missing}); got != 2 {
		t.Fatalf("expected 2 deletions, got %d", got)
	}
	if _, err := env.svc.GetRequest(context.Background(), first.RequestID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected deleted request to be gone, got %v", err)
	}
}

func TestListRequestsFilterSortAndPaging(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "carol@example.com", "export_personal_data")
	erase := env.mustCreate(t, "alice@example.com", "remove_personal_data")
	env.mustCreate(t, "bob@example.com", "export_personal_data")

	exportAction := domain.ActionExport
	rows, total, err := env.svc.ListRequests(context.Background(), application.ListRequestsInput{
		Filter: ports.RequestFilter{ActionType: &exportAction},
		Sort:   ports.RequestSort{Field: ports.SortFieldEmail},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 export rows, got total=%d len=%d", total, len(rows))
	}
	if rows[0].RequesterEmail != "bob@example.com" || rows[1].RequesterEmail != "carol@example.com" {
		t.Fatalf("unexpected email sort order: %q, %q", rows[0].RequesterEmail, rows[1].RequesterEmail)
	}

	rows, total, err = env.svc.ListRequests(context.Background(), application.ListRequestsInput{
		Filter:  ports.RequestFilter{EmailContains: "alice"},
		PerPage: 1,
	})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].RequestID != erase.RequestID {
		t.Fatalf("email filter mismatch: total=%d rows=%+v", total, rows)
	}
}

func TestExportBundleRejectsEraseRequests(t *testing.T) {
	env := newTestEnv(t)
	row := env.mustCreate(t, "dana@example.com", "remove_personal_data")
	if _, err := env.svc.ExportBundle(context.Background(), row.RequestID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for erase request, got %v", err)
	}
}
