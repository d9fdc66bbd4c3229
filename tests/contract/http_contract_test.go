package contract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/viralforge/privacy-requests-service/internal/adapters/http"
	"github.com/viralforge/privacy-requests-service/internal/adapters/memory"
	"github.com/viralforge/privacy-requests-service/internal/adapters/security"
	"github.com/viralforge/privacy-requests-service/internal/adapters/sources"
	"github.com/viralforge/privacy-requests-service/internal/application"
	"github.com/viralforge/privacy-requests-service/internal/contracts"
	"github.com/viralforge/privacy-requests-service/internal/domain"
)

type fixture struct {
	router   http.Handler
	registry *sources.Registry
	outbox   *memory.OutboxRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := security.NewConfirmationTokenCodec("contract-secret", 0)
	if err != nil {
		t.Fatalf("init token codec: %v", err)
	}
	repos := memory.NewRepositories()
	stores := memory.NewStores()
	registry := sources.NewRegistry()
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ConfirmBaseURL: "http://localhost:8080/v1/confirm",
		},
		Requests: repos.Requests,
		Outbox:   repos.Outbox,
		Registry: registry,
		Progress: stores.Progress,
		Bundles:  stores.Bundles,
		Reports:  stores.Reports,
		Tokens:   tokens,
	})
	return &fixture{
		router:   httpadapter.NewRouter(httpadapter.NewHandler(svc)),
		registry: registry,
		outbox:   repos.Outbox,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) mustCreate(t *testing.T, email, action string) contracts.PrivacyRequestResponse {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/v1/privacy-requests",
		`{"email":"`+email+`","action_type":"`+action+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create failed: status=%d body=%s", rr.Code, rr.Body.String())
	}
	return decodeData[contracts.PrivacyRequestResponse](t, rr)
}

func decodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body=%s)", err, rr.Body.String())
	}
	if envelope.Status != "success" {
		t.Fatalf("expected success envelope, got %s", rr.Body.String())
	}
	var out T
	if err := json.Unmarshal(envelope.Data, &out); err != nil {
		t.Fatalf("decode data: %v (body=%s)", err, rr.Body.String())
	}
	return out
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Status string `json:"status"`
		Code   string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v (body=%s)", err, rr.Body.String())
	}
	return out.Code
}

func TestCreateAndGetRequest(t *testing.T) {
	f := newFixture(t)
	row := f.mustCreate(t, "dana@example.com", "export_personal_data")
	if row.Status != "pending" || row.RequestID == "" {
		t.Fatalf("unexpected create response: %+v", row)
	}

	rr := f.do(t, http.MethodGet, "/v1/privacy-requests/"+row.RequestID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get failed: status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decodeData[contracts.PrivacyRequestResponse](t, rr)
	if got.RequestID != row.RequestID || got.Email != "dana@example.com" {
		t.Fatalf("get mismatch: %+v", got)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/v1/privacy-requests", `{"email":"nope","action_type":"export_personal_data"}`)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "VALIDATION_ERROR" {
		t.Fatalf("bad email: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/v1/privacy-requests", `{"email":"dana@example.com","action_type":"purge"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad action: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestConfirmFlowOverHTTP(t *testing.T) {
	f := newFixture(t)
	row := f.mustCreate(t, "dana@example.com", "export_personal_data")

	// The confirmation link is delivered via the queued notification payload.
	events := f.outbox.Events()
	if len(events) != 1 {
		t.Fatalf("expected one queued confirmation, got %d", len(events))
	}
	var payload struct {
		ConfirmURL string `json:"confirm_url"`
	}
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("decode notification payload: %v", err)
	}
	confirmPath := strings.TrimPrefix(payload.ConfirmURL, "http://localhost:8080")

	rr := f.do(t, http.MethodGet, confirmPath, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("confirm failed: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/v1/privacy-requests/"+row.RequestID, "")
	got := decodeData[contracts.PrivacyRequestResponse](t, rr)
	if got.Status != "confirmed" || got.ConfirmedAt == "" {
		t.Fatalf("expected confirmed request, got %+v", got)
	}

	rr = f.do(t, http.MethodGet, "/v1/confirm?token=garbage", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestStepWalkOverHTTP(t *testing.T) {
	f := newFixture(t)
	err := f.registry.RegisterExporter(domain.Exporter{
		Name:         "comments",
		FriendlyName: "Comments",
		Export: func(_ context.Context, email string, page int) (domain.ExportPage, error) {
			return domain.ExportPage{
				Items: []domain.ExportItem{{
					GroupLabel: "Comments",
					Fields:     []domain.Field{{Name: "Email", Value: email}},
				}},
				Done: page >= 2,
			}, nil
		},
	})
	if err != nil {
		t.Fatalf("register exporter: %v", err)
	}
	row := f.mustCreate(t, "dana@example.com", "export_personal_data")
	base := "/v1/privacy-requests/" + row.RequestID

	rr := f.do(t, http.MethodPost, base+"/steps", `{"source_index":1,"page_index":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("step 1 failed: status=%d body=%s", rr.Code, rr.Body.String())
	}
	step := decodeData[contracts.StepResponse](t, rr)
	if step.Done || step.NextSourceIndex != 1 || step.NextPageIndex != 2 {
		t.Fatalf("unexpected first step: %+v", step)
	}

	rr = f.do(t, http.MethodPost, base+"/steps", `{"source_index":1,"page_index":2}`)
	step = decodeData[contracts.StepResponse](t, rr)
	if !step.FinalStep || step.DownloadURL == "" {
		t.Fatalf("unexpected final step: %+v", step)
	}

	rr = f.do(t, http.MethodPost, base+"/steps", `{"source_index":9,"page_index":1}`)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "STEP_OUT_OF_RANGE" {
		t.Fatalf("out of range: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, base+"/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export download failed: status=%d body=%s", rr.Code, rr.Body.String())
	}
	bundle := decodeData[contracts.ExportBundleResponse](t, rr)
	if len(bundle.Groups) != 1 || len(bundle.Groups[0].Items) != 2 {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}
}

func TestSourceFailureMapsToBadGateway(t *testing.T) {
	f := newFixture(t)
	err := f.registry.RegisterEraser(domain.Eraser{
		Name:         "media",
		FriendlyName: "Media",
		Erase: func(context.Context, string, int) (domain.ErasurePage, error) {
			return domain.ErasurePage{}, context.DeadlineExceeded
		},
	})
	if err != nil {
		t.Fatalf("register eraser: %v", err)
	}
	row := f.mustCreate(t, "dana@example.com", "remove_personal_data")

	rr := f.do(t, http.MethodPost, "/v1/privacy-requests/"+row.RequestID+"/steps", `{"source_index":1,"page_index":1}`)
	if rr.Code != http.StatusBadGateway || errorCode(t, rr) != "SOURCE_FAILED" {
		t.Fatalf("source failure: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListResendAndBulkEndpoints(t *testing.T) {
	f := newFixture(t)
	first := f.mustCreate(t, "alice@example.com", "export_personal_data")
	second := f.mustCreate(t, "bob@example.com", "remove_personal_data")

	rr := f.do(t, http.MethodGet, "/v1/privacy-requests?status=pending&sort=email&order=asc", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list failed: status=%d body=%s", rr.Code, rr.Body.String())
	}
	list := decodeData[contracts.PrivacyRequestListResponse](t, rr)
	if list.Total != 2 || len(list.Items) != 2 || list.Items[0].Email != "alice@example.com" {
		t.Fatalf("unexpected listing: %+v", list)
	}

	rr = f.do(t, http.MethodPost, "/v1/privacy-requests/"+first.RequestID+"/resend", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("resend failed: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/v1/privacy-requests/resend",
		`{"request_ids":["`+first.RequestID+`","`+second.RequestID+`"]}`)
	bulk := decodeData[contracts.BulkResponse](t, rr)
	if bulk.Affected != 2 {
		t.Fatalf("expected 2 bulk resends, got %+v", bulk)
	}

	rr = f.do(t, http.MethodDelete, "/v1/privacy-requests",
		`{"request_ids":["`+first.RequestID+`","`+second.RequestID+`"]}`)
	bulk = decodeData[contracts.BulkResponse](t, rr)
	if bulk.Affected != 2 {
		t.Fatalf("expected 2 bulk deletions, got %+v", bulk)
	}

	rr = f.do(t, http.MethodGet, "/v1/privacy-requests/"+first.RequestID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestIllegalTransitionConflicts(t *testing.T) {
	f := newFixture(t)
	row := f.mustCreate(t, "dana@example.com", "export_personal_data")

	rr := f.do(t, http.MethodPost, "/v1/privacy-requests/"+row.RequestID+"/complete", "")
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "ILLEGAL_TRANSITION" {
		t.Fatalf("complete from pending: status=%d body=%s", rr.Code, rr.Body.String())
	}
}
