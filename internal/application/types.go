package application

import (
	"time"

	"github.com/viralforge/privacy-requests-service/internal/ports"
)

type Config struct {
	ServiceName string
	// ConfirmBaseURL prefixes the confirmation link embedded in verification
	// emails; the signed token is appended as a query parameter.
	ConfirmBaseURL string
	// DownloadBaseURL prefixes the export bundle link reported on the final
	// export step.
	DownloadBaseURL string
	DefaultPerPage  int
	MaxPerPage      int
}

type CreateRequestInput struct {
	Email       string
	ActionType  string
	Description string
}

type ListRequestsInput struct {
	Filter  ports.RequestFilter
	Sort    ports.RequestSort
	Page    int
	PerPage int
}

// StepResult is the continuation token returned by one job-runner step. The
// caller feeds NextSourceIndex/NextPageIndex back into the next call until
// FinalStep is observed.
type StepResult struct {
	SourceName      string
	Done            bool
	NextSourceIndex int
	NextPageIndex   int
	FinalStep       bool
	// DownloadURL is set on the final step of an export run.
	DownloadURL string
	// Report carries cumulative erasure totals, populated on erase steps.
	Report *ErasureTotals
}

type ErasureTotals struct {
	ItemsRemoved  int
	ItemsRetained int
	Messages      []string
}

type Service struct {
	cfg      Config
	requests ports.RequestRepository
	outbox   ports.OutboxRepository
	accounts ports.AccountResolver
	registry ports.SourceRegistry
	progress ports.JobProgressStore
	bundles  ports.ExportBundleStore
	reports  ports.ErasureReportStore
	tokens   ports.ConfirmationTokenCodec
	nowFn    func() time.Time
}

type Dependencies struct {
	Config   Config
	Requests ports.RequestRepository
	Outbox   ports.OutboxRepository
	Accounts ports.AccountResolver
	Registry ports.SourceRegistry
	Progress ports.JobProgressStore
	Bundles  ports.ExportBundleStore
	Reports  ports.ErasureReportStore
	Tokens   ports.ConfirmationTokenCodec
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "privacy-requests-service"
	}
	if cfg.DefaultPerPage <= 0 {
		cfg.DefaultPerPage = 20
	}
	if cfg.MaxPerPage <= 0 {
		cfg.MaxPerPage = 100
	}
	return &Service{
		cfg:      cfg,
		requests: deps.Requests,
		outbox:   deps.Outbox,
		accounts: deps.Accounts,
		registry: deps.Registry,
		progress: deps.Progress,
		bundles:  deps.Bundles,
		reports:  deps.Reports,
		tokens:   deps.Tokens,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}
