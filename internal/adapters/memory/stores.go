package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/domain"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

type Stores struct {
	Progress *JobProgressStore
	Bundles  *ExportBundleStore
	Reports  *ErasureReportStore
}

func NewStores() *Stores {
	return &Stores{
		Progress: &JobProgressStore{byID: map[uuid.UUID]ports.JobProgress{}},
		Bundles:  &ExportBundleStore{byID: map[uuid.UUID][]domain.ExportItem{}},
		Reports:  &ErasureReportStore{byID: map[uuid.UUID]domain.ErasureReport{}},
	}
}

type JobProgressStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]ports.JobProgress
}

func (s *JobProgressStore) Get(_ context.Context, requestID uuid.UUID) (*ports.JobProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prog, ok := s.byID[requestID]
	if !ok {
		return nil, nil
	}
	cp := prog
	cp.SourceNames = append([]string(nil), prog.SourceNames...)
	return &cp, nil
}

func (s *JobProgressStore) Put(_ context.Context, requestID uuid.UUID, progress ports.JobProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress.SourceNames = append([]string(nil), progress.SourceNames...)
	s.byID[requestID] = progress
	return nil
}

func (s *JobProgressStore) Clear(_ context.Context, requestID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, requestID)
	return nil
}

type ExportBundleStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID][]domain.ExportItem
}

func (s *ExportBundleStore) Append(_ context.Context, requestID uuid.UUID, items []domain.ExportItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[requestID] = append(s.byID[requestID], items...)
	return nil
}

func (s *ExportBundleStore) Items(_ context.Context, requestID uuid.UUID) ([]domain.ExportItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ExportItem(nil), s.byID[requestID]...), nil
}

func (s *ExportBundleStore) Clear(_ context.Context, requestID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, requestID)
	return nil
}

type ErasureReportStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.ErasureReport
}

func (s *ErasureReportStore) Add(_ context.Context, requestID uuid.UUID, page domain.ErasurePage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report := s.byID[requestID]
	report.ItemsRemoved += page.ItemsRemoved
	report.ItemsRetained += page.ItemsRetained
	report.Messages = append(report.Messages, page.Messages...)
	s.byID[requestID] = report
	return nil
}

func (s *ErasureReportStore) Report(_ context.Context, requestID uuid.UUID) (domain.ErasureReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report := s.byID[requestID]
	report.Messages = append([]string(nil), report.Messages...)
	return report, nil
}

func (s *ErasureReportStore) Clear(_ context.Context, requestID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, requestID)
	return nil
}

// AccountResolver resolves user ids from a fixed email directory.
type AccountResolver struct {
	mu      sync.Mutex
	byEmail map[string]uuid.UUID
}

func NewAccountResolver() *AccountResolver {
	return &AccountResolver{byEmail: map[string]uuid.UUID{}}
}

func (r *AccountResolver) Register(email string, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byEmail[email] = userID
}

func (r *AccountResolver) ResolveUserID(_ context.Context, email string) (*uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byEmail[email]; ok {
		cp := id
		return &cp, nil
	}
	return nil, nil
}
