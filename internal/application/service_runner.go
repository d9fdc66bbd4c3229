package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/domain"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

// RunStep executes exactly one data-source page for a request and returns the
// continuation cursor. The runner is purely computational: it never touches
// the request's persisted status, performs no retries, and assumes a single
// driver per request. Steps are resumable; the registry snapshot taken on the
// first step is pinned for the whole run so later registrations cannot shift
// source indices.
func (s *Service) RunStep(ctx context.Context, requestID uuid.UUID, sourceIndex, pageIndex int) (StepResult, error) {
	row, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return StepResult{}, err
	}

	switch row.ActionType {
	case domain.ActionExport:
		return s.runExportStep(ctx, row, sourceIndex, pageIndex)
	case domain.ActionErase:
		return s.runEraseStep(ctx, row, sourceIndex, pageIndex)
	default:
		return StepResult{}, fmt.Errorf("%w: request %s has unrecognized action", domain.ErrNotFound, requestID)
	}
}

func (s *Service) runExportStep(ctx context.Context, row domain.Request, sourceIndex, pageIndex int) (StepResult, error) {
	exporters := s.registry.Exporters()
	byName := make(map[string]domain.Exporter, len(exporters))
	order := make([]string, 0, len(exporters))
	for _, e := range exporters {
		byName[e.Name] = e
		order = append(order, e.Name)
	}

	names, err := s.pinnedSourceOrder(ctx, row.RequestID, order)
	if err != nil {
		return StepResult{}, err
	}
	if err := checkStepBounds(sourceIndex, pageIndex, len(names)); err != nil {
		return StepResult{}, err
	}
	if len(names) == 0 {
		s.discardProgress(ctx, row.RequestID)
		return StepResult{
			Done:            true,
			NextSourceIndex: sourceIndex + 1,
			NextPageIndex:   1,
			FinalStep:       true,
			DownloadURL:     s.downloadURL(row.RequestID),
		}, nil
	}

	name := names[sourceIndex-1]
	exporter, ok := byName[name]
	if !ok {
		return StepResult{}, &domain.SourceError{
			Source: name,
			Page:   pageIndex,
			Err:    fmt.Errorf("source no longer registered"),
		}
	}

	page, err := exporter.Export(ctx, row.RequesterEmail, pageIndex)
	if err != nil {
		return StepResult{}, &domain.SourceError{Source: name, Page: pageIndex, Err: err}
	}
	if len(page.Items) > 0 {
		if err := s.bundles.Append(ctx, row.RequestID, page.Items); err != nil {
			return StepResult{}, fmt.Errorf("accumulate export items: %w", err)
		}
	}

	result := advanceCursor(sourceIndex, pageIndex, len(names), page.Done)
	result.SourceName = name
	if result.FinalStep {
		result.DownloadURL = s.downloadURL(row.RequestID)
	}
	if err := s.storeProgress(ctx, row.RequestID, result, names); err != nil {
		return StepResult{}, err
	}
	return result, nil
}

func (s *Service) runEraseStep(ctx context.Context, row domain.Request, sourceIndex, pageIndex int) (StepResult, error) {
	erasers := s.registry.Erasers()
	byName := make(map[string]domain.Eraser, len(erasers))
	order := make([]string, 0, len(erasers))
	for _, e := range erasers {
		byName[e.Name] = e
		order = append(order, e.Name)
	}

	names, err := s.pinnedSourceOrder(ctx, row.RequestID, order)
	if err != nil {
		return StepResult{}, err
	}
	if err := checkStepBounds(sourceIndex, pageIndex, len(names)); err != nil {
		return StepResult{}, err
	}
	if len(names) == 0 {
		s.discardProgress(ctx, row.RequestID)
		return StepResult{
			Done:            true,
			NextSourceIndex: sourceIndex + 1,
			NextPageIndex:   1,
			FinalStep:       true,
			Report:          &ErasureTotals{},
		}, nil
	}

	name := names[sourceIndex-1]
	eraser, ok := byName[name]
	if !ok {
		return StepResult{}, &domain.SourceError{
			Source: name,
			Page:   pageIndex,
			Err:    fmt.Errorf("source no longer registered"),
		}
	}

	page, err := eraser.Erase(ctx, row.RequesterEmail, pageIndex)
	if err != nil {
		return StepResult{}, &domain.SourceError{Source: name, Page: pageIndex, Err: err}
	}
	if err := s.reports.Add(ctx, row.RequestID, page); err != nil {
		return StepResult{}, fmt.Errorf("accumulate erasure report: %w", err)
	}

	result := advanceCursor(sourceIndex, pageIndex, len(names), page.Done)
	result.SourceName = name
	report, err := s.reports.Report(ctx, row.RequestID)
	if err != nil {
		return StepResult{}, err
	}
	result.Report = &ErasureTotals{
		ItemsRemoved:  report.ItemsRemoved,
		ItemsRetained: report.ItemsRetained,
		Messages:      report.Messages,
	}
	if err := s.storeProgress(ctx, row.RequestID, result, names); err != nil {
		return StepResult{}, err
	}
	return result, nil
}

// checkStepBounds rejects out-of-range indices without clamping. The empty
// source list is special-cased: the very first step is the immediate final
// step, anything else is a driver error.
func checkStepBounds(sourceIndex, pageIndex, sourceCount int) error {
	if pageIndex < 1 {
		return fmt.Errorf("%w: page index %d", domain.ErrOutOfRange, pageIndex)
	}
	if sourceCount == 0 {
		if sourceIndex != 1 || pageIndex != 1 {
			return fmt.Errorf("%w: step (%d,%d) with no sources", domain.ErrOutOfRange, sourceIndex, pageIndex)
		}
		return nil
	}
	if sourceIndex < 1 || sourceIndex > sourceCount {
		return fmt.Errorf("%w: source index %d with %d sources", domain.ErrOutOfRange, sourceIndex, sourceCount)
	}
	return nil
}

// advanceCursor applies the continuation contract: an unfinished source keeps
// its index and moves one page on; a finished source hands over to the next
// at page 1; the final source finishing ends the run.
func advanceCursor(sourceIndex, pageIndex, sourceCount int, done bool) StepResult {
	switch {
	case !done:
		return StepResult{
			Done:            false,
			NextSourceIndex: sourceIndex,
			NextPageIndex:   pageIndex + 1,
		}
	case sourceIndex < sourceCount:
		return StepResult{
			Done:            true,
			NextSourceIndex: sourceIndex + 1,
			NextPageIndex:   1,
		}
	default:
		return StepResult{
			Done:            true,
			NextSourceIndex: sourceIndex + 1,
			NextPageIndex:   1,
			FinalStep:       true,
		}
	}
}

// pinnedSourceOrder returns the per-run source order: the snapshot persisted
// with the in-flight progress if one exists, otherwise the live registry
// order which becomes the new snapshot.
func (s *Service) pinnedSourceOrder(ctx context.Context, requestID uuid.UUID, live []string) ([]string, error) {
	prog, err := s.progress.Get(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load job progress: %w", err)
	}
	if prog != nil && prog.SourceNames != nil {
		return prog.SourceNames, nil
	}
	return live, nil
}

func (s *Service) storeProgress(ctx context.Context, requestID uuid.UUID, result StepResult, names []string) error {
	if result.FinalStep {
		s.discardProgress(ctx, requestID)
		return nil
	}
	return s.progress.Put(ctx, requestID, ports.JobProgress{
		SourceIndex: result.NextSourceIndex,
		PageIndex:   result.NextPageIndex,
		SourceNames: names,
	})
}

func (s *Service) discardProgress(ctx context.Context, requestID uuid.UUID) {
	_ = s.progress.Clear(ctx, requestID)
}

func (s *Service) downloadURL(requestID uuid.UUID) string {
	base := strings.TrimSuffix(s.cfg.DownloadBaseURL, "/")
	if base == "" {
		base = "/v1/privacy-requests"
	}
	return base + "/" + requestID.String() + "/export"
}
