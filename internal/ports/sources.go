package ports

import "github.com/viralforge/privacy-requests-service/internal/domain"

// SourceRegistry exposes the registered data-source plugins in a stable
// order. Implementations must return sources in registration order on every
// call; the job runner additionally pins a per-run snapshot on top of this
// contract.
type SourceRegistry interface {
	Exporters() []domain.Exporter
	Erasers() []domain.Eraser
}
