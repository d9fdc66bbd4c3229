// Package sources holds the in-process data-source plugin registry.
package sources

import (
	"fmt"
	"sync"

	"github.com/viralforge/privacy-requests-service/internal/domain"
)

// Registry is an ordered collection of exporter and eraser plugins. Sources
// are listed in registration order on every call; names are unique within
// their kind. The job runner layers a per-run snapshot on top, so registering
// sources while a run is in flight is safe.
type Registry struct {
	mu        sync.RWMutex
	exporters []domain.Exporter
	erasers   []domain.Eraser
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) RegisterExporter(e domain.Exporter) error {
	if e.Name == "" || e.Export == nil {
		return fmt.Errorf("exporter requires a name and a callback")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.exporters {
		if existing.Name == e.Name {
			return fmt.Errorf("exporter %q already registered", e.Name)
		}
	}
	r.exporters = append(r.exporters, e)
	return nil
}

func (r *Registry) RegisterEraser(e domain.Eraser) error {
	if e.Name == "" || e.Erase == nil {
		return fmt.Errorf("eraser requires a name and a callback")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.erasers {
		if existing.Name == e.Name {
			return fmt.Errorf("eraser %q already registered", e.Name)
		}
	}
	r.erasers = append(r.erasers, e)
	return nil
}

func (r *Registry) Exporters() []domain.Exporter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Exporter(nil), r.exporters...)
}

func (r *Registry) Erasers() []domain.Eraser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Eraser(nil), r.erasers...)
}
