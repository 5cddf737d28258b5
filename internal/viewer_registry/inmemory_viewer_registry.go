package viewer_registry

import (
	"strings"
	"sync"
	"time"

	"github.com/AnishMulay/memscope/internal/log_service"
	"golang.org/x/exp/slices"
)

type InMemoryViewerRegistry struct {
	mu      sync.RWMutex
	viewers map[string]Viewer
	ls      log_service.LogService
}

func NewInMemoryViewerRegistry(ls log_service.LogService) *InMemoryViewerRegistry {
	return &InMemoryViewerRegistry{
		viewers: make(map[string]Viewer),
		ls:      ls,
	}
}

func (r *InMemoryViewerRegistry) RegisterViewer(viewer Viewer) error {
	if strings.TrimSpace(viewer.ID) == "" {
		return ErrInvalidViewerID
	}
	if viewer.ConnectedAt.IsZero() {
		viewer.ConnectedAt = time.Now().UTC()
	}

	r.mu.Lock()
	if _, ok := r.viewers[viewer.ID]; ok {
		r.mu.Unlock()
		return ErrViewerAlreadyExists
	}
	r.viewers[viewer.ID] = viewer
	total := len(r.viewers)
	r.mu.Unlock()

	r.ls.Info(log_service.LogEvent{
		Message:  "Viewer connected",
		Metadata: map[string]any{"viewerID": viewer.ID, "transport": viewer.Transport, "remoteAddr": viewer.RemoteAddr, "total": total},
	})
	return nil
}

func (r *InMemoryViewerRegistry) DeregisterViewer(id string) error {
	r.mu.Lock()
	if _, ok := r.viewers[id]; !ok {
		r.mu.Unlock()
		return ErrViewerNotFound
	}
	delete(r.viewers, id)
	total := len(r.viewers)
	r.mu.Unlock()

	r.ls.Info(log_service.LogEvent{
		Message:  "Viewer disconnected",
		Metadata: map[string]any{"viewerID": id, "total": total},
	})
	return nil
}

func (r *InMemoryViewerRegistry) GetViewer(id string) (Viewer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.viewers[id]
	if !ok {
		return Viewer{}, ErrViewerNotFound
	}
	return v, nil
}

// ListViewers returns the viewers ordered by connection time, oldest first.
func (r *InMemoryViewerRegistry) ListViewers() []Viewer {
	r.mu.RLock()
	out := make([]Viewer, 0, len(r.viewers))
	for _, v := range r.viewers {
		out = append(out, v)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Viewer) int {
		if c := a.ConnectedAt.Compare(b.ConnectedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (r *InMemoryViewerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.viewers)
}

var _ ViewerRegistry = (*InMemoryViewerRegistry)(nil)
