package viewer_registry

import "time"

type Viewer struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	Transport   string    `json:"transport"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// ViewerRegistry tracks the viewers currently connected to any transport.
type ViewerRegistry interface {
	RegisterViewer(viewer Viewer) error
	DeregisterViewer(id string) error
	GetViewer(id string) (Viewer, error)
	ListViewers() []Viewer
	Count() int
}
