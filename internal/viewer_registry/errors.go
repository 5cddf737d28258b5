package viewer_registry

import "errors"

var (
	ErrViewerAlreadyExists = errors.New("viewer already registered")
	ErrViewerNotFound      = errors.New("viewer not found")

	ErrInvalidViewerID = errors.New("invalid viewer ID")
)
