package server

// Server owns the communicators and answers viewer actions.
type Server interface {
	Start() error
	Stop() error
}
