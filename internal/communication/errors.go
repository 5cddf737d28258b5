package communication

import "errors"

var (
	// Server startup/shutdown errors
	ErrServerStartFailed = errors.New("failed to start server")
	ErrServerStopFailed  = errors.New("failed to stop server")

	// Message handling errors
	ErrHandlerNotSet        = errors.New("message handler not set")
	ErrMessageHandlerFailed = errors.New("message handler failed")

	// Decoding errors
	ErrInvalidJSON   = errors.New("invalid JSON in request")
	ErrMissingAction = errors.New("missing action in request")

	// Encoding errors
	ErrEventMarshalFailed = errors.New("failed to marshal event")

	// GRPC specific errors
	ErrGRPCListenFailed = errors.New("failed to listen on address")
)
