package ports

// Server defines the lifecycle of the verdict endpoint transport
type Server interface {
	// Start starts serving requests
	Start() error

	// Stop shuts the server down gracefully
	Stop() error
}
