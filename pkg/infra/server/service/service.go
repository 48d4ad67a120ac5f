// Package service defines the contracts for services managed by the server registry.
package service

import "context"

// Service is the minimal contract a registered service must satisfy.
type Service interface {
	// ServiceName returns the unique name of the service.
	ServiceName() string
}

// Initializable is implemented by services that need initialization before
// the transports start accepting traffic.
type Initializable interface {
	// Init initializes the service.
	Init(ctx context.Context) error
}

// Closeable is implemented by services that need cleanup during shutdown.
type Closeable interface {
	// Close releases the service's resources.
	Close(ctx context.Context) error
}
