// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown unifies orderly teardown across components. For the frame
// layer the required order is: quiesce producers and consumers, stop the
// cleanup sweep, then destroy pooled storage.
type GracefulShutdown interface {
	// Shutdown stops all internal services and releases owned resources.
	// Returns an error on failure.
	Shutdown() error
}
