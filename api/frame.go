// File: api/frame.go
// Author: momentics <momentics@gmail.com>
//
// Read-only frame contract for monitoring and diagnostics collaborators.

package api

import "time"

// Frame is the observable surface of a pooled GPU frame. Mutation goes
// through the concrete type owned by the pool; collaborators that only
// inspect frames (monitors, debug probes) depend on this view.
type Frame interface {
	// Shape returns the frame's allocation class. Immutable.
	Shape() ShapeDescriptor

	// Backing returns the device handles behind the frame.
	Backing() FrameBacking

	// InUse reports whether a holder currently owns the frame.
	InUse() bool

	// Mapped reports whether a host interop mapping is active.
	Mapped() bool

	// LastAccess returns the time the frame last transitioned to in-use.
	LastAccess() time.Time
}
