// File: api/device.go
// Author: momentics <momentics@gmail.com>
//
// Graphics-API boundary contract. The library never creates a device of its
// own: the host hands one in, and every image/memory/view/sampler call goes
// through this interface. Handles are opaque uint64 IDs, wide enough to fit
// any backend's native handle.

package api

// Opaque device object handles. The zero value is never a live object.
type (
	ImageHandle   uint64
	MemoryHandle  uint64
	ViewHandle    uint64
	SamplerHandle uint64
)

// InvalidHandle is the zero value for all handle kinds.
const InvalidHandle = 0

// FrameBacking bundles the device objects behind one GPU frame.
// A frame owns its backing exclusively; the backing is released exactly once.
type FrameBacking struct {
	Image   ImageHandle
	Memory  MemoryHandle
	View    ViewHandle
	Sampler SamplerHandle
}

// Valid reports whether the backing refers to live device objects.
func (b FrameBacking) Valid() bool {
	return b.Image != InvalidHandle
}

// Device is implemented by the host's graphics layer.
type Device interface {
	// CreateFrameBacking allocates image, memory, view and sampler for a
	// single frame of the given shape. The shape has already passed
	// ShapeDescriptor.Validate by the time this is called.
	CreateFrameBacking(shape ShapeDescriptor) (FrameBacking, error)

	// DestroyFrameBacking releases every object in the backing. Must
	// tolerate View or Sampler being InvalidHandle.
	DestroyFrameBacking(b FrameBacking) error

	// MapFrameBacking makes the frame's memory visible for host interop.
	MapFrameBacking(b FrameBacking) error

	// UnmapFrameBacking ends a host interop mapping.
	UnmapFrameBacking(b FrameBacking) error
}
