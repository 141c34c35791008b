// File: frame/frame.go
// Author: momentics <momentics@gmail.com>
//
// GPU-resident frame object: one exclusively-owned device backing plus usage
// metadata. Created by the pool on an allocation miss, recycled through the
// pool's free lists, destroyed by the idle sweep or pool teardown.

package frame

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/golog"

	"github.com/momentics/hioload-frames/api"
)

// StrictChecks escalates lifetime violations to a panic. Diagnostic builds
// set it; production leaves it off so a misbehaving caller logs an error
// instead of taking down a running session.
var StrictChecks bool

// Metadata is producer-supplied frame context. Stored verbatim; the
// resource layer never interprets it.
type Metadata struct {
	PTS  time.Duration
	Kind string
}

// Frame is a single GPU-resident buffer. It is valid for GPU work from
// construction until Destroy. State transitions are driven by the pool
// (in-use/free) and by the current holder (interop mapping).
type Frame struct {
	id      uuid.UUID
	shape   api.ShapeDescriptor
	backing api.FrameBacking

	inUse      atomic.Bool
	mapped     atomic.Bool
	destroyed  atomic.Bool
	lastAccess atomic.Int64 // unix nanoseconds

	metaMu sync.Mutex
	meta   Metadata
}

// New wraps a freshly created device backing. The pool is the only intended
// caller; the frame starts Free and unmapped.
func New(shape api.ShapeDescriptor, backing api.FrameBacking) *Frame {
	f := &Frame{
		id:      uuid.New(),
		shape:   shape,
		backing: backing,
	}
	f.lastAccess.Store(time.Now().UnixNano())
	return f
}

// ID returns the frame's diagnostic identity.
func (f *Frame) ID() uuid.UUID { return f.id }

// Shape returns the frame's allocation class. Immutable.
func (f *Frame) Shape() api.ShapeDescriptor { return f.shape }

// Backing returns the device handles behind the frame.
func (f *Frame) Backing() api.FrameBacking { return f.backing }

// InUse reports whether a holder currently owns the frame.
func (f *Frame) InUse() bool { return f.inUse.Load() }

// Mapped reports whether a host interop mapping is active.
func (f *Frame) Mapped() bool { return f.mapped.Load() }

// Destroyed reports whether the backing has been released.
func (f *Frame) Destroyed() bool { return f.destroyed.Load() }

// LastAccess returns the time the frame last transitioned to in-use.
func (f *Frame) LastAccess() time.Time {
	return time.Unix(0, f.lastAccess.Load())
}

// MarkInUse hands the frame to a holder and stamps the access time.
func (f *Frame) MarkInUse() {
	f.inUse.Store(true)
	f.lastAccess.Store(time.Now().UnixNano())
}

// MarkUnused returns the frame to the Free state, reporting whether it was
// in use. The transition is a compare-and-swap so two racing returns can
// never both succeed; only the pool's ReturnFrame path may call this.
func (f *Frame) MarkUnused() bool {
	return f.inUse.CompareAndSwap(true, false)
}

// MapForInterop establishes a host interop mapping. Idempotent: mapping an
// already-mapped frame is a no-op success and never double-acquires the
// device mapping.
func (f *Frame) MapForInterop(dev api.Device) error {
	if !f.mapped.CompareAndSwap(false, true) {
		return nil
	}
	if err := dev.MapFrameBacking(f.backing); err != nil {
		f.mapped.Store(false)
		return api.NewError(api.ErrCodeDeviceFailure, "interop map failed").
			WithContext("frame", f.id.String())
	}
	return nil
}

// UnmapForInterop ends a host interop mapping. Idempotent: unmapping an
// unmapped frame is a no-op success.
func (f *Frame) UnmapForInterop(dev api.Device) error {
	if !f.mapped.CompareAndSwap(true, false) {
		return nil
	}
	if err := dev.UnmapFrameBacking(f.backing); err != nil {
		f.mapped.Store(true)
		return api.NewError(api.ErrCodeDeviceFailure, "interop unmap failed").
			WithContext("frame", f.id.String())
	}
	return nil
}

// SetMetadata records producer-supplied context on the frame.
func (f *Frame) SetMetadata(m Metadata) {
	f.metaMu.Lock()
	f.meta = m
	f.metaMu.Unlock()
}

// Metadata returns the producer-supplied context.
func (f *Frame) Metadata() Metadata {
	f.metaMu.Lock()
	defer f.metaMu.Unlock()
	return f.meta
}

// Destroy releases the backing exactly once. Destroying a frame that is
// in use, still mapped, or already destroyed is a lifetime violation: the
// backing is left untouched and the violation is reported via Violation.
func (f *Frame) Destroy(dev api.Device) error {
	if f.inUse.Load() {
		return Violation("frame destroyed while in use", f)
	}
	if f.mapped.Load() {
		return Violation("frame destroyed while mapped", f)
	}
	if !f.destroyed.CompareAndSwap(false, true) {
		return Violation("frame destroyed twice", f)
	}
	if err := dev.DestroyFrameBacking(f.backing); err != nil {
		return api.NewError(api.ErrCodeDeviceFailure, "backing release failed").
			WithContext("frame", f.id.String())
	}
	return nil
}

var _ api.Frame = (*Frame)(nil)

// Violation reports a frame lifetime violation: panic under StrictChecks,
// otherwise an error log. Always returns an ErrLifetimeViolation error so
// callers can drop the offending frame from bookkeeping.
func Violation(msg string, f *Frame) error {
	err := api.NewError(api.ErrCodeLifetimeViolation, msg).
		WithContext("frame", f.id.String()).
		WithContext("shape", f.shape.String())
	if StrictChecks {
		panic(err)
	}
	golog.Errorf("hioload-frames: %v", err)
	return err
}
