// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake device implementation for testing. Hands out monotonically
// increasing handles and tracks live backings so tests can assert exact
// create/destroy pairing and catch double releases.

package fake

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-frames/api"
)

// Device is an in-memory api.Device.
type Device struct {
	mu        sync.Mutex
	nextID    uint64
	live      map[api.ImageHandle]api.ShapeDescriptor
	mapped    map[api.ImageHandle]bool
	created   uint64
	destroyed uint64
	maps      uint64
	unmaps    uint64

	// FailNextCreate makes the next CreateFrameBacking return an error,
	// for exercising allocation rollback paths.
	FailNextCreate bool
}

// NewDevice creates an empty fake device.
func NewDevice() *Device {
	return &Device{
		live:   make(map[api.ImageHandle]api.ShapeDescriptor),
		mapped: make(map[api.ImageHandle]bool),
	}
}

// CreateFrameBacking allocates a synthetic backing for the shape.
func (d *Device) CreateFrameBacking(shape api.ShapeDescriptor) (api.FrameBacking, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailNextCreate {
		d.FailNextCreate = false
		return api.FrameBacking{}, fmt.Errorf("fake device: injected create failure")
	}
	d.nextID++
	base := d.nextID * 4
	b := api.FrameBacking{
		Image:   api.ImageHandle(base),
		Memory:  api.MemoryHandle(base + 1),
		View:    api.ViewHandle(base + 2),
		Sampler: api.SamplerHandle(base + 3),
	}
	d.live[b.Image] = shape
	d.created++
	return b, nil
}

// DestroyFrameBacking releases a backing; unknown or already-released
// handles are an error so tests catch double frees.
func (d *Device) DestroyFrameBacking(b api.FrameBacking) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live[b.Image]; !ok {
		return fmt.Errorf("fake device: destroy of unknown image handle %d", b.Image)
	}
	delete(d.live, b.Image)
	delete(d.mapped, b.Image)
	d.destroyed++
	return nil
}

// MapFrameBacking records a host interop mapping.
func (d *Device) MapFrameBacking(b api.FrameBacking) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live[b.Image]; !ok {
		return fmt.Errorf("fake device: map of unknown image handle %d", b.Image)
	}
	if d.mapped[b.Image] {
		return fmt.Errorf("fake device: image handle %d mapped twice", b.Image)
	}
	d.mapped[b.Image] = true
	d.maps++
	return nil
}

// UnmapFrameBacking ends a host interop mapping.
func (d *Device) UnmapFrameBacking(b api.FrameBacking) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.mapped[b.Image] {
		return fmt.Errorf("fake device: unmap of unmapped image handle %d", b.Image)
	}
	delete(d.mapped, b.Image)
	d.unmaps++
	return nil
}

// LiveCount returns the number of backings currently allocated.
func (d *Device) LiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// LiveBytes sums the byte size of all live backings.
func (d *Device) LiveBytes() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var total uint64
	for _, shape := range d.live {
		total += shape.ByteSize()
	}
	return total
}

// CreatedCount returns the number of backings ever created.
func (d *Device) CreatedCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// DestroyedCount returns the number of backings released.
func (d *Device) DestroyedCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

// MapCount returns the number of map calls that reached the device.
func (d *Device) MapCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maps
}

// UnmapCount returns the number of unmap calls that reached the device.
func (d *Device) UnmapCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unmaps
}
