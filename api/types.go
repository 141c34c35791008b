// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations: pixel formats, frame shape identity,
// and statistics DTOs reported to observability collaborators.

package api

import "fmt"

// PixelFormat enumerates the pixel layouts a frame buffer can hold.
type PixelFormat uint32

const (
	FormatUnknown PixelFormat = iota
	FormatRGBA8
	FormatBGRA8
	FormatRGBA16F
	FormatGray8
	FormatNV12
	FormatYUV420P
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatBGRA8:
		return "bgra8"
	case FormatRGBA16F:
		return "rgba16f"
	case FormatGray8:
		return "gray8"
	case FormatNV12:
		return "nv12"
	case FormatYUV420P:
		return "yuv420p"
	default:
		return "unknown"
	}
}

// bytesPerPixel returns the storage cost of one pixel as a fraction.
// Planar 4:2:0 formats carry 12 bits per pixel, hence num/den.
func (f PixelFormat) bytesPerPixel() (num, den uint64) {
	switch f {
	case FormatRGBA8, FormatBGRA8:
		return 4, 1
	case FormatRGBA16F:
		return 8, 1
	case FormatGray8:
		return 1, 1
	case FormatNV12, FormatYUV420P:
		return 3, 2
	default:
		return 0, 1
	}
}

// Valid reports whether the format is one this subsystem can size.
func (f PixelFormat) Valid() bool {
	num, _ := f.bytesPerPixel()
	return num != 0
}

// ShapeDescriptor identifies a frame's allocation class.
//
// Identity is width, height and pixel format exactly: two descriptors are
// equal iff all three fields match, so the struct may key a map directly.
// Byte size is derived from these fields, never stored and never compared.
type ShapeDescriptor struct {
	Width  uint32
	Height uint32
	Format PixelFormat
}

// ByteSize returns the storage cost of one frame of this shape.
func (s ShapeDescriptor) ByteSize() uint64 {
	num, den := s.Format.bytesPerPixel()
	return uint64(s.Width) * uint64(s.Height) * num / den
}

// Validate rejects shapes no device could allocate: zero dimensions or an
// unrecognized pixel format.
func (s ShapeDescriptor) Validate() error {
	if s.Width == 0 || s.Height == 0 {
		return NewError(ErrCodeInvalidShape, "zero frame dimension").
			WithContext("shape", s.String())
	}
	if !s.Format.Valid() {
		return NewError(ErrCodeInvalidShape, "unrecognized pixel format").
			WithContext("shape", s.String())
	}
	return nil
}

func (s ShapeDescriptor) String() string {
	return fmt.Sprintf("%dx%d/%s", s.Width, s.Height, s.Format)
}

// BucketStats is the per-shape statistics snapshot exported by the pool.
// Free/in-use counts are computed at snapshot time, not stored.
type BucketStats struct {
	TotalAllocated uint64 // frames ever created for this shape
	PeakInUse      int    // high-water mark of simultaneously used frames
	CacheHits      uint64 // requests satisfied from the free list
	CacheMisses    uint64 // requests that required (or would require) a new allocation
	FreeCount      int
	InUseCount     int
}

// HitRate returns hits/(hits+misses), zero before any request.
func (s BucketStats) HitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// PoolStats aggregates the pool-wide view across all buckets.
type PoolStats struct {
	BytesInUse uint64
	ByteBudget uint64
	Buckets    map[ShapeDescriptor]BucketStats
}

// CacheStats is the content-cache statistics snapshot.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64 // entries displaced by capacity pressure
	Entries   int
	Capacity  int
}

// HitRate returns hits/(hits+misses), zero before any lookup.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
