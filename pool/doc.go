// Package pool
// Author: momentics <momentics@gmail.com>
//
// Shape-keyed GPU frame allocator for hioload-frames.
// Frames are grouped into per-shape buckets, each with an access-ordered
// free list, membership tracking and usage statistics. One byte budget is
// enforced across all buckets, and a background sweep reclaims frames that
// sit free past an idle timeout. See bucket.go, pool.go, sweeper.go.
package pool
