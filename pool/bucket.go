// File: pool/bucket.go
// Author: momentics <momentics@gmail.com>
//
// Per-shape frame bucket: access-ordered free list, membership set and
// usage counters, all guarded by the bucket's own lock. The pool map lock
// is never held while bucket work runs, and no caller takes two bucket
// locks at once.

package pool

import (
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-frames/api"
	"github.com/momentics/hioload-frames/frame"
)

// Default free-list bounds for newly observed shapes.
const (
	DefaultMinFree = 2
	DefaultMaxFree = 16
)

type bucket struct {
	mu    sync.Mutex
	shape api.ShapeDescriptor

	// freeList holds Free frames in return order. Return order approximates
	// idleness: a frame held long and returned late can be more idle than
	// the front entry, so its eviction waits until the entries ahead of it
	// age out.
	freeList *queue.Queue

	// members tracks every live frame of this shape, free or in use.
	// Invariant: every frame on freeList is also in members.
	members map[*frame.Frame]struct{}

	minFree int
	maxFree int

	totalAllocated uint64
	peakInUse      int
	hits           uint64
	misses         uint64
}

func newBucket(shape api.ShapeDescriptor, minFree, maxFree int) *bucket {
	return &bucket{
		shape:    shape,
		freeList: queue.New(),
		members:  make(map[*frame.Frame]struct{}),
		minFree:  minFree,
		maxFree:  maxFree,
	}
}

// inUseLocked computes the in-use count. Caller holds b.mu.
func (b *bucket) inUseLocked() int {
	return len(b.members) - b.freeList.Length()
}

// takeFree pops the free list and marks the frame in use. Returns nil on a
// bucket miss; hit/miss counters are updated either way.
func (b *bucket) takeFree() *frame.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freeList.Length() == 0 {
		b.misses++
		return nil
	}
	f := b.freeList.Remove().(*frame.Frame)
	b.hits++
	f.MarkInUse()
	if n := b.inUseLocked(); n > b.peakInUse {
		b.peakInUse = n
	}
	return f
}

// addNew registers a freshly allocated frame, already marked in use.
func (b *bucket) addNew(f *frame.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members[f] = struct{}{}
	b.totalAllocated++
	if n := b.inUseLocked(); n > b.peakInUse {
		b.peakInUse = n
	}
}

// putBack re-pools an already-Free frame if the free list has room. When
// the list is at maxFree the frame leaves membership and the caller must
// destroy it. A frame this bucket never owned is refused outright.
func (b *bucket) putBack(f *frame.Frame) (retained, member bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.members[f]; !ok {
		return false, false
	}
	if b.freeList.Length() < b.maxFree {
		b.freeList.Add(f)
		return true, true
	}
	delete(b.members, f)
	return false, true
}

// expel drops a frame from all bookkeeping without pooling it. Used when a
// lifetime violation makes the frame untrustworthy. The free list rebuild
// keeps every free-list entry a member; violations are rare enough that
// the linear pass does not matter.
func (b *bucket) expel(f *frame.Frame) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.members[f]; !ok {
		return false
	}
	delete(b.members, f)
	if b.freeList.Length() > 0 {
		rebuilt := queue.New()
		for b.freeList.Length() > 0 {
			e := b.freeList.Remove().(*frame.Frame)
			if e != f {
				rebuilt.Add(e)
			}
		}
		b.freeList = rebuilt
	}
	return true
}

// takeIdle removes free frames idle past the timeout, scanning from the
// front of the return-ordered list and stopping at the first non-idle
// entry. The list is never shrunk below minFree. Victims are returned for
// destruction outside the bucket lock.
func (b *bucket) takeIdle(now time.Time, idleTimeout time.Duration) []*frame.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	var victims []*frame.Frame
	for b.freeList.Length() > b.minFree {
		front := b.freeList.Peek().(*frame.Frame)
		if now.Sub(front.LastAccess()) < idleTimeout {
			break
		}
		b.freeList.Remove()
		delete(b.members, front)
		victims = append(victims, front)
	}
	return victims
}

// drain empties the bucket for teardown and returns every member.
func (b *bucket) drain() []*frame.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*frame.Frame, 0, len(b.members))
	for f := range b.members {
		out = append(out, f)
	}
	b.members = make(map[*frame.Frame]struct{})
	b.freeList = queue.New()
	return out
}

// setLimits adjusts the free-list bounds. Existing entries above the new
// max are not evicted retroactively; the bound applies to future returns.
func (b *bucket) setLimits(minFree, maxFree int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minFree = minFree
	b.maxFree = maxFree
}

// stats snapshots the bucket counters. Free and in-use counts are computed
// from the live structures, never stored redundantly.
func (b *bucket) stats() api.BucketStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return api.BucketStats{
		TotalAllocated: b.totalAllocated,
		PeakInUse:      b.peakInUse,
		CacheHits:      b.hits,
		CacheMisses:    b.misses,
		FreeCount:      b.freeList.Length(),
		InUseCount:     b.inUseLocked(),
	}
}
