// File: pool/pool.go
// Author: momentics <momentics@gmail.com>
//
// FramePool: shape-keyed allocator with one byte budget across all buckets.
// Locking is two-tier: an RWMutex over the bucket map, then one bucket lock
// at a time. A bucket lock is never held while taking the map lock, and the
// budget counter is CAS-maintained so allocation never blocks on a sweep.

package pool

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kataras/golog"

	"github.com/momentics/hioload-frames/api"
	"github.com/momentics/hioload-frames/frame"
)

// Config holds pool construction parameters.
type Config struct {
	ByteBudget        uint64        // global budget across all buckets
	DefaultMinFree    int           // free-list floor for new buckets
	DefaultMaxFree    int           // free-list ceiling for new buckets
	IdleTimeout       time.Duration // free frames older than this are swept
	CleanupInterval   time.Duration // background sweep cadence
	PressureThreshold float64       // bytes_in_use/budget fraction that arms notification
	OnPressure        func(fraction float64)
	Logger            *golog.Logger
}

// DefaultConfig returns the standard pool tuning.
func DefaultConfig() *Config {
	return &Config{
		ByteBudget:        2 << 30, // 2 GiB
		DefaultMinFree:    DefaultMinFree,
		DefaultMaxFree:    DefaultMaxFree,
		IdleTimeout:       5 * time.Minute,
		CleanupInterval:   5 * time.Second,
		PressureThreshold: 0.80,
	}
}

// Pool owns every GPU frame it creates, keyed by shape.
type Pool struct {
	device api.Device
	log    *golog.Logger

	mu      sync.RWMutex
	buckets map[api.ShapeDescriptor]*bucket

	bytesInUse atomic.Uint64
	byteBudget atomic.Uint64

	defaultMinFree int
	defaultMaxFree int
	idleTimeout    atomic.Int64 // nanoseconds

	pressureBits atomic.Uint64 // math.Float64bits of the threshold
	onPressure   func(float64)
	pressured    atomic.Bool // edge trigger: armed again below threshold

	sweeper *sweeper
	closed  atomic.Bool
}

// New creates a pool over the given device. Zero or missing config fields
// fall back to DefaultConfig values.
func New(device api.Device, cfg *Config) *Pool {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	def := DefaultConfig()
	if cfg.ByteBudget == 0 {
		cfg.ByteBudget = def.ByteBudget
	}
	if cfg.DefaultMaxFree == 0 {
		cfg.DefaultMaxFree = def.DefaultMaxFree
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.PressureThreshold == 0 {
		cfg.PressureThreshold = def.PressureThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = golog.Default
	}

	p := &Pool{
		device:         device,
		log:            cfg.Logger,
		buckets:        make(map[api.ShapeDescriptor]*bucket),
		defaultMinFree: cfg.DefaultMinFree,
		defaultMaxFree: cfg.DefaultMaxFree,
		onPressure:     cfg.OnPressure,
	}
	p.pressureBits.Store(math.Float64bits(cfg.PressureThreshold))
	p.byteBudget.Store(cfg.ByteBudget)
	p.idleTimeout.Store(int64(cfg.IdleTimeout))
	p.sweeper = newSweeper(p, cfg.CleanupInterval)
	return p
}

// Start launches the background cleanup sweep.
func (p *Pool) Start() {
	p.sweeper.start()
}

// bucketFor obtains or creates the bucket for a shape, double-checked like
// any hot-path registry: RLock fast path, write lock only on first sight.
func (p *Pool) bucketFor(shape api.ShapeDescriptor) *bucket {
	p.mu.RLock()
	b, ok := p.buckets[shape]
	p.mu.RUnlock()
	if ok {
		return b
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.buckets[shape]; ok {
		return b
	}
	b = newBucket(shape, p.defaultMinFree, p.defaultMaxFree)
	p.buckets[shape] = b
	return b
}

// snapshotBuckets copies the bucket set under the map lock so iteration
// never holds it. The sweep and stats paths go through here.
func (p *Pool) snapshotBuckets() []*bucket {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*bucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		out = append(out, b)
	}
	return out
}

// GetFrame is the pure pool-hit path: it pops the shape's free list if
// possible and never allocates. The miss is counted and (nil, false)
// returned otherwise.
func (p *Pool) GetFrame(shape api.ShapeDescriptor) (*frame.Frame, bool) {
	if p.closed.Load() || shape.Validate() != nil {
		return nil, false
	}
	f := p.bucketFor(shape).takeFree()
	if f == nil {
		return nil, false
	}
	return f, true
}

// AcquireFrame is get-or-create: a pool hit if the free list allows, else a
// fresh device allocation charged against the byte budget. Budget overrun
// is the expected, recoverable ErrMemoryPressure; the caller applies
// backpressure rather than retrying in a loop.
func (p *Pool) AcquireFrame(shape api.ShapeDescriptor) (*frame.Frame, error) {
	if p.closed.Load() {
		return nil, api.NewError(api.ErrCodePoolClosed, "acquire on closed pool")
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	b := p.bucketFor(shape)
	if f := b.takeFree(); f != nil {
		return f, nil
	}

	size := shape.ByteSize()
	if err := p.reserve(size, shape); err != nil {
		return nil, err
	}

	backing, err := p.device.CreateFrameBacking(shape)
	if err != nil {
		p.release(size)
		return nil, api.NewError(api.ErrCodeDeviceFailure, "frame backing creation failed").
			WithContext("shape", shape.String())
	}

	f := frame.New(shape, backing)
	f.MarkInUse()
	b.addNew(f)
	p.checkPressure()
	return f, nil
}

// reserve charges size bytes against the budget, failing with
// ErrMemoryPressure when it does not fit. CAS keeps the check-and-add
// atomic without any lock.
func (p *Pool) reserve(size uint64, shape api.ShapeDescriptor) error {
	for {
		used := p.bytesInUse.Load()
		budget := p.byteBudget.Load()
		if used+size > budget {
			return api.NewError(api.ErrCodeMemoryPressure, "byte budget exhausted").
				WithContext("shape", shape.String()).
				WithContext("bytes_in_use", used).
				WithContext("byte_budget", budget)
		}
		if p.bytesInUse.CompareAndSwap(used, used+size) {
			return nil
		}
	}
}

// release uncharges size bytes.
func (p *Pool) release(size uint64) {
	p.bytesInUse.Add(^(size - 1))
	p.checkPressure()
}

// ReturnFrame is the only path that reclaims GPU storage to the pool.
// The frame re-enters its bucket's free list when the list is below its
// ceiling, and is destroyed immediately otherwise. Returning a frame that
// is not in use is a lifetime violation: the frame is expelled from
// bookkeeping and never re-pooled.
func (p *Pool) ReturnFrame(f *frame.Frame) error {
	if f == nil {
		return api.NewError(api.ErrCodeInternal, "nil frame returned")
	}
	if p.closed.Load() {
		return api.NewError(api.ErrCodePoolClosed, "return on closed pool")
	}

	// The in-use check and the Free transition are one CAS: of two racing
	// returns exactly one wins, the other lands here and the frame is
	// expelled and destroyed rather than re-pooled.
	b := p.bucketFor(f.Shape())
	if !f.MarkUnused() {
		err := frame.Violation("frame returned while not in use", f)
		if b.expel(f) {
			p.destroyFrame(f)
		}
		return err
	}

	// Free frames never sit pooled with an interop mapping open.
	if f.Mapped() {
		if err := f.UnmapForInterop(p.device); err != nil {
			p.log.Warnf("hioload-frames: unmap on return failed: %v", err)
		}
	}

	retained, member := b.putBack(f)
	if !member {
		return frame.Violation("frame returned to a pool that does not own it", f)
	}
	if retained {
		return nil
	}
	p.destroyFrame(f)
	return nil
}

// destroyFrame releases a frame already removed from bookkeeping.
func (p *Pool) destroyFrame(f *frame.Frame) {
	if err := f.Destroy(p.device); err != nil {
		p.log.Errorf("hioload-frames: frame destruction failed: %v", err)
	}
	p.release(f.Shape().ByteSize())
}

// SetBucketLimits adjusts a shape's free-list bounds. Existing free frames
// above the new ceiling are not evicted retroactively.
func (p *Pool) SetBucketLimits(shape api.ShapeDescriptor, minFree, maxFree int) error {
	if err := shape.Validate(); err != nil {
		return err
	}
	if minFree < 0 || maxFree < 0 || minFree > maxFree {
		return api.NewError(api.ErrCodeInternal, "invalid free-list bounds").
			WithContext("min", minFree).
			WithContext("max", maxFree)
	}
	p.bucketFor(shape).setLimits(minFree, maxFree)
	return nil
}

// TriggerCleanup sweeps every bucket's free list once and destroys frames
// idle past the timeout. Returns the number of frames reclaimed. Safe to
// call concurrently with all other pool operations.
func (p *Pool) TriggerCleanup() int {
	now := time.Now()
	idle := time.Duration(p.idleTimeout.Load())
	evicted := 0
	for _, b := range p.snapshotBuckets() {
		for _, f := range b.takeIdle(now, idle) {
			p.destroyFrame(f)
			evicted++
		}
	}
	if evicted > 0 {
		p.log.Debugf("hioload-frames: sweep reclaimed %d idle frames", evicted)
	}
	return evicted
}

// Stats returns the statistics snapshot for one shape.
func (p *Pool) Stats(shape api.ShapeDescriptor) (api.BucketStats, bool) {
	p.mu.RLock()
	b, ok := p.buckets[shape]
	p.mu.RUnlock()
	if !ok {
		return api.BucketStats{}, false
	}
	return b.stats(), true
}

// AllStats returns the pool-wide snapshot across every bucket.
func (p *Pool) AllStats() api.PoolStats {
	p.mu.RLock()
	buckets := make(map[api.ShapeDescriptor]*bucket, len(p.buckets))
	for shape, b := range p.buckets {
		buckets[shape] = b
	}
	p.mu.RUnlock()

	out := api.PoolStats{
		BytesInUse: p.bytesInUse.Load(),
		ByteBudget: p.byteBudget.Load(),
		Buckets:    make(map[api.ShapeDescriptor]api.BucketStats, len(buckets)),
	}
	for shape, b := range buckets {
		out.Buckets[shape] = b.stats()
	}
	return out
}

// BytesInUse returns the bytes currently charged against the budget.
func (p *Pool) BytesInUse() uint64 { return p.bytesInUse.Load() }

// ByteBudget returns the configured budget.
func (p *Pool) ByteBudget() uint64 { return p.byteBudget.Load() }

// SetByteBudget applies a new budget at runtime. Shrinking below current
// usage does not evict anything; it only fails future allocations.
func (p *Pool) SetByteBudget(budget uint64) {
	p.byteBudget.Store(budget)
	p.checkPressure()
}

// SetIdleTimeout applies a new sweep idle timeout at runtime.
func (p *Pool) SetIdleTimeout(d time.Duration) {
	p.idleTimeout.Store(int64(d))
}

// IdleTimeout returns the current sweep idle timeout.
func (p *Pool) IdleTimeout() time.Duration {
	return time.Duration(p.idleTimeout.Load())
}

// SetPressureThreshold applies a new notification threshold at runtime.
// Values outside (0, 1] are ignored.
func (p *Pool) SetPressureThreshold(fraction float64) {
	if fraction <= 0 || fraction > 1 {
		return
	}
	p.pressureBits.Store(math.Float64bits(fraction))
	p.checkPressure()
}

// PressureThreshold returns the current notification threshold.
func (p *Pool) PressureThreshold() float64 {
	return math.Float64frombits(p.pressureBits.Load())
}

// SetCleanupInterval applies a new sweep cadence. The running sweep picks
// it up on its next wake.
func (p *Pool) SetCleanupInterval(d time.Duration) {
	p.sweeper.setInterval(d)
}

// CleanupInterval returns the current sweep cadence.
func (p *Pool) CleanupInterval() time.Duration {
	return p.sweeper.currentInterval()
}

// checkPressure notifies the registered callback once per upward crossing
// of the threshold, re-arming when usage falls back below it. Dispatch is
// on a fresh goroutine so the allocating thread never blocks.
func (p *Pool) checkPressure() {
	budget := p.byteBudget.Load()
	if budget == 0 {
		return
	}
	fraction := float64(p.bytesInUse.Load()) / float64(budget)
	if fraction < p.PressureThreshold() {
		p.pressured.Store(false)
		return
	}
	if p.pressured.CompareAndSwap(false, true) {
		p.log.Warnf("hioload-frames: memory pressure at %.0f%% of budget", fraction*100)
		if p.onPressure != nil {
			go p.onPressure(fraction)
		}
	}
}

// Close stops the sweeper and destroys all pooled frames. Producers and
// consumers must be quiesced first: frames still in use at teardown are a
// lifetime violation and are leaked rather than destroyed under a holder.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.sweeper.stop()

	p.mu.Lock()
	buckets := p.buckets
	p.buckets = make(map[api.ShapeDescriptor]*bucket)
	p.mu.Unlock()

	var firstErr error
	for _, b := range buckets {
		for _, f := range b.drain() {
			if f.InUse() {
				err := frame.Violation("frame still in use at pool teardown", f)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			p.destroyFrame(f)
		}
	}
	return firstErr
}

// Shutdown implements api.GracefulShutdown.
func (p *Pool) Shutdown() error { return p.Close() }

var _ api.GracefulShutdown = (*Pool)(nil)
