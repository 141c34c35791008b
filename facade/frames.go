// File: facade/frames.go
// Unified facade layer for the hioload-frames library.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This file defines the Frames struct, which aggregates the frame pool,
// the content cache and the control plane behind a single facade. The
// device is received from the host, never created here, and every
// component is constructed explicitly so lifetime and shutdown ordering
// stay visible: there is no process-wide instance to tear down. The facade
// implements api.GracefulShutdown.

package facade

import (
	"sync"
	"time"

	"github.com/kataras/golog"

	"github.com/momentics/hioload-frames/api"
	"github.com/momentics/hioload-frames/cache"
	"github.com/momentics/hioload-frames/control"
	"github.com/momentics/hioload-frames/pool"
)

// Config holds parameters immutable per run. Budget, idle timeout and
// pressure threshold can additionally be changed at runtime through the
// Control interface, which triggers a reload into the pool.
type Config struct {
	ByteBudget        uint64        // Global GPU memory budget across all frame shapes
	CleanupInterval   time.Duration // Background sweep cadence
	IdleTimeout       time.Duration // Free-frame age that makes it sweep-eligible
	CacheCapacity     int           // Content cache entry bound
	DefaultMinFree    int           // Free-list floor for new shape buckets
	DefaultMaxFree    int           // Free-list ceiling for new shape buckets
	PressureThreshold float64       // Fraction of budget that triggers notification
	OnPressure        func(float64) // Optional advisory memory-pressure callback
	EnableMetrics     bool          // Whether to publish stats into the metrics registry
	EnableDebug       bool          // Whether to register debug probes
	MetricsInterval   time.Duration // Cadence of metrics publishing
	Logger            *golog.Logger // Destination for pool/cache diagnostics
}

// DefaultConfig returns default configuration values.
// These sane defaults support typical editing workloads without tuning.
func DefaultConfig() *Config {
	return &Config{
		ByteBudget:        2 << 30,         // 2 GiB frame budget
		CleanupInterval:   5 * time.Second, // Sweep every 5 seconds
		IdleTimeout:       5 * time.Minute, // Reclaim frames free for 5 minutes
		CacheCapacity:     100,             // 100 memoized frames
		DefaultMinFree:    pool.DefaultMinFree,
		DefaultMaxFree:    pool.DefaultMaxFree,
		PressureThreshold: 0.80, // Notify at 80% of budget
		EnableMetrics:     true, // Enable built-in metrics
		EnableDebug:       true, // Enable debug probes
		MetricsInterval:   5 * time.Second,
	}
}

// Frames is the main facade type.
type Frames struct {
	device  api.Device
	pool    *pool.Pool
	cache   *cache.Cache
	store   *control.ConfigStore
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes
	bridge  *control.Bridge

	config *Config

	mu      sync.RWMutex
	started bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New assembles pool, cache and control plane over the host's device.
func New(device api.Device, cfg *Config) (*Frames, error) {
	if device == nil {
		return nil, api.NewError(api.ErrCodeInternal, "nil device")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = golog.Default
	}
	if cfg.MetricsInterval == 0 {
		cfg.MetricsInterval = DefaultConfig().MetricsInterval
	}

	frameCache, err := cache.New(cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}

	f := &Frames{
		device: device,
		cache:  frameCache,
		pool: pool.New(device, &pool.Config{
			ByteBudget:        cfg.ByteBudget,
			DefaultMinFree:    cfg.DefaultMinFree,
			DefaultMaxFree:    cfg.DefaultMaxFree,
			IdleTimeout:       cfg.IdleTimeout,
			CleanupInterval:   cfg.CleanupInterval,
			PressureThreshold: cfg.PressureThreshold,
			OnPressure:        cfg.OnPressure,
			Logger:            cfg.Logger,
		}),
		store:   control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		probes:  control.NewDebugProbes(),
		config:  cfg,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	f.bridge = control.NewBridge(f.store, f.metrics, f.probes)

	f.store.SetConfigSync(map[string]any{
		control.KeyByteBudget:        cfg.ByteBudget,
		control.KeyIdleTimeout:       cfg.IdleTimeout,
		control.KeyCleanupInterval:   cfg.CleanupInterval,
		control.KeyPressureThreshold: cfg.PressureThreshold,
		control.KeyCacheCapacity:     cfg.CacheCapacity,
	})
	f.store.OnReload(f.applyConfig)

	if cfg.EnableDebug {
		f.registerProbes()
	}
	return f, nil
}

// applyConfig pushes reloadable keys into the pool. Cache capacity is
// fixed per run; bucket limits are shape-keyed and set through
// Pool.SetBucketLimits rather than flat config keys.
func (f *Frames) applyConfig() {
	if budget, ok := f.store.GetUint64(control.KeyByteBudget); ok {
		f.pool.SetByteBudget(budget)
	}
	if idle, ok := f.store.GetDuration(control.KeyIdleTimeout); ok {
		f.pool.SetIdleTimeout(idle)
	}
	if interval, ok := f.store.GetDuration(control.KeyCleanupInterval); ok {
		f.pool.SetCleanupInterval(interval)
	}
	if threshold, ok := f.store.GetFloat64(control.KeyPressureThreshold); ok {
		f.pool.SetPressureThreshold(threshold)
	}
}

func (f *Frames) registerProbes() {
	control.RegisterPlatformProbes(f.probes)
	f.probes.RegisterProbe("pool.bytes_in_use", func() any {
		return f.pool.BytesInUse()
	})
	f.probes.RegisterProbe("pool.byte_budget", func() any {
		return f.pool.ByteBudget()
	})
	f.probes.RegisterProbe("pool.buckets", func() any {
		return len(f.pool.AllStats().Buckets)
	})
	f.probes.RegisterProbe("cache.entries", func() any {
		return f.cache.Len()
	})
	f.probes.RegisterProbe("cache.hit_rate", func() any {
		return f.cache.HitRate()
	})
}

// Start launches the pool's background sweep and the metrics publisher.
// A facade runs once: restarting after Stop is refused, because the pool
// behind it has already destroyed its frames.
func (f *Frames) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return api.NewError(api.ErrCodeInternal, "facade already stopped")
	}
	if f.started {
		return api.NewError(api.ErrCodeInternal, "facade already started")
	}
	f.started = true
	f.pool.Start()
	if f.config.EnableMetrics {
		go f.publishMetrics()
	} else {
		close(f.done)
	}
	return nil
}

// publishMetrics mirrors pool and cache statistics into the registry until
// shutdown.
func (f *Frames) publishMetrics() {
	defer close(f.done)
	ticker := time.NewTicker(f.config.MetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			f.snapshotMetrics()
		case <-f.stopCh:
			return
		}
	}
}

func (f *Frames) snapshotMetrics() {
	poolStats := f.pool.AllStats()
	cacheStats := f.cache.Stats()
	batch := map[string]any{
		"pool.bytes_in_use": poolStats.BytesInUse,
		"pool.byte_budget":  poolStats.ByteBudget,
		"pool.buckets":      len(poolStats.Buckets),
		"cache.hits":        cacheStats.Hits,
		"cache.misses":      cacheStats.Misses,
		"cache.evictions":   cacheStats.Evictions,
		"cache.entries":     cacheStats.Entries,
		"cache.hit_rate":    cacheStats.HitRate(),
	}
	var hits, misses uint64
	for _, b := range poolStats.Buckets {
		hits += b.CacheHits
		misses += b.CacheMisses
	}
	batch["pool.hits"] = hits
	batch["pool.misses"] = misses
	f.metrics.SetAll(batch)
}

// Stop quiesces in order: metrics publisher, cache references, then the
// pool (which stops the sweep before destroying storage). Callers must
// have returned all in-use frames first.
func (f *Frames) Stop() error {
	f.mu.Lock()
	if !f.started || f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	f.mu.Unlock()

	close(f.stopCh)
	<-f.done
	f.snapshotMetrics() // final state for post-mortem inspection
	f.cache.Clear()
	return f.pool.Close()
}

// Shutdown implements api.GracefulShutdown.
func (f *Frames) Shutdown() error { return f.Stop() }

// Pool returns the shape-keyed frame allocator.
func (f *Frames) Pool() *pool.Pool { return f.pool }

// Cache returns the content-keyed frame cache.
func (f *Frames) Cache() *cache.Cache { return f.cache }

// Control returns the runtime config/metrics interface.
func (f *Frames) Control() api.Control { return f.bridge }

// Device returns the host device the facade was built over.
func (f *Frames) Device() api.Device { return f.device }

var _ api.GracefulShutdown = (*Frames)(nil)
