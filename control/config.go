// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and reload
// propagation. Keys for the frame layer are declared here so every
// component spells them the same way.

package control

import (
	"sync"
	"time"
)

// Well-known configuration keys.
const (
	KeyByteBudget        = "pool.byte_budget"
	KeyIdleTimeout       = "pool.idle_timeout"
	KeyCleanupInterval   = "pool.cleanup_interval"
	KeyPressureThreshold = "pool.pressure_threshold"
	KeyCacheCapacity     = "cache.capacity"
)

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// SetConfig merges new values and dispatches reload listeners.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	listeners := make([]func(), len(cs.listeners))
	copy(listeners, cs.listeners)
	cs.mu.Unlock()
	for _, fn := range listeners {
		go fn()
	}
}

// SetConfigSync merges new values and runs listeners on the calling
// goroutine, for deterministic application in tests and startup paths.
func (cs *ConfigStore) SetConfigSync(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	listeners := make([]func(), len(cs.listeners))
	copy(listeners, cs.listeners)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// GetUint64 reads a numeric key, accepting the integer widths a caller may
// plausibly have stored.
func (cs *ConfigStore) GetUint64(key string) (uint64, bool) {
	cs.mu.RLock()
	v, ok := cs.config[key]
	cs.mu.RUnlock()
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

// GetDuration reads a duration key stored as time.Duration or nanoseconds.
func (cs *ConfigStore) GetDuration(key string) (time.Duration, bool) {
	cs.mu.RLock()
	v, ok := cs.config[key]
	cs.mu.RUnlock()
	if !ok {
		return 0, false
	}
	switch d := v.(type) {
	case time.Duration:
		return d, true
	case int64:
		return time.Duration(d), true
	case int:
		return time.Duration(d), true
	default:
		return 0, false
	}
}

// GetFloat64 reads a floating-point key.
func (cs *ConfigStore) GetFloat64(key string) (float64, bool) {
	cs.mu.RLock()
	v, ok := cs.config[key]
	cs.mu.RUnlock()
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
