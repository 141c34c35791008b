// File: control/control.go
// Author: momentics <momentics@gmail.com>
//
// Bridge implementing api.Control over the config store, metrics registry
// and debug probes. Constructed explicitly and handed to whoever needs it;
// there is no process-wide instance.

package control

import "github.com/momentics/hioload-frames/api"

// Bridge ties the three control-plane primitives together behind
// api.Control.
type Bridge struct {
	store   *ConfigStore
	metrics *MetricsRegistry
	probes  *DebugProbes
}

// NewBridge wires an api.Control over existing primitives. Nil arguments
// get fresh instances.
func NewBridge(store *ConfigStore, metrics *MetricsRegistry, probes *DebugProbes) *Bridge {
	if store == nil {
		store = NewConfigStore()
	}
	if metrics == nil {
		metrics = NewMetricsRegistry()
	}
	if probes == nil {
		probes = NewDebugProbes()
	}
	return &Bridge{store: store, metrics: metrics, probes: probes}
}

// GetConfig returns a snapshot of all config values.
func (b *Bridge) GetConfig() map[string]any {
	return b.store.GetSnapshot()
}

// SetConfig merges values and notifies reload listeners.
func (b *Bridge) SetConfig(cfg map[string]any) error {
	b.store.SetConfig(cfg)
	return nil
}

// Stats merges the metrics snapshot with the current probe dump.
func (b *Bridge) Stats() map[string]any {
	out := b.metrics.GetSnapshot()
	for k, v := range b.probes.DumpState() {
		out[k] = v
	}
	return out
}

// OnReload registers a config reload listener.
func (b *Bridge) OnReload(fn func()) {
	b.store.OnReload(fn)
}

// RegisterDebugProbe registers a named introspection hook.
func (b *Bridge) RegisterDebugProbe(name string, fn func() any) {
	b.probes.RegisterProbe(name, fn)
}

var _ api.Control = (*Bridge)(nil)
