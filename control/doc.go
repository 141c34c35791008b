// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration, metrics and debug introspection for the frame
// resource layer. Provides concurrent-safe primitives:
//   - snapshot config reads, atomic updates and reload listeners
//   - a metrics registry fed with pool and cache statistics
//   - debug probe registration and state export
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
