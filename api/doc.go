// Package api
// Author: momentics <momentics@gmail.com>
//
// Public contracts for the hioload-frames GPU frame resource layer.
// Defines shape descriptors, structured errors, the device boundary,
// and the control/debug/shutdown interfaces implemented elsewhere.
// All types here are dependency-free so consumers can program against
// the contracts without pulling in any implementation package.
package api
