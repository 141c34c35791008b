// File: cache/key.go
// Author: momentics <momentics@gmail.com>
//
// Canonical cache key construction. The cache itself treats keys as opaque
// strings; these helpers give the two expected producers a stable,
// collision-free encoding for equal semantic inputs.

package cache

import (
	"strconv"
	"strings"
	"time"
)

// keySep separates key components. Unit separator keeps ordinary media IDs
// and parameter values from colliding with the joined form.
const keySep = "\x1f"

// SourceKey builds the decode-memoization key for a media source position:
// media identity plus presentation timestamp.
func SourceKey(mediaID string, pts time.Duration) string {
	return "src" + keySep + mediaID + keySep + strconv.FormatInt(pts.Microseconds(), 10)
}

// EffectKey builds the effect-output key: effect identity plus its ordered
// parameter list. Parameter order is significant.
func EffectKey(effectID string, params ...string) string {
	var b strings.Builder
	b.WriteString("fx")
	b.WriteString(keySep)
	b.WriteString(effectID)
	for _, p := range params {
		b.WriteString(keySep)
		b.WriteString(p)
	}
	return b.String()
}
