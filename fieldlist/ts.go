package fieldlist

import (
	"time"

	"github.com/go-fstable/fstable/internal/layout"
)

// nowFunc is the clock used to stamp new and merged field-lists. It is a
// package variable, not a hard call to time.Now, purely so tests can
// pin it to a fixed instant.
var nowFunc = time.Now

// computeTS implements the timestamp formula from spec.md §3:
// floor((wall_seconds_since_unix_epoch - TimestampEpoch) * 1000) mod 2^32.
func computeTS() uint32 {
	ms := nowFunc().UnixMilli() - layout.TimestampEpoch*1000

	return uint32(ms) //nolint:gosec // intentional mod-2^32 wraparound per spec
}
