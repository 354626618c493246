package model

import (
	"math"
	"time"
)

// MaxDelaySeconds is the longest delay, in seconds, a trigger or the settings
// may request. Larger values are treated as absent.
const MaxDelaySeconds int64 = math.MaxUint32

// CountdownConfig contains runtime settings for the countdown engine and the
// trigger gate in front of it.
type CountdownConfig struct {
	// Granularity is the amount of time removed from the countdown per tick.
	Granularity time.Duration
	// DefaultDelay is used when a trigger does not carry a delay.
	DefaultDelay time.Duration
}
