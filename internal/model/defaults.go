package model

import "time"

// Shared defaults used by the engine and both presentation binaries.
const (
	DefaultSlideDuration   = 10 * time.Second
	DefaultRefreshInterval = 30 * time.Second
	DefaultCacheTTL        = time.Minute
	DefaultMaxRetries      = 3
	DefaultRetryBaseDelay  = time.Second
	DefaultRequestTimeout  = 15 * time.Second
)
