package types

import (
	"math"
	"time"
)

type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"  // never synced
	SourceSynced   ConfigSource = "synced"   // refreshed in this iteration
	SourcePrevious ConfigSource = "previous" // last sync failed, older synced values kept
)

// SessionConfig is passed by value into every iteration.
type SessionConfig struct {
	SessionDuration time.Duration
	BuildCacheTTL   time.Duration
	Source          ConfigSource
}

// Stale returns the config to use after a failed sync.
func (s SessionConfig) Stale() SessionConfig {
	if s.Source == SourceSynced {
		s.Source = SourcePrevious
	}
	return s
}

// MaxConfigDuration caps session and cache durations read from outside.
const MaxConfigDuration = 10 * 365 * 24 * time.Hour

// DurationFromSeconds converts a configured number of seconds. Values below one
// second are rejected since the fuzz engine treats a zero time limit as
// unbounded. Large values are capped at MaxConfigDuration.
func DurationFromSeconds(secs float64) (time.Duration, bool) {
	if math.IsNaN(secs) || secs < 1 {
		return 0, false
	}
	if secs >= MaxConfigDuration.Seconds() {
		return MaxConfigDuration, true
	}
	return time.Duration(secs * float64(time.Second)), true
}
