// Package cache remembers when each project was last built so repeated picks
// of the same project skip the image and fuzzer build steps.
package cache

import (
	"context"
	"time"
)

type Store interface {
	// IsFresh reports whether the project was built less than ttl ago. A
	// project that was never built is not fresh.
	IsFresh(ctx context.Context, project string, ttl time.Duration) bool
	// MarkBuilt records a successful build at the current time.
	MarkBuilt(ctx context.Context, project string) error
}

type Clock func() time.Time

func fresh(builtAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(builtAt) < ttl
}

func toUnix(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

func fromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}
