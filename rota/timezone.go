/*
timezone.go - Template-local to absolute time conversion

PURPOSE:
  Weekly templates store wall-clock times in the site's local convention,
  while schedule records persist absolute timestamps. The adjuster shifts
  a template time by the site's seasonally varying timezone bias so that
  the persisted instant lands on the intended local wall-clock.

BIAS CONVENTION:
  The descriptor follows the minutes-west-of-UTC convention: a positive
  bias means the site is west of UTC. The effective bias for a reference
  date is bias + daylightBias when that date falls in daylight-saving,
  bias + standardBias otherwise.

DST DETECTION:
  A reference date is in daylight-saving when its minutes-west offset is
  strictly smaller than the larger of the January and July offsets for
  that year. This works in both hemispheres.

CACHING:
  The descriptor is fetched once per process lifetime and cached behind a
  RWMutex. Invalidate() forces a refetch on the next call; multiple staff
  runs may read the cache concurrently.
*/
package rota

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// TIMEZONE DESCRIPTOR
// =============================================================================

// TimeZoneDescriptor is the site-wide timezone information, in minutes
// west of UTC.
type TimeZoneDescriptor struct {
	Bias         int
	DaylightBias int
	StandardBias int
}

// TimeZoneSource supplies the site-wide descriptor. Implementations may
// read it from the backing store or from static configuration.
type TimeZoneSource interface {
	Descriptor(ctx context.Context) (TimeZoneDescriptor, error)
}

// StaticTimeZoneSource returns a fixed descriptor. Used when the site
// timezone comes from configuration rather than the backing store.
type StaticTimeZoneSource struct {
	Desc TimeZoneDescriptor
}

func (s StaticTimeZoneSource) Descriptor(context.Context) (TimeZoneDescriptor, error) {
	return s.Desc, nil
}

// =============================================================================
// TIMEZONE ADJUSTER
// =============================================================================

// TimeZoneAdjuster converts template wall-clock times into the wall-clock
// to persist, applying the site's effective bias for the reference date.
type TimeZoneAdjuster struct {
	source TimeZoneSource
	loc    *time.Location

	mu     sync.RWMutex
	cached *TimeZoneDescriptor
}

// NewTimeZoneAdjuster creates an adjuster. loc is the site location used
// for daylight-saving detection; nil defaults to time.Local.
func NewTimeZoneAdjuster(source TimeZoneSource, loc *time.Location) *TimeZoneAdjuster {
	if loc == nil {
		loc = time.Local
	}
	return &TimeZoneAdjuster{source: source, loc: loc}
}

// Adjust shifts a template-local wall-clock time by the effective bias for
// the reference date. The result is normalized into [00:00, 24:00) with
// wraparound in both directions, so inputs near midnight stay valid.
// Idempotent for a fixed (input, referenceDate, descriptor) triple.
func (a *TimeZoneAdjuster) Adjust(ctx context.Context, clock WallClock, ref DateOnly) (WallClock, error) {
	desc, err := a.descriptor(ctx)
	if err != nil {
		return WallClock{}, &PlatformError{Op: "load timezone descriptor", Err: err}
	}

	effective := desc.Bias + desc.StandardBias
	if a.isDaylight(ref) {
		effective = desc.Bias + desc.DaylightBias
	}

	minutes := clock.MinutesOfDay() - effective
	minutes = ((minutes % 1440) + 1440) % 1440
	return WallClock{Hour: minutes / 60, Minute: minutes % 60}, nil
}

// Invalidate drops the cached descriptor so the next Adjust refetches it.
func (a *TimeZoneAdjuster) Invalidate() {
	a.mu.Lock()
	a.cached = nil
	a.mu.Unlock()
}

func (a *TimeZoneAdjuster) descriptor(ctx context.Context) (TimeZoneDescriptor, error) {
	a.mu.RLock()
	cached := a.cached
	a.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cached != nil {
		return *a.cached, nil
	}
	desc, err := a.source.Descriptor(ctx)
	if err != nil {
		return TimeZoneDescriptor{}, err
	}
	a.cached = &desc
	return desc, nil
}

// isDaylight reports whether the reference date falls in daylight-saving
// in the site location, by comparing its minutes-west offset against the
// max of January's and July's offsets for that year.
func (a *TimeZoneAdjuster) isDaylight(ref DateOnly) bool {
	refWest := minutesWest(time.Date(ref.Year(), ref.Month(), ref.Day(), 12, 0, 0, 0, a.loc))
	janWest := minutesWest(time.Date(ref.Year(), time.January, 1, 12, 0, 0, 0, a.loc))
	julWest := minutesWest(time.Date(ref.Year(), time.July, 1, 12, 0, 0, 0, a.loc))

	maxWest := janWest
	if julWest > maxWest {
		maxWest = julWest
	}
	return refWest < maxWest
}

func minutesWest(t time.Time) int {
	_, offsetSeconds := t.Zone() // seconds east of UTC
	return -offsetSeconds / 60
}
