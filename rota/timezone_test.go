package rota

import (
	"context"
	"testing"
	"time"
)

// countingSource counts descriptor fetches so tests can assert caching.
type countingSource struct {
	desc  TimeZoneDescriptor
	calls int
}

func (s *countingSource) Descriptor(context.Context) (TimeZoneDescriptor, error) {
	s.calls++
	return s.desc, nil
}

func adjuster(desc TimeZoneDescriptor) *TimeZoneAdjuster {
	return NewTimeZoneAdjuster(StaticTimeZoneSource{Desc: desc}, time.UTC)
}

func TestAdjust_ZeroBiasIsIdentity(t *testing.T) {
	a := adjuster(TimeZoneDescriptor{})
	got, err := a.Adjust(context.Background(), WallClock{Hour: 9, Minute: 30}, NewDate(2025, time.June, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (WallClock{Hour: 9, Minute: 30}) {
		t.Errorf("got %s, want 09:30", got)
	}
}

func TestAdjust_PositiveBiasShiftsEarlier(t *testing.T) {
	// GIVEN: a site 90 minutes west of UTC
	a := adjuster(TimeZoneDescriptor{Bias: 90})
	got, err := a.Adjust(context.Background(), WallClock{Hour: 9, Minute: 0}, NewDate(2025, time.June, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (WallClock{Hour: 7, Minute: 30}) {
		t.Errorf("got %s, want 07:30", got)
	}
}

func TestAdjust_WrapsForwardPastMidnight(t *testing.T) {
	// 23:45 shifted 90 minutes later lands on 01:15 the "next day"; the
	// clock stays within [00:00, 24:00).
	a := adjuster(TimeZoneDescriptor{Bias: -90})
	got, err := a.Adjust(context.Background(), WallClock{Hour: 23, Minute: 45}, NewDate(2025, time.June, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (WallClock{Hour: 1, Minute: 15}) {
		t.Errorf("got %s, want 01:15", got)
	}
}

func TestAdjust_WrapsBackwardPastMidnight(t *testing.T) {
	a := adjuster(TimeZoneDescriptor{Bias: 90})
	got, err := a.Adjust(context.Background(), WallClock{Hour: 0, Minute: 30}, NewDate(2025, time.June, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (WallClock{Hour: 23, Minute: 0}) {
		t.Errorf("got %s, want 23:00", got)
	}
}

func TestAdjust_RoundTripWithNegatedBias(t *testing.T) {
	// Adjusting with bias b and then with -b restores the input, for any
	// wall-clock, including ones that wrap.
	fwd := adjuster(TimeZoneDescriptor{Bias: 135})
	back := adjuster(TimeZoneDescriptor{Bias: -135})
	ref := NewDate(2025, time.June, 1)

	for _, in := range []WallClock{{0, 0}, {0, 30}, {9, 15}, {14, 45}, {23, 59}} {
		mid, err := fwd.Adjust(context.Background(), in, ref)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out, err := back.Adjust(context.Background(), mid, ref)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != in {
			t.Errorf("round trip %s -> %s -> %s, want %s", in, mid, out, in)
		}
	}
}

func TestAdjust_DaylightBiasApplied(t *testing.T) {
	// GIVEN: a site location with daylight saving
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	a := NewTimeZoneAdjuster(StaticTimeZoneSource{
		Desc: TimeZoneDescriptor{Bias: 0, DaylightBias: -60, StandardBias: 0},
	}, loc)

	// WHEN: adjusting the same wall-clock on a winter and a summer date
	winter, err := a.Adjust(context.Background(), WallClock{Hour: 9, Minute: 0}, NewDate(2025, time.January, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	summer, err := a.Adjust(context.Background(), WallClock{Hour: 9, Minute: 0}, NewDate(2025, time.July, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// THEN: only the summer date picks up the daylight component
	if winter != (WallClock{Hour: 9, Minute: 0}) {
		t.Errorf("winter = %s, want 09:00", winter)
	}
	if summer != (WallClock{Hour: 10, Minute: 0}) {
		t.Errorf("summer = %s, want 10:00", summer)
	}
}

func TestAdjust_DescriptorCachedUntilInvalidate(t *testing.T) {
	src := &countingSource{desc: TimeZoneDescriptor{Bias: 60}}
	a := NewTimeZoneAdjuster(src, time.UTC)
	ref := NewDate(2025, time.June, 1)

	for i := 0; i < 3; i++ {
		if _, err := a.Adjust(context.Background(), WallClock{Hour: 12}, ref); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if src.calls != 1 {
		t.Errorf("descriptor fetched %d times, want 1", src.calls)
	}

	a.Invalidate()
	if _, err := a.Adjust(context.Background(), WallClock{Hour: 12}, ref); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("descriptor fetched %d times after invalidate, want 2", src.calls)
	}
}
