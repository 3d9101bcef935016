package rota

import "testing"

func TestResolveTemplateWeek_AlwaysInRange(t *testing.T) {
	// GIVEN: every chaining pattern length and calendar weeks 1..6
	// THEN: the resolved template week stays within [1, templateWeekCount]
	for _, count := range []int{1, 2, 3, 4, 5, 6} {
		for week := 1; week <= 6; week++ {
			got := ResolveTemplateWeek(week, count)
			if got < 1 || got > count {
				t.Errorf("resolve(%d, %d) = %d, out of range [1,%d]", week, count, got, count)
			}
		}
	}
}

func TestResolveTemplateWeek_SingleWeek(t *testing.T) {
	for week := 1; week <= 6; week++ {
		if got := ResolveTemplateWeek(week, 1); got != 1 {
			t.Errorf("resolve(%d, 1) = %d, want 1", week, got)
		}
	}
}

func TestResolveTemplateWeek_Alternating(t *testing.T) {
	want := []int{1, 2, 1, 2, 1, 2}
	for i, w := range want {
		if got := ResolveTemplateWeek(i+1, 2); got != w {
			t.Errorf("resolve(%d, 2) = %d, want %d", i+1, got, w)
		}
	}
}

func TestResolveTemplateWeek_ThreeWeekCycle(t *testing.T) {
	want := []int{1, 2, 3, 1, 2, 3}
	for i, w := range want {
		if got := ResolveTemplateWeek(i+1, 3); got != w {
			t.Errorf("resolve(%d, 3) = %d, want %d", i+1, got, w)
		}
	}
}

func TestResolveTemplateWeek_FourWeekCapsNotWraps(t *testing.T) {
	// GIVEN: the 4-week pattern
	// THEN: weeks 5 and 6 reuse week 4 instead of wrapping to 1 or 2.
	// Existing rotas rely on the cap; unifying it with the generic wrap
	// would silently reschedule them.
	want := []int{1, 2, 3, 4, 4, 4}
	for i, w := range want {
		if got := ResolveTemplateWeek(i+1, 4); got != w {
			t.Errorf("resolve(%d, 4) = %d, want %d (cap, not wrap)", i+1, got, w)
		}
	}
}

func TestResolveTemplateWeek_GenericWraps(t *testing.T) {
	// Contrast with the 4-week cap: a 5-week pattern wraps week 6 to 1.
	if got := ResolveTemplateWeek(6, 5); got != 1 {
		t.Errorf("resolve(6, 5) = %d, want 1 (generic wrap)", got)
	}
}
