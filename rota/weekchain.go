package rota

// =============================================================================
// WEEK CHAIN RESOLVER - Calendar week to template week
// =============================================================================

// ResolveTemplateWeek maps a calendar-week-number (1-based within the month)
// to a template-week-number for the given chaining pattern:
//
//	1 week:   always 1
//	2 weeks:  alternating 1,2,1,2,...
//	3 weeks:  cycle of 3
//	4 weeks:  capped at 4 - calendar weeks beyond 4 reuse week 4, they do
//	          NOT wrap back to 1
//	N weeks:  generic modulo cycle
//
// The 4-week cap is a long-standing business rule, distinct from the generic
// wrap. Do not unify the two branches; weekchain_test.go pins the asymmetry.
func ResolveTemplateWeek(calendarWeek, templateWeekCount int) int {
	if calendarWeek < 1 {
		calendarWeek = 1
	}
	switch templateWeekCount {
	case 0, 1:
		return 1
	case 2:
		return ((calendarWeek - 1) % 2) + 1
	case 3:
		return ((calendarWeek - 1) % 3) + 1
	case 4:
		if calendarWeek > 4 {
			return 4
		}
		return calendarWeek
	default:
		return ((calendarWeek - 1) % templateWeekCount) + 1
	}
}
