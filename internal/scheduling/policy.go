package scheduling

import "time"

// Policy carries the workload rules the planner enforces. Values are
// overridable through config so deployments can run tighter or looser weeks.
type Policy struct {
	WorkDayStartHour int // weekday office opens
	WorkDayEndHour   int // weekday office closes
	WeekendStartHour int
	WeekendEndHour   int

	MaxDailyMinutes  int // per-day workload cap
	MinWeeklyMinutes int // soft weekly floor
	MaxWeeklyMinutes int // hard weekly cap

	TravelBufferMinutes     int // fixed post-visit transit gap
	OfficeSplitMinMinutes   int // office fragments shorter than this are dropped
	OfficePersistMinMinutes int // office blocks shorter than this are not persisted

	MaxDailyVisits        int // per-day visit count cap, urgent bypasses
	MaxWeekendOfficeStaff int // staff scheduled per weekend day
}

func DefaultPolicy() Policy {
	return Policy{
		WorkDayStartHour:        8,
		WorkDayEndHour:          16,
		WeekendStartHour:        10,
		WeekendEndHour:          15,
		MaxDailyMinutes:         480,
		MinWeeklyMinutes:        1680, // 28h
		MaxWeeklyMinutes:        2280, // 38h
		TravelBufferMinutes:     10,
		OfficeSplitMinMinutes:   15,
		OfficePersistMinMinutes: 120,
		MaxDailyVisits:          3,
		MaxWeekendOfficeStaff:   2,
	}
}

// dayWindow returns the working window for a date under this policy.
func (p Policy) dayWindow(date time.Time) (TimeOfDay, TimeOfDay) {
	if isWeekend(date) {
		return NewTimeOfDay(p.WeekendStartHour, 0), NewTimeOfDay(p.WeekendEndHour, 0)
	}
	return NewTimeOfDay(p.WorkDayStartHour, 0), NewTimeOfDay(p.WorkDayEndHour, 0)
}

// dayCapacity is the per-day workload cap; weekend days are capped by their
// shorter working window.
func (p Policy) dayCapacity(date time.Time) int {
	if isWeekend(date) {
		start, end := p.dayWindow(date)
		return int(end - start)
	}
	return p.MaxDailyMinutes
}

// dayOffEpoch is the reference Monday for day-off rotation. Week indices are
// counted from here so the rotation is a pure function of the week.
var dayOffEpoch = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
