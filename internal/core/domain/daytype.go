package domain

import "time"

// DayType selects which departure list a route runs on a given date.
type DayType int

const (
	Weekday DayType = iota
	Saturday
	SundayOrHoliday
)

var dayTypeNames = [...]string{"weekday", "saturday", "sunday_or_holiday"}

func (d DayType) String() string {
	if d < 0 || int(d) >= len(dayTypeNames) {
		return "unknown"
	}
	return dayTypeNames[d]
}

// MarshalText lets DayType render as its name in JSON responses.
func (d DayType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDayType maps a timetable variant key back to its DayType.
func ParseDayType(s string) (DayType, bool) {
	for i, name := range dayTypeNames {
		if name == s {
			return DayType(i), true
		}
	}
	return Weekday, false
}

// HolidayCalendar is the set of national holidays, keyed by YYYY-MM-DD.
type HolidayCalendar map[string]struct{}

// Contains reports whether the calendar date of t is a holiday.
// The comparison uses t's own location.
func (h HolidayCalendar) Contains(t time.Time) bool {
	_, ok := h[t.Format("2006-01-02")]
	return ok
}

// ClassifyDay determines the schedule a date runs on. Holidays take
// precedence over the weekday, and run the Sunday schedule.
func ClassifyDay(t time.Time, holidays HolidayCalendar) DayType {
	if holidays.Contains(t) {
		return SundayOrHoliday
	}
	switch t.Weekday() {
	case time.Sunday:
		return SundayOrHoliday
	case time.Saturday:
		return Saturday
	default:
		return Weekday
	}
}
