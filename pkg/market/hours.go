package market

import (
	"time"
	_ "time/tzdata"
)

// ExchangeTimezone is the timezone US equity sessions are defined in.
const ExchangeTimezone = "America/New_York"

const (
	regularOpenMinute  = 9*60 + 30
	regularCloseMinute = 16 * 60
)

// ExchangeLocation loads ExchangeTimezone, falling back to UTC.
func ExchangeLocation() *time.Location {
	loc, err := time.LoadLocation(ExchangeTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InRegularHours reports whether ts falls inside the 09:30-16:00 weekday
// window in loc. It is only used by sources that do not classify bars.
func InRegularHours(ts time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = ExchangeLocation()
	}
	local := ts.In(loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= regularOpenMinute && minute < regularCloseMinute
}
