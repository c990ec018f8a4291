package booking

import (
	"fmt"
	"time"
)

// SmartDate picks the collection day a dispatcher would: today if the
// booking happens before 13:00 local time, otherwise tomorrow, skipping
// forward over weekends until a weekday is reached. Pure function of the
// wall clock; no I/O.
func SmartDate(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)

	day := local
	if local.Hour() >= 13 {
		day = day.AddDate(0, 0, 1)
	}
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
}

// SmartEarliestTime returns the earliest collection time that has not
// already started: within [12:00, 17:00) the next full hour, otherwise
// the fixed default 12:00.
func SmartEarliestTime(now time.Time, loc *time.Location) string {
	hour := now.In(loc).Hour()
	if hour >= 12 && hour < 17 {
		return fmt.Sprintf("%02d:00", hour+1)
	}
	return "12:00"
}
