package earning

import (
	"time"

	"lookbook-compensation/pkg/errutil"
)

// MonthRange returns the [start, end) bounds of month/year in loc, in UTC.
func MonthRange(month, year int, loc *time.Location) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, errutil.BadRequest("month must be between 1 and 12", nil)
	}
	if year < 1970 || year > 9999 {
		return time.Time{}, time.Time{}, errutil.BadRequest("year is out of range", nil)
	}
	if loc == nil {
		loc = time.UTC
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 1, 0).UTC(), nil
}
