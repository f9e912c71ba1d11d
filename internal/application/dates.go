package application

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const civilDateLayout = "2006-01-02"

// DefaultLocation is used when a service is built without an explicit timezone.
var DefaultLocation = mustLoadLocation("Asia/Tokyo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

func todayIn(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(civilDateLayout)
}

func checkVisitDate(date string, now time.Time, loc *time.Location, vErr *ValidationError) {
	date = strings.TrimSpace(date)
	if date == "" {
		vErr.add("date", "date is required")
		return
	}
	if _, err := time.ParseInLocation(civilDateLayout, date, loc); err != nil {
		vErr.add("date", "date must be YYYY-MM-DD")
		return
	}
	if date < todayIn(now, loc) {
		vErr.add("date", "date must not be in the past")
	}
}

// dateToEpochMillis encodes midnight of a civil date in loc as epoch milliseconds.
func dateToEpochMillis(date string, loc *time.Location) (string, error) {
	day, err := time.ParseInLocation(civilDateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return strconv.FormatInt(day.UnixMilli(), 10), nil
}

// epochMillisToDate decodes an epoch-millis string into the civil date in loc.
func epochMillisToDate(millis string, loc *time.Location) (string, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(millis), 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse epoch millis %q: %w", millis, err)
	}
	return time.UnixMilli(ms).In(loc).Format(civilDateLayout), nil
}
