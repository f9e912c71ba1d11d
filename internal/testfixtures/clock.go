package testfixtures

import (
	"sync"
	"time"
)

// Clock is a settable time source that also knows the service time zone,
// so tests can reason in visit dates rather than instants.
type Clock struct {
	mu       sync.Mutex
	current  time.Time
	location *time.Location
}

// NewClock starts at start, or at ReferenceTime when start is zero. A nil
// location means JST.
func NewClock(start time.Time, location *time.Location) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	if location == nil {
		location = JST
	}
	return &Clock{current: start, location: location}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns Now for injection; a nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Location is the zone Today and DaysFromToday resolve dates in.
func (c *Clock) Location() *time.Location {
	return c.location
}

// Today returns the current calendar date in the clock's zone.
func (c *Clock) Today() string {
	return c.Now().In(c.location).Format(time.DateOnly)
}

// DaysFromToday returns the calendar date n days after Today. Negative n
// gives past dates.
func (c *Clock) DaysFromToday(n int) string {
	return c.Now().In(c.location).AddDate(0, 0, n).Format(time.DateOnly)
}

// AdvanceDays moves the clock forward by whole days.
func (c *Clock) AdvanceDays(n int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.AddDate(0, 0, n)
	return c.current
}

// Set jumps to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}
