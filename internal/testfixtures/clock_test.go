package testfixtures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_VisitDates(t *testing.T) {
	clock := NewClock(time.Time{}, nil)
	assert.True(t, clock.Now().Equal(ReferenceTime()))
	assert.Equal(t, "2025-06-01", clock.Today())
	assert.Equal(t, "2025-05-31", clock.DaysFromToday(-1))

	late := time.Date(2025, time.June, 1, 15, 30, 0, 0, time.UTC)
	clock.Set(late)
	assert.Equal(t, "2025-06-02", clock.Today(), "15:30 UTC is already the next day in Tokyo")

	utc := NewClock(late, time.UTC)
	assert.Equal(t, "2025-06-01", utc.Today())

	nowFn := clock.NowFunc()
	assert.Equal(t, late.AddDate(0, 0, 3), clock.AdvanceDays(3))
	assert.Equal(t, "2025-06-05", clock.Today())
	assert.Equal(t, clock.Now(), nowFn())
}
