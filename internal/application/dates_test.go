package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckVisitDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC) // 2025-06-02 00:00 JST

	cases := map[string]string{
		"":           "date is required",
		"2025-6-2":   "date must be YYYY-MM-DD",
		"2025-06-01": "date must not be in the past",
		"2025-06-02": "",
		"2026-01-01": "",
	}
	for date, want := range cases {
		vErr := &ValidationError{}
		checkVisitDate(date, now, testJST, vErr)
		assert.Equal(t, want, vErr.FieldErrors["date"], "date %q", date)
	}
}

func TestEpochMillisRoundTrip(t *testing.T) {
	t.Parallel()

	millis, err := dateToEpochMillis("2025-06-02", testJST)
	require.NoError(t, err)
	assert.Equal(t, "1748790000000", millis)

	date, err := epochMillisToDate(millis, testJST)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", date)

	_, err = dateToEpochMillis("tomorrow", testJST)
	assert.Error(t, err)
	_, err = epochMillisToDate("1.5e12", testJST)
	assert.Error(t, err)
}

func TestDefaultLocation(t *testing.T) {
	t.Parallel()

	require.NotNil(t, DefaultLocation)
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, DefaultLocation).Zone()
	assert.Equal(t, 9*60*60, offset)
}
