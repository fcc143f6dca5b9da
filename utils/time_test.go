package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSameCalendarDay(t *testing.T) {
	morning := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)
	night := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC)

	assert.True(t, SameCalendarDay(morning, night))
	assert.False(t, SameCalendarDay(night, nextDay))
}

func TestSameCalendarDayComparesInUTC(t *testing.T) {
	// 23:00 UTC-3 is 02:00 UTC the next day
	sp := time.FixedZone("America/Sao_Paulo", -3*60*60)
	local := time.Date(2026, 3, 10, 23, 0, 0, 0, sp)
	utc := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC)

	assert.True(t, SameCalendarDay(local, utc))
	assert.False(t, SameCalendarDay(local, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)))
}

func TestIsExpired(t *testing.T) {
	assert.True(t, IsExpired(UTCNow().Add(-time.Second)))
	assert.False(t, IsExpired(UTCNow().Add(time.Hour)))
}
