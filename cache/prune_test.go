package cache

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseUntilFormats mirrors the builder's own until-filter acceptance
// test: every spelling of "24h ago" must parse to a KeepDuration within a
// second of -24h, and date-only spellings must parse to a duration
// somewhere between -24h and -(24h + current-hour-of-day).
func TestParseUntilFormats(t *testing.T) {
	now := time.Now().UTC()
	tenHoursAgoTs := now.Add(-24 * time.Hour).Unix()
	tenHoursAgoTime := time.Unix(tenHoursAgoTs, 0)

	exact := []string{
		"24h",
		strconv.Itoa(int(tenHoursAgoTs)),
		tenHoursAgoTime.Format(time.RFC3339),
		tenHoursAgoTime.Format(time.RFC3339Nano),
		tenHoursAgoTime.Format("2006-01-02T15:04:05"),
		tenHoursAgoTime.Format("2006-01-02T15:04:05.999999999"),
	}
	for _, tc := range exact {
		d, err := ParseUntil(tc)
		require.NoError(t, err, tc)
		secs := d.Seconds()
		assert.Truef(t, secs >= -86401 && secs <= -86400, "%q: got %fs, want within [-86401,-86400]", tc, secs)
	}

	dateOnly := []string{
		tenHoursAgoTime.Format("2006-01-02Z07:00"),
		tenHoursAgoTime.Format("2006-01-02"),
	}
	for _, tc := range dateOnly {
		d, err := ParseUntil(tc)
		require.NoError(t, err, tc)
		hours := int(d.Hours())
		truncated := -24 - now.Hour()
		assert.Truef(t, hours >= truncated-1 && hours <= truncated, "%q: got %dh, want within [%d,%d]", tc, hours, truncated-1, truncated)
	}
}

func TestParseUntilInvalid(t *testing.T) {
	_, err := ParseUntil("not-a-time")
	assert.Error(t, err)
}

func TestToPruneInfoEmptyUntil(t *testing.T) {
	info, err := ToPruneInfo(true, "", 1024)
	require.NoError(t, err)
	assert.True(t, info.All)
	assert.EqualValues(t, 1024, info.KeepStorage)
	assert.Zero(t, info.KeepDuration)
}
