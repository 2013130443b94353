package cache

import (
	"fmt"
	"strconv"
	"time"
)

// PruneInfo describes a cache-eviction request: entries older than
// KeepDuration relative to now, bounded to KeepStorage bytes, with
// All forcing eviction of entries still reachable from a build.
type PruneInfo struct {
	All          bool
	KeepDuration time.Duration
	KeepStorage  int64
}

// ParseUntil accepts the same "until" filter spellings as the platform's
// image/container prune filters: a duration ("24h"), a Unix timestamp, or
// an RFC3339(Nano) or date/time literal, and returns the offset to add
// to now to reach that point (negative for a point in the past), used
// as KeepDuration.
func ParseUntil(until string) (time.Duration, error) {
	if d, err := time.ParseDuration(until); err == nil {
		return -d, nil
	}

	if ts, err := strconv.ParseInt(until, 10, 64); err == nil {
		return time.Unix(ts, 0).Sub(time.Now()), nil
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02Z07:00",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, until); err == nil {
			return t.Sub(time.Now()), nil
		}
	}

	return 0, fmt.Errorf("cache: %q is not a valid duration or time", until)
}

// ToPruneInfo builds a PruneInfo from filter-style arguments, mirroring
// the builder's own until/keep-storage prune flags.
func ToPruneInfo(all bool, until string, keepStorage int64) (PruneInfo, error) {
	info := PruneInfo{All: all, KeepStorage: keepStorage}
	if until == "" {
		return info, nil
	}
	d, err := ParseUntil(until)
	if err != nil {
		return PruneInfo{}, err
	}
	info.KeepDuration = d
	return info, nil
}
