package quiz

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var timestampPattern = regexp.MustCompile(`^(\d+):(\d+)$`)

// ParseTimestamp converts an "m:ss" timestamp into a playback offset
// (minutes*60 + seconds).
func ParseTimestamp(ts string) (time.Duration, error) {
	m := timestampPattern.FindStringSubmatch(ts)
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q: want minutes:seconds", ts)
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	return time.Duration(minutes*60+seconds) * time.Second, nil
}

// FormatTimestamp renders d as "m:ss".
func FormatTimestamp(d time.Duration) string {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
