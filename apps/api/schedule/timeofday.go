package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeToSeconds converts "HH:MM:SS" (or "HH:MM") to seconds since midnight.
// Hours past 23 are kept, so "25:10:00" is 90600. Malformed parts count as 0.
func TimeToSeconds(t string) int {
	parts := strings.Split(t, ":")
	if len(parts) < 2 {
		return 0
	}
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	seconds := 0
	if len(parts) >= 3 {
		seconds, _ = strconv.Atoi(parts[2])
	}
	return hours*3600 + minutes*60 + seconds
}

// SecondsSinceMidnight returns the number of seconds since midnight for the given time
func SecondsSinceMidnight(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// FormatTimeHHMMSS converts seconds since midnight to HH:MM:SS format
func FormatTimeHHMMSS(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
