package era5

import (
	"fmt"
	"time"
)

// AllMonths returns "01".."12".
func AllMonths() []string {
	return zeroPadded(1, 12)
}

// AllDays returns "01".."31". CDS ignores days that do not exist in a month.
func AllDays() []string {
	return zeroPadded(1, 31)
}

// SynopticTimes returns "HH:00" from 00:00 every stepHours hours.
func SynopticTimes(stepHours int) []string {
	if stepHours <= 0 || stepHours > 24 {
		stepHours = 24
	}
	var out []string
	for h := 0; h < 24; h += stepHours {
		out = append(out, fmt.Sprintf("%02d:00", h))
	}
	return out
}

// MARSDateRange returns "YYYYMMDD/to/YYYYMMDD".
func MARSDateRange(start, end time.Time) string {
	return start.Format("20060102") + "/to/" + end.Format("20060102")
}

// MARSTimeRange returns "HH/to/HH/by/step", e.g. "00/to/23/by/3".
func MARSTimeRange(first, last, step int) string {
	return fmt.Sprintf("%02d/to/%02d/by/%d", first, last, step)
}

func zeroPadded(lo, hi int) []string {
	out := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, fmt.Sprintf("%02d", i))
	}
	return out
}
