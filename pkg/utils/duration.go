package utils

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "Past due"
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%d days, %d hours", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%d hours, %d minutes", hours, minutes)
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// HumanTimeDiff describes the distance between two instants the way an operator
// reads it at a glance ("5 mins", "2 hours", "3 days"). The direction is ignored.
func HumanTimeDiff(from, to time.Time) string {
	diff := to.Sub(from)
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff < time.Hour:
		return plural(roundAtLeastOne(diff.Minutes()), "min", "mins")
	case diff < 24*time.Hour:
		return plural(roundAtLeastOne(diff.Hours()), "hour", "hours")
	default:
		return plural(roundAtLeastOne(diff.Hours()/24), "day", "days")
	}
}

// FormatInterval renders seconds as a number without trailing zeros, e.g. 90 -> "1.5"
// when divided by 60.
func FormatInterval(seconds int64, unit time.Duration) string {
	value := float64(seconds) / unit.Seconds()
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func roundAtLeastOne(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
