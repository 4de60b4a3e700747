// Package timeutil formats clip offsets and run times for reports.
package timeutil

import (
	"fmt"
	"time"
)

// Clock converts whole seconds to HH:MM:SS. Hours are not wrapped at 24.
// Negative values are clamped to zero.
//
// Example:
//
//	Clock(0)     // "00:00:00"
//	Clock(90)    // "00:01:30"
//	Clock(3661)  // "01:01:01"
func Clock(seconds int) string {
	seconds = max(seconds, 0)
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds%60)
}

// Span renders a half-open range of seconds as "HH:MM:SS-HH:MM:SS".
func Span(start, length int) string {
	return Clock(start) + "-" + Clock(start+length)
}

// Elapsed renders a wall-clock duration rounded to a tenth of a second
// below one minute and to whole seconds above.
func Elapsed(d time.Duration) string {
	if d < time.Minute {
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
