package window

import (
	"fmt"
	"time"
)

// Window is one deterministic 12-hour half of a local calendar day:
// 00:00–11:59 or 12:00–23:59. Label equality is the sole notion of
// "same edition period".
type Window struct {
	Start time.Time
	End   time.Time
	Label string
}

// Current maps a wall-clock instant to its window. Pure and defined for
// all timestamps: any two instants inside the same half-day yield
// byte-identical labels.
func Current(now time.Time) Window {
	year, month, day := now.Date()

	startHour := 0
	if now.Hour() >= 12 {
		startHour = 12
	}

	start := time.Date(year, month, day, startHour, 0, 0, 0, now.Location())
	end := start.Add(12*time.Hour - time.Millisecond)

	label := fmt.Sprintf("%s %s–%s",
		start.Format("2006-01-02"),
		start.Format("15:04"),
		end.Format("15:04"),
	)

	return Window{Start: start, End: end, Label: label}
}

// CurrentLabel returns just the label for the window containing now.
func CurrentLabel(now time.Time) string {
	return Current(now).Label
}
