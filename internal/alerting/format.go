package alerting

import (
	"fmt"
	"time"
)

// DayLabel returns a human label for the calendar day of t relative to now:
// "Today", "Yesterday", "Tomorrow", or "<Mon> <Day>" (e.g. "Jun 1") for
// anything further out. Both times are compared in now's location.
func DayLabel(t, now time.Time) string {
	t = t.In(now.Location())

	ty, tm, td := t.Date()
	day := time.Date(ty, tm, td, 0, 0, 0, 0, now.Location())
	ny, nm, nd := now.Date()
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, now.Location())

	switch day.Sub(today) / (24 * time.Hour) {
	case 0:
		return "Today"
	case -1:
		return "Yesterday"
	case 1:
		return "Tomorrow"
	default:
		return t.Format("Jan 2")
	}
}

// FormatEventTime renders the detailed human form used in notification
// bodies: the relative day label plus a 12-hour clock time with zero-padded
// minutes, e.g. "Today, 3:04PM" or "Jun 1, 10:00AM".
func FormatEventTime(t, now time.Time) string {
	return fmt.Sprintf("%s, %s", DayLabel(t, now), t.In(now.Location()).Format("3:04PM"))
}
