package alerting

import (
	"testing"
	"time"
)

func TestDayLabel(t *testing.T) {
	now := time.Date(2026, 8, 27, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"same day morning", time.Date(2026, 8, 27, 1, 0, 0, 0, time.UTC), "Today"},
		{"same day late", time.Date(2026, 8, 27, 23, 59, 0, 0, time.UTC), "Today"},
		{"previous day", time.Date(2026, 8, 26, 23, 0, 0, 0, time.UTC), "Yesterday"},
		{"next day", time.Date(2026, 8, 28, 0, 30, 0, 0, time.UTC), "Tomorrow"},
		{"two days out", time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), "Aug 29"},
		{"next month", time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC), "Sep 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayLabel(tt.t, now); got != tt.want {
				t.Errorf("DayLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatEventTime(t *testing.T) {
	now := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)

	got := FormatEventTime(time.Date(2026, 8, 27, 15, 4, 0, 0, time.UTC), now)
	if got != "Today, 3:04PM" {
		t.Errorf("FormatEventTime() = %q, want %q", got, "Today, 3:04PM")
	}

	// Minutes are zero-padded on the 12-hour clock.
	got = FormatEventTime(time.Date(2026, 9, 1, 10, 5, 0, 0, time.UTC), now)
	if got != "Sep 1, 10:05AM" {
		t.Errorf("FormatEventTime() = %q, want %q", got, "Sep 1, 10:05AM")
	}

	got = FormatEventTime(time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), now)
	if got != "Tomorrow, 12:00AM" {
		t.Errorf("FormatEventTime() = %q, want %q", got, "Tomorrow, 12:00AM")
	}
}
