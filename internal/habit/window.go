package habit

import (
	"fmt"
	"time"
)

// Frequency determines how often a habit can be completed.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// ParseFrequency validates a raw frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// WindowStart returns the start of the completion window containing now.
// A habit may be completed at most once per window: daily habits reset at
// local midnight, weekly habits at the start of the ISO week (Monday).
// Custom habits behave like daily ones.
func WindowStart(freq Frequency, now time.Time) time.Time {
	day := startOfDay(now)
	if freq != FrequencyWeekly {
		return day
	}

	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started the previous Monday
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
