package habit

import (
	"testing"
	"time"
)

func TestParseFrequency(t *testing.T) {
	for _, valid := range []string{"daily", "weekly", "custom"} {
		if _, err := ParseFrequency(valid); err != nil {
			t.Errorf("ParseFrequency(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "monthly", "Daily"} {
		if _, err := ParseFrequency(invalid); err == nil {
			t.Errorf("ParseFrequency(%q): expected error", invalid)
		}
	}
}

func TestWindowStartDaily(t *testing.T) {
	now := time.Date(2025, 6, 12, 15, 30, 45, 0, time.UTC)
	got := WindowStart(FrequencyDaily, now)
	want := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("WindowStart(daily) = %v, want %v", got, want)
	}
}

func TestWindowStartCustomBehavesLikeDaily(t *testing.T) {
	now := time.Date(2025, 6, 12, 23, 59, 59, 0, time.UTC)
	if got := WindowStart(FrequencyCustom, now); got.Day() != 12 || got.Hour() != 0 {
		t.Errorf("WindowStart(custom) = %v, want start of same day", got)
	}
}

func TestWindowStartWeekly(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			// Thursday -> preceding Monday
			name: "midweek",
			now:  time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			// Monday is its own window start
			name: "monday",
			now:  time.Date(2025, 6, 9, 0, 0, 1, 0, time.UTC),
			want: time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			// Sunday belongs to the week that began the previous Monday
			name: "sunday",
			now:  time.Date(2025, 6, 15, 22, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WindowStart(FrequencyWeekly, tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("WindowStart(weekly, %v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}
