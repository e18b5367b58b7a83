package tradingtime

import (
	"testing"
	"time"
)

func TestIsTradingDay(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"monday", time.Date(2026, 8, 24, 10, 0, 0, 0, Beijing), true},
		{"friday", time.Date(2026, 8, 28, 10, 0, 0, 0, Beijing), true},
		{"saturday", time.Date(2026, 8, 29, 10, 0, 0, 0, Beijing), false},
		{"sunday", time.Date(2026, 8, 30, 10, 0, 0, 0, Beijing), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTradingDay(tt.t); got != tt.want {
				t.Errorf("IsTradingDay(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestIsTradingHours(t *testing.T) {
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, Beijing)

	tests := []struct {
		name string
		hour int
		min  int
		want bool
	}{
		{"before open", 9, 0, false},
		{"morning open", 9, 30, true},
		{"morning close", 11, 30, true},
		{"lunch break", 12, 0, false},
		{"afternoon open", 13, 0, true},
		{"afternoon close", 15, 0, true},
		{"after close", 15, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := day.Add(time.Duration(tt.hour)*time.Hour + time.Duration(tt.min)*time.Minute)
			if got := IsTradingHours(ts); got != tt.want {
				t.Errorf("IsTradingHours(%02d:%02d) = %v, want %v", tt.hour, tt.min, got, tt.want)
			}
		})
	}
}

func TestIsTradingHours_Weekend(t *testing.T) {
	sat := time.Date(2026, 8, 29, 10, 0, 0, 0, Beijing)
	if IsTradingHours(sat) {
		t.Error("expected weekend to be outside trading hours")
	}
}

func TestDateTag_ConvertsToBeijing(t *testing.T) {
	// 2026-08-24 23:00 UTC is already the 25th in Beijing
	utc := time.Date(2026, 8, 24, 23, 0, 0, 0, time.UTC)
	if got := DateTag(utc); got != "2026-08-25" {
		t.Errorf("DateTag = %s, want 2026-08-25", got)
	}
}
