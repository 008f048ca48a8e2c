package recovery

import (
	"testing"
	"time"

	"github.com/julianstephens/rehab/internal/models"
)

func TestSoberDays(t *testing.T) {
	now := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		quit time.Time
		want int
	}{
		{name: "quit today", quit: time.Date(2024, 6, 15, 7, 0, 0, 0, time.UTC), want: 0},
		{name: "quit late last night", quit: time.Date(2024, 6, 14, 23, 0, 0, 0, time.UTC), want: 1},
		{name: "ten days", quit: time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC), want: 10},
		{name: "future quit date", quit: time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SoberDays(tt.quit, now); got != tt.want {
				t.Errorf("SoberDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSoberDuration(t *testing.T) {
	quit := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	now := quit.Add(3*24*time.Hour + 4*time.Hour + 5*time.Minute + 6*time.Second)

	got := SoberDuration(quit, now)
	want := Duration{Days: 3, Hours: 4, Minutes: 5, Seconds: 6}
	if got != want {
		t.Errorf("SoberDuration() = %+v, want %+v", got, want)
	}

	if got := SoberDuration(now, quit); got != (Duration{}) {
		t.Errorf("expected zero duration for future quit, got %+v", got)
	}
}

func TestPointsDelta(t *testing.T) {
	if PointsDelta(false) != 10 {
		t.Errorf("sober log should earn 10 points")
	}
	if PointsDelta(true) != -5 {
		t.Errorf("consumed log should cost 5 points")
	}
}

func TestWeekHistory(t *testing.T) {
	log := []models.LogEntry{sober(0), consumed(2), sober(6), sober(9)}
	got := WeekHistory(log, today)
	if len(got) != 7 {
		t.Fatalf("expected 7 days, got %d", len(got))
	}

	want := []DayStatus{DaySober, DayNone, DayNone, DayNone, DayConsumed, DayNone, DaySober}
	for i, d := range got {
		if d.Status != want[i] {
			t.Errorf("day %d (%s): status = %s, want %s", i, d.Date, d.Status, want[i])
		}
	}
	if got[6].Date != day(0) {
		t.Errorf("last day = %s, want today %s", got[6].Date, day(0))
	}
}
