package recovery

import (
	"errors"
	"testing"
	"time"
)

func TestProjectSavings(t *testing.T) {
	got, err := ProjectSavings(10, 50, true)
	if err != nil {
		t.Fatalf("ProjectSavings() error = %v", err)
	}
	want := Savings{Total: 500, Weekly: 350, Annual: 18250}
	if got != want {
		t.Errorf("ProjectSavings() = %+v, want %+v", got, want)
	}
}

func TestProjectSavingsNotApplicable(t *testing.T) {
	tests := []struct {
		name        string
		rate        float64
		hasQuitDate bool
	}{
		{name: "zero rate", rate: 0, hasQuitDate: true},
		{name: "negative rate", rate: -3, hasQuitDate: true},
		{name: "no quit date", rate: 50, hasQuitDate: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProjectSavings(10, tt.rate, tt.hasQuitDate)
			if !errors.Is(err, ErrSavingsNotApplicable) {
				t.Errorf("expected ErrSavingsNotApplicable, got %v", err)
			}
			if got != (Savings{}) {
				t.Errorf("expected no figures, got %+v", got)
			}
		})
	}
}

func TestSavingsSeries(t *testing.T) {
	now := time.Date(2024, 6, 15, 20, 0, 0, 0, time.UTC)
	quit := time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC)

	got := SavingsSeries(quit, 100, now)
	if len(got) != 7 {
		t.Fatalf("expected 7 points, got %d", len(got))
	}

	want := []float64{0, 0, 0, 100, 200, 300, 400}
	for i, p := range got {
		if p.Savings != want[i] {
			t.Errorf("point %d (%s): savings = %v, want %v", i, p.Date, p.Savings, want[i])
		}
	}
	if got[0].Date != "2024-06-09" || got[6].Date != "2024-06-15" {
		t.Errorf("unexpected date range %s..%s", got[0].Date, got[6].Date)
	}
}
