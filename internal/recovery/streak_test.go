package recovery

import (
	"testing"
	"time"

	"github.com/julianstephens/rehab/internal/models"
)

var today = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

// day returns the date n days before today
func day(n int) string {
	return today.AddDate(0, 0, -n).Format("2006-01-02")
}

func sober(n int) models.LogEntry   { return models.LogEntry{Date: day(n)} }
func consumed(n int) models.LogEntry { return models.LogEntry{Date: day(n), Consumed: true} }

func TestCalculateStreak(t *testing.T) {
	tests := []struct {
		name string
		log  []models.LogEntry
		want Streak
	}{
		{
			name: "empty log",
			log:  nil,
			want: Streak{},
		},
		{
			name: "sober today only",
			log:  []models.LogEntry{sober(0)},
			want: Streak{Current: 1, Longest: 1},
		},
		{
			name: "contiguous through today",
			log:  []models.LogEntry{sober(0), sober(1), sober(2), sober(3)},
			want: Streak{Current: 4, Longest: 4},
		},
		{
			name: "contiguous through yesterday, today not logged",
			log:  []models.LogEntry{sober(1), sober(2), sober(3)},
			want: Streak{Current: 3, Longest: 3},
		},
		{
			name: "consumed today resets current",
			log:  []models.LogEntry{consumed(0), sober(1), sober(2)},
			want: Streak{Current: 0, Longest: 2},
		},
		{
			name: "relapse splits runs",
			log:  []models.LogEntry{sober(0), sober(1), consumed(2), sober(3), sober(4), sober(5)},
			want: Streak{Current: 2, Longest: 3},
		},
		{
			name: "gap breaks the current run",
			log:  []models.LogEntry{sober(0), sober(2), sober(3), sober(4)},
			want: Streak{Current: 1, Longest: 3},
		},
		{
			name: "last log two days ago is not current",
			log:  []models.LogEntry{sober(2), sober(3)},
			want: Streak{Current: 0, Longest: 2},
		},
		{
			name: "unordered input",
			log:  []models.LogEntry{sober(2), sober(0), sober(1)},
			want: Streak{Current: 3, Longest: 3},
		},
		{
			name: "all consumed",
			log:  []models.LogEntry{consumed(0), consumed(1)},
			want: Streak{},
		},
		{
			name: "later duplicate wins",
			log:  []models.LogEntry{sober(0), consumed(0)},
			want: Streak{Current: 0, Longest: 0},
		},
		{
			name: "invalid dates ignored",
			log:  []models.LogEntry{{Date: "not-a-date"}, sober(0)},
			want: Streak{Current: 1, Longest: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateStreak(tt.log, today)
			if got != tt.want {
				t.Errorf("CalculateStreak() = %+v, want %+v", got, tt.want)
			}
			if got.Longest < got.Current {
				t.Errorf("longest %d below current %d", got.Longest, got.Current)
			}
		})
	}
}

func TestCalculateStreakAllSoberContiguous(t *testing.T) {
	for n := 1; n <= 40; n++ {
		log := make([]models.LogEntry, 0, n)
		for i := 0; i < n; i++ {
			log = append(log, sober(i))
		}
		got := CalculateStreak(log, today)
		if got.Longest != len(log) {
			t.Errorf("n=%d: longest = %d, want %d", n, got.Longest, len(log))
		}
		if got.Current != len(log) {
			t.Errorf("n=%d: current = %d, want %d", n, got.Current, len(log))
		}
	}
}

func TestCalculateStreakNoRunCrossesRelapse(t *testing.T) {
	for relapse := 0; relapse < 10; relapse++ {
		var log []models.LogEntry
		for i := 0; i < 10; i++ {
			if i == relapse {
				log = append(log, consumed(i))
			} else {
				log = append(log, sober(i))
			}
		}

		got := CalculateStreak(log, today)
		before, after := relapse, 9-relapse
		wantLongest := before
		if after > wantLongest {
			wantLongest = after
		}
		if got.Longest != wantLongest {
			t.Errorf("relapse on day %d: longest = %d, want %d", relapse, got.Longest, wantLongest)
		}
		if got.Current != relapse {
			t.Errorf("relapse on day %d: current = %d, want %d", relapse, got.Current, relapse)
		}
	}
}

func TestCalculateStreakIdempotent(t *testing.T) {
	log := []models.LogEntry{sober(0), consumed(1), sober(2), sober(3)}
	snapshot := append([]models.LogEntry(nil), log...)

	first := CalculateStreak(log, today)
	second := CalculateStreak(log, today)
	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
	for i := range log {
		if log[i] != snapshot[i] {
			t.Fatalf("log mutated at %d", i)
		}
	}
}

func TestCalculateStreakAcrossMonthBoundary(t *testing.T) {
	march1 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	log := []models.LogEntry{
		{Date: "2024-02-28"},
		{Date: "2024-02-29"},
		{Date: "2024-03-01"},
	}
	got := CalculateStreak(log, march1)
	if got.Current != 3 || got.Longest != 3 {
		t.Errorf("CalculateStreak() = %+v, want 3/3", got)
	}
}
