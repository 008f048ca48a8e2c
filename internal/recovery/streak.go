// Package recovery derives streaks, milestones and savings from a profile.
// Everything here is pure: callers supply "now" and persist the results.
package recovery

import (
	"time"

	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/utils"
)

// Streak is the current and best run of consecutive sober days
type Streak struct {
	Current int `json:"streak"`
	Longest int `json:"longestStreak"`
}

// CalculateStreak derives both streak values from the full log.
//
// Every day must be logged to count. A missing day ends a run just like a
// consumed day does. The current run is anchored at today when today is
// logged sober, at yesterday when today has no entry yet, and is zero when
// today is logged as consumed. Dates that fail to parse are ignored.
func CalculateStreak(log []models.LogEntry, today time.Time) Streak {
	if len(log) == 0 {
		return Streak{}
	}

	// Later entries win for duplicated dates
	verdicts := make(map[string]bool, len(log))
	for _, e := range log {
		if !utils.ValidateDate(e.Date) {
			continue
		}
		verdicts[e.Date] = e.Consumed
	}

	return Streak{
		Current: currentRun(verdicts, today),
		Longest: longestRun(verdicts),
	}
}

func currentRun(verdicts map[string]bool, today time.Time) int {
	day := utils.StartOfDay(today)
	consumed, logged := verdicts[utils.DateKey(day)]
	switch {
	case logged && consumed:
		return 0
	case !logged:
		day = utils.AddDays(day, -1)
	}

	run := 0
	for {
		consumed, logged := verdicts[utils.DateKey(day)]
		if !logged || consumed {
			return run
		}
		run++
		day = utils.AddDays(day, -1)
	}
}

func longestRun(verdicts map[string]bool) int {
	longest := 0
	for date, consumed := range verdicts {
		if consumed {
			continue
		}
		start, err := time.Parse(dateLayout, date)
		if err != nil {
			continue
		}
		// Only count from the first day of a run
		if c, ok := verdicts[utils.DateKey(utils.AddDays(start, -1))]; ok && !c {
			continue
		}
		run := 0
		for d := start; ; d = utils.AddDays(d, 1) {
			c, ok := verdicts[utils.DateKey(d)]
			if !ok || c {
				break
			}
			run++
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
