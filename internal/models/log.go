package models

import "sort"

// LogEntry is one day's consumption verdict. Date is YYYY-MM-DD.
type LogEntry struct {
	Date     string `json:"date" firestore:"date"`
	Consumed bool   `json:"consumed" firestore:"consumed"`
	Notes    string `json:"notes,omitempty" firestore:"notes,omitempty"`
}

// UpsertLogEntry returns log with entry added, replacing any entry for the same date.
// The input slice is not modified.
func UpsertLogEntry(log []LogEntry, entry LogEntry) []LogEntry {
	out := make([]LogEntry, 0, len(log)+1)
	for _, e := range log {
		if e.Date != entry.Date {
			out = append(out, e)
		}
	}
	return append(out, entry)
}

// FindLogEntry returns the entry for date, if any
func FindLogEntry(log []LogEntry, date string) (LogEntry, bool) {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Date == date {
			return log[i], true
		}
	}
	return LogEntry{}, false
}

// SortLogByDate returns a copy of log ordered by date ascending
func SortLogByDate(log []LogEntry) []LogEntry {
	out := append([]LogEntry(nil), log...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
