package recovery

import (
	"time"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/utils"
)

// DayStatus is the verdict shown for one day of the weekly history
type DayStatus string

const (
	DaySober    DayStatus = "sober"
	DayConsumed DayStatus = "consumed"
	DayNone     DayStatus = "none"
)

// HistoryDay is one cell of the weekly log view
type HistoryDay struct {
	Date   string    `json:"date"`
	Status DayStatus `json:"status"`
}

// WeekHistory returns the last HistoryDays days ending today, oldest first
func WeekHistory(log []models.LogEntry, today time.Time) []HistoryDay {
	days := make([]HistoryDay, 0, constants.HistoryDays)
	start := utils.StartOfDay(today)
	for i := constants.HistoryDays - 1; i >= 0; i-- {
		key := utils.DateKey(utils.AddDays(start, -i))
		status := DayNone
		if e, ok := models.FindLogEntry(log, key); ok {
			status = DaySober
			if e.Consumed {
				status = DayConsumed
			}
		}
		days = append(days, HistoryDay{Date: key, Status: status})
	}
	return days
}
