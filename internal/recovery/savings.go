package recovery

import (
	"errors"
	"time"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/utils"
)

// ErrSavingsNotApplicable means no quit date or no daily spend is set.
// Callers should prompt for setup instead of showing a zero.
var ErrSavingsNotApplicable = errors.New("savings not applicable: quit date and daily spending are required")

// Savings is money not spent since quitting plus forward projections
type Savings struct {
	Total  float64 `json:"total"`
	Weekly float64 `json:"weekly"`
	Annual float64 `json:"annual"`
}

// ProjectSavings computes totals for a positive daily rate and a known quit date
func ProjectSavings(soberDays int, dailyRate float64, hasQuitDate bool) (Savings, error) {
	if !hasQuitDate || dailyRate <= 0 {
		return Savings{}, ErrSavingsNotApplicable
	}
	if soberDays < 0 {
		soberDays = 0
	}
	return Savings{
		Total:  float64(soberDays) * dailyRate,
		Weekly: dailyRate * 7,
		Annual: dailyRate * 365,
	}, nil
}

// SavingsPoint is one bar of the savings chart
type SavingsPoint struct {
	Date    string  `json:"date"`
	Savings float64 `json:"savings"`
}

// SavingsSeries returns cumulative savings for the last HistoryDays days,
// oldest first. Days before the quit date are zero.
func SavingsSeries(quitDate time.Time, dailyRate float64, today time.Time) []SavingsPoint {
	points := make([]SavingsPoint, 0, constants.HistoryDays)
	start := utils.StartOfDay(today)
	for i := constants.HistoryDays - 1; i >= 0; i-- {
		day := utils.AddDays(start, -i)
		sober := utils.CalendarDaysBetween(quitDate, day)
		value := 0.0
		if sober >= 0 && dailyRate > 0 {
			value = float64(sober+1) * dailyRate
		}
		points = append(points, SavingsPoint{Date: utils.DateKey(day), Savings: value})
	}
	return points
}
