package recovery

import (
	"time"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/utils"
)

const dateLayout = constants.DateFormat

// Duration is elapsed sober time broken into clock units
type Duration struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// SoberDays counts calendar days from the quit date to now in now's location.
// A quit date in the future counts as zero.
func SoberDays(quitDate, now time.Time) int {
	days := utils.CalendarDaysBetween(quitDate, now)
	if days < 0 {
		return 0
	}
	return days
}

// SoberDuration is the wall-clock time elapsed since the quit instant
func SoberDuration(quitDate, now time.Time) Duration {
	d := now.Sub(quitDate)
	if d < 0 {
		return Duration{}
	}
	total := int64(d / time.Second)
	return Duration{
		Days:    int(total / 86400),
		Hours:   int(total % 86400 / 3600),
		Minutes: int(total % 3600 / 60),
		Seconds: int(total % 60),
	}
}

// PointsDelta is the points change for one daily log
func PointsDelta(consumed bool) int {
	if consumed {
		return constants.PointsConsumed
	}
	return constants.PointsSober
}
