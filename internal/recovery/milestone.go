package recovery

import (
	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/models"
)

// DefaultMilestones is the reference table, ascending by threshold
var DefaultMilestones = []models.Milestone{
	{Days: 1, Name: "24 Hours Strong", Badge: constants.BadgeStar},
	{Days: 7, Name: "First Week", Badge: constants.BadgeAward},
	{Days: 30, Name: "One Month", Badge: constants.BadgeTrophy},
	{Days: 90, Name: "90 Days", Badge: constants.BadgeStar},
	{Days: 180, Name: "Six Months", Badge: constants.BadgeAward},
	{Days: 365, Name: "One Year", Badge: constants.BadgeTrophy},
}

// Progress is where a sober-day count sits in a milestone table
type Progress struct {
	Achieved   []models.Milestone `json:"achieved"`
	Next       *models.Milestone  `json:"next"`
	Percent    float64            `json:"percent"`
	DaysToNext int                `json:"daysToNext"`
}

// EvaluateMilestones places soberDays in table, which must already be ascending
func EvaluateMilestones(soberDays int, table []models.Milestone) Progress {
	if soberDays < 0 {
		soberDays = 0
	}

	p := Progress{Achieved: []models.Milestone{}}
	prev := 0
	for i := range table {
		m := table[i]
		if m.Days <= soberDays {
			p.Achieved = append(p.Achieved, m)
			prev = m.Days
			continue
		}
		p.Next = &m
		break
	}

	if p.Next == nil {
		p.Percent = 100
		return p
	}

	p.Percent = float64(soberDays-prev) / float64(p.Next.Days-prev) * 100
	p.DaysToNext = p.Next.Days - soberDays
	return p
}

// NewlyAchieved returns milestones reached at after but not at before
func NewlyAchieved(before, after int, table []models.Milestone) []models.Milestone {
	var out []models.Milestone
	for _, m := range table {
		if m.Days > before && m.Days <= after {
			out = append(out, m)
		}
	}
	return out
}
