package models

import (
	"time"

	"github.com/julianstephens/rehab/internal/constants"
)

// Profile is a user's recovery profile. A nil QuitDate means onboarding is not finished.
type Profile struct {
	ID            string                  `json:"id" firestore:"-"`
	DisplayName   string                  `json:"displayName" firestore:"displayName"`
	Email         string                  `json:"email,omitempty" firestore:"email,omitempty"`
	AddictionType constants.AddictionType `json:"addictionType" firestore:"addictionType"`
	QuitDate      *time.Time              `json:"quitDate" firestore:"quitDate"`
	DailySpending float64                 `json:"dailySpending" firestore:"dailySpending"`
	Log           []LogEntry              `json:"consumptionLog" firestore:"consumptionLog"`
	ReasonsToQuit []string                `json:"reasonsToQuit" firestore:"reasonsToQuit"`
	// CurrentStreak and LongestStreak are cached as of the last log or refresh.
	// The dashboard recomputes them from Log in the viewer's zone.
	CurrentStreak int                     `json:"streak" firestore:"streak"`
	LongestStreak int                     `json:"longestStreak" firestore:"longestStreak"`
	Points        int                     `json:"points" firestore:"points"`
	CreatedAt     time.Time               `json:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt" firestore:"updatedAt"`
}

// NewProfile returns the profile a fresh sign-up starts with
func NewProfile(id, displayName, email string, now time.Time) Profile {
	return Profile{
		ID:            id,
		DisplayName:   displayName,
		Email:         email,
		AddictionType: constants.DefaultAddictionType,
		Log:           []LogEntry{},
		ReasonsToQuit: []string{},
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
}

// SetupIncomplete reports whether derived metrics must be withheld
func (p Profile) SetupIncomplete() bool {
	return p.QuitDate == nil
}

// ProfileUpdate is a merge patch. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName   *string                  `json:"displayName,omitempty"`
	AddictionType *constants.AddictionType `json:"addictionType,omitempty"`
	QuitDate      *time.Time               `json:"quitDate,omitempty"`
	DailySpending *float64                 `json:"dailySpending,omitempty"`
}

// Empty reports whether the patch changes nothing
func (u ProfileUpdate) Empty() bool {
	return u.DisplayName == nil && u.AddictionType == nil && u.QuitDate == nil && u.DailySpending == nil
}

// Apply merges the patch into p
func (u ProfileUpdate) Apply(p *Profile) {
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.AddictionType != nil {
		p.AddictionType = *u.AddictionType
	}
	if u.QuitDate != nil {
		q := u.QuitDate.UTC()
		p.QuitDate = &q
	}
	if u.DailySpending != nil {
		p.DailySpending = *u.DailySpending
	}
}

// ProgressUpdate carries the values written alongside a daily log entry
type ProgressUpdate struct {
	CurrentStreak int
	LongestStreak int
	PointsDelta   int
}
