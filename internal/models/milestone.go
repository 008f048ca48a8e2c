package models

import "github.com/julianstephens/rehab/internal/constants"

// Milestone is a sober-day threshold worth celebrating
type Milestone struct {
	Days  int             `json:"days"`
	Name  string          `json:"name"`
	Badge constants.Badge `json:"badge"`
}
