package validation

import (
	"fmt"
	"time"

	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/recovery"
	"github.com/julianstephens/rehab/internal/utils"
)

// ConflictType represents the type of data inconsistency
type ConflictType string

const (
	ConflictDuplicateDate  ConflictType = "duplicate_date"
	ConflictInvalidDate    ConflictType = "invalid_date"
	ConflictFutureEntry    ConflictType = "future_entry"
	ConflictStreakMismatch ConflictType = "streak_mismatch"
	ConflictReplyCount     ConflictType = "reply_count_mismatch"
)

// Conflict represents a detected inconsistency in stored data
type Conflict struct {
	Type        ConflictType
	Description string
	UserID      string
	Date        string // YYYY-MM-DD (if applicable)
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	report := "Conflicts detected:\n"
	for _, conflict := range vr.Conflicts {
		report += fmt.Sprintf("- %s\n", conflict.Description)
	}
	return report
}

func (vr *ValidationResult) add(c Conflict) {
	vr.Conflicts = append(vr.Conflicts, c)
}

// AuditProfile checks a profile's log and stored streaks against what can
// be derived from the log as of now.
func AuditProfile(p models.Profile, today string) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	seen := make(map[string]int)
	for _, e := range p.Log {
		seen[e.Date]++
		if !utils.ValidateDate(e.Date) {
			result.add(Conflict{
				Type:        ConflictInvalidDate,
				Description: fmt.Sprintf("Profile %s has a log entry with invalid date %q", p.ID, e.Date),
				UserID:      p.ID,
				Date:        e.Date,
			})
			continue
		}
		if e.Date > today {
			result.add(Conflict{
				Type:        ConflictFutureEntry,
				Description: fmt.Sprintf("Profile %s has a log entry for a future date %s", p.ID, e.Date),
				UserID:      p.ID,
				Date:        e.Date,
			})
		}
	}
	for date, n := range seen {
		if n > 1 {
			result.add(Conflict{
				Type:        ConflictDuplicateDate,
				Description: fmt.Sprintf("Profile %s has %d log entries for %s", p.ID, n, date),
				UserID:      p.ID,
				Date:        date,
			})
		}
	}

	day, err := utils.ParseDateInLocation(today, time.UTC)
	if err != nil {
		return result
	}
	want := recovery.CalculateStreak(p.Log, day)
	if want.Current != p.CurrentStreak || want.Longest != p.LongestStreak {
		result.add(Conflict{
			Type: ConflictStreakMismatch,
			Description: fmt.Sprintf("Profile %s stores streak %d/%d but its log gives %d/%d",
				p.ID, p.CurrentStreak, p.LongestStreak, want.Current, want.Longest),
			UserID: p.ID,
		})
	}
	return result
}

// AuditReplyCount compares a post's counter with its stored replies
func AuditReplyCount(post models.ForumPost, replies int) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	if post.ReplyCount != replies {
		result.add(Conflict{
			Type:        ConflictReplyCount,
			Description: fmt.Sprintf("Post %s counts %d replies but has %d", post.ID, post.ReplyCount, replies),
		})
	}
	return result
}
