package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/storage/sqlite"
	"github.com/julianstephens/rehab/internal/validation"
)

var (
	ctx  = context.Background()
	user = auth.Identity{UserID: "u1", DisplayName: "Sam"}
	base = time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
)

type recordingNotifier struct {
	reached []models.Milestone
}

func (r *recordingNotifier) MilestonesReached(_ context.Context, _ models.Profile, m []models.Milestone) {
	r.reached = append(r.reached, m...)
}

func setupService(t *testing.T, opts ...Option) (*Service, storage.Provider) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewService(store, opts...), store
}

func strPtr(s string) *string { return &s }

func TestSignUpIdempotent(t *testing.T) {
	svc, _ := setupService(t)

	first, err := svc.SignUp(ctx, user, base)
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if !first.SetupIncomplete() || first.AddictionType != "Smoking" || first.Points != 0 {
		t.Errorf("unexpected default profile %+v", first)
	}

	if _, err := svc.SetGoal(ctx, user, GoalInput{AddictionType: strPtr("Alcohol")}, base); err != nil {
		t.Fatalf("SetGoal failed: %v", err)
	}
	second, err := svc.SignUp(ctx, user, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("second SignUp failed: %v", err)
	}
	if second.AddictionType != "Alcohol" {
		t.Errorf("second sign-up must not reset the profile, got %q", second.AddictionType)
	}

	if _, err := svc.SignUp(ctx, auth.Identity{}, base); !errors.Is(err, auth.ErrNoIdentity) {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}
}

func TestSetGoal(t *testing.T) {
	svc, _ := setupService(t)
	if _, err := svc.SignUp(ctx, user, base); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	spend := 12.5
	negative := -1.0

	tests := []struct {
		name      string
		input     GoalInput
		wantField string
	}{
		{"valid", GoalInput{AddictionType: strPtr("Drugs"), QuitDate: strPtr("2024-05-20"), DailySpending: &spend}, ""},
		{"quit date today", GoalInput{QuitDate: strPtr("2024-06-01")}, ""},
		{"quit date tomorrow", GoalInput{QuitDate: strPtr("2024-06-02")}, "quitDate"},
		{"malformed quit date", GoalInput{QuitDate: strPtr("06/01/2024")}, "quitDate"},
		{"unknown addiction", GoalInput{AddictionType: strPtr("Coffee")}, "addictionType"},
		{"negative spending", GoalInput{DailySpending: &negative}, "dailySpending"},
		{"blank name", GoalInput{DisplayName: strPtr("   ")}, "displayName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetGoal(ctx, user, tt.input, base)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("SetGoal failed: %v", err)
				}
				return
			}
			fields, ok := validation.Fields(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := fields[tt.wantField]; !ok {
				t.Errorf("expected error on %s, got %v", tt.wantField, fields)
			}
		})
	}

	p, err := svc.Profile(ctx, user)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if p.AddictionType != "Drugs" || p.DailySpending != 12.5 {
		t.Errorf("unexpected profile %+v", p)
	}
	if p.QuitDate == nil || p.QuitDate.Format("2006-01-02") != "2024-06-01" {
		t.Errorf("expected quit date 2024-06-01, got %v", p.QuitDate)
	}
}

func TestLogDay(t *testing.T) {
	notes := &recordingNotifier{}
	logged := 0
	svc, _ := setupService(t, WithNotifier(notes), WithLogObserver(func(bool) { logged++ }))
	if _, err := svc.SignUp(ctx, user, base); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	for i := 0; i < 7; i++ {
		res, err := svc.LogDay(ctx, user, false, "", base.AddDate(0, 0, i))
		if err != nil {
			t.Fatalf("LogDay %d failed: %v", i, err)
		}
		if res.Streak.Current != i+1 {
			t.Errorf("day %d: expected streak %d, got %d", i, i+1, res.Streak.Current)
		}
	}
	if len(notes.reached) != 2 || notes.reached[0].Days != 1 || notes.reached[1].Days != 7 {
		t.Errorf("expected milestones 1 and 7, got %+v", notes.reached)
	}
	if logged != 7 {
		t.Errorf("expected 7 observed logs, got %d", logged)
	}

	last := base.AddDate(0, 0, 6)
	p, err := svc.Profile(ctx, user)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if p.Points != 70 || p.CurrentStreak != 7 || p.LongestStreak != 7 {
		t.Errorf("unexpected progress: points=%d streak=%d longest=%d", p.Points, p.CurrentStreak, p.LongestStreak)
	}

	// Relogging the same day replaces the entry and only applies the difference
	res, err := svc.LogDay(ctx, user, true, "slipped", last)
	if err != nil {
		t.Fatalf("relog failed: %v", err)
	}
	if res.PointsDelta != -15 || res.Streak.Current != 0 || res.Streak.Longest != 6 {
		t.Errorf("unexpected relog result %+v", res)
	}

	p, err = svc.Profile(ctx, user)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if len(p.Log) != 7 {
		t.Errorf("expected 7 log entries, got %d", len(p.Log))
	}
	if p.Points != 55 || p.CurrentStreak != 0 {
		t.Errorf("unexpected progress after relapse: points=%d streak=%d", p.Points, p.CurrentStreak)
	}

	if _, err := svc.LogDay(ctx, auth.Identity{UserID: "ghost"}, false, "", base); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown profile, got %v", err)
	}
}

func TestReasons(t *testing.T) {
	svc, _ := setupService(t)
	if _, err := svc.SignUp(ctx, user, base); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if err := svc.AddReason(ctx, user, "  my kids  "); err != nil {
		t.Fatalf("AddReason failed: %v", err)
	}
	if err := svc.AddReason(ctx, user, "   "); err == nil {
		t.Error("expected error for blank reason")
	}
	if err := svc.RemoveReason(ctx, user, "my kids"); err != nil {
		t.Fatalf("RemoveReason failed: %v", err)
	}
	p, err := svc.Profile(ctx, user)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if len(p.ReasonsToQuit) != 0 {
		t.Errorf("expected no reasons, got %v", p.ReasonsToQuit)
	}
}

func TestDashboard(t *testing.T) {
	svc, _ := setupService(t)
	if _, err := svc.SignUp(ctx, user, base); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	d, err := svc.Dashboard(ctx, user, base)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if !d.SetupIncomplete || !d.SavingsNotApplicable || d.Savings != nil || d.SoberDays != 0 {
		t.Errorf("unexpected dashboard before setup %+v", d)
	}
	if d.Affirmation == "" {
		t.Error("expected an affirmation")
	}

	spend := 5.0
	if _, err := svc.SetGoal(ctx, user, GoalInput{QuitDate: strPtr("2024-05-22"), DailySpending: &spend}, base); err != nil {
		t.Fatalf("SetGoal failed: %v", err)
	}
	d, err = svc.Dashboard(ctx, user, base)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if d.SetupIncomplete || d.SoberDays != 10 {
		t.Errorf("expected 10 sober days, got %+v", d)
	}
	if d.Savings == nil || d.Savings.Total != 50 || d.Savings.Weekly != 35 {
		t.Errorf("unexpected savings %+v", d.Savings)
	}
	if len(d.Milestones.Achieved) != 2 || d.Milestones.Next == nil || d.Milestones.Next.Days != 30 {
		t.Errorf("unexpected milestones %+v", d.Milestones)
	}
	if len(d.WeekHistory) != 7 || len(d.SavingsSeries) != 7 {
		t.Errorf("expected 7-day history and series, got %d and %d", len(d.WeekHistory), len(d.SavingsSeries))
	}

	zero := 0.0
	if _, err := svc.SetGoal(ctx, user, GoalInput{DailySpending: &zero}, base); err != nil {
		t.Fatalf("SetGoal failed: %v", err)
	}
	d, err = svc.Dashboard(ctx, user, base)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if !d.SavingsNotApplicable || d.Savings != nil {
		t.Errorf("zero spending should not produce savings, got %+v", d.Savings)
	}
}

func TestRefreshStreaks(t *testing.T) {
	svc, _ := setupService(t)
	if _, err := svc.SignUp(ctx, user, base); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.LogDay(ctx, user, false, "", base.AddDate(0, 0, i)); err != nil {
			t.Fatalf("LogDay failed: %v", err)
		}
	}

	// The next day nothing has been logged yet, so the streak still counts from yesterday
	updated, err := svc.RefreshStreaks(ctx, base.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("RefreshStreaks failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("expected no updates, got %d", updated)
	}

	updated, err = svc.RefreshStreaks(ctx, base.AddDate(0, 0, 4))
	if err != nil {
		t.Fatalf("RefreshStreaks failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("expected 1 update, got %d", updated)
	}
	p, err := svc.Profile(ctx, user)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if p.CurrentStreak != 0 || p.LongestStreak != 3 {
		t.Errorf("expected streak 0/3, got %d/%d", p.CurrentStreak, p.LongestStreak)
	}
}

func TestStreaksAcrossZones(t *testing.T) {
	svc, store := setupService(t)
	honolulu := time.FixedZone("HST", -10*60*60)
	local := time.Date(2024, 6, 1, 20, 0, 0, 0, honolulu)

	if _, err := svc.SignUp(ctx, user, local); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.LogDay(ctx, user, false, "", local.AddDate(0, 0, i)); err != nil {
			t.Fatalf("LogDay failed: %v", err)
		}
	}

	// Just past midnight UTC on June 5 it is still the afternoon of June 4 in
	// Honolulu, so the user can still log today and keep the run.
	serverNow := time.Date(2024, 6, 5, 0, 5, 0, 0, time.UTC)
	if _, err := svc.RefreshStreaks(ctx, serverNow); err != nil {
		t.Fatalf("RefreshStreaks failed: %v", err)
	}
	p, err := svc.Profile(ctx, user)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if p.CurrentStreak != 3 {
		t.Errorf("refresh cut a live streak: got %d, want 3", p.CurrentStreak)
	}

	// A stale cached value never leaks into the dashboard
	if err := store.SetStreak(user.UserID, 0, 3); err != nil {
		t.Fatalf("SetStreak failed: %v", err)
	}
	d, err := svc.Dashboard(ctx, user, serverNow.In(honolulu))
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if d.Streak.Current != 3 || d.Streak.Longest != 3 {
		t.Errorf("expected dashboard streak 3/3, got %+v", d.Streak)
	}
}
