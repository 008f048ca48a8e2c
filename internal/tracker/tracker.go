// Package tracker owns a user's recovery profile: sign-up, goal setting,
// daily logging and the dashboard view derived from it.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/rehab/internal/affirmation"
	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/recovery"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/utils"
	"github.com/julianstephens/rehab/internal/validation"
)

// Notifier is told about milestones a daily log crossed
type Notifier interface {
	MilestonesReached(ctx context.Context, p models.Profile, reached []models.Milestone)
}

// LogObserver is told about each saved daily log
type LogObserver func(consumed bool)

type Service struct {
	store        storage.Provider
	notify       Notifier
	affirmations *affirmation.Cache
	milestones   []models.Milestone
	onLog        LogObserver
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

func WithAffirmations(c *affirmation.Cache) Option {
	return func(s *Service) { s.affirmations = c }
}

func WithMilestones(table []models.Milestone) Option {
	return func(s *Service) { s.milestones = table }
}

func WithLogObserver(fn LogObserver) Option {
	return func(s *Service) { s.onLog = fn }
}

func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:      store,
		milestones: recovery.DefaultMilestones,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.affirmations == nil {
		s.affirmations = affirmation.New(nil)
	}
	return s
}

// SignUp creates the default profile for id. Signing up twice returns the existing profile.
func (s *Service) SignUp(ctx context.Context, id auth.Identity, now time.Time) (models.Profile, error) {
	if !id.Valid() {
		return models.Profile{}, auth.ErrNoIdentity
	}

	p, err := s.store.GetProfile(id.UserID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Profile{}, err
	}

	p = models.NewProfile(id.UserID, id.DisplayName, id.Email, now)
	if err := s.store.CreateProfile(p); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return s.store.GetProfile(id.UserID)
		}
		return models.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}
	logger.Info("Created profile", "user", id.UserID)
	return p, nil
}

func (s *Service) Profile(ctx context.Context, id auth.Identity) (models.Profile, error) {
	if !id.Valid() {
		return models.Profile{}, auth.ErrNoIdentity
	}
	return s.store.GetProfile(id.UserID)
}

// GoalInput is the goal and settings form. Nil fields are left unchanged.
type GoalInput struct {
	DisplayName   *string  `json:"displayName" validate:"omitempty,notblank,max=80"`
	AddictionType *string  `json:"addictionType" validate:"omitempty,addiction"`
	QuitDate      *string  `json:"quitDate" validate:"omitempty,datetime=2006-01-02"`
	DailySpending *float64 `json:"dailySpending" validate:"omitempty,gte=0"`
}

// SetGoal merges the goal form into the profile. The quit date is a calendar
// date in now's location and may not be after today.
func (s *Service) SetGoal(ctx context.Context, id auth.Identity, in GoalInput, now time.Time) (models.Profile, error) {
	if !id.Valid() {
		return models.Profile{}, auth.ErrNoIdentity
	}
	if err := validation.Struct(in); err != nil {
		return models.Profile{}, err
	}

	var upd models.ProfileUpdate
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		upd.DisplayName = &name
	}
	if in.AddictionType != nil {
		t := constants.AddictionType(*in.AddictionType)
		upd.AddictionType = &t
	}
	if in.DailySpending != nil {
		spend := *in.DailySpending
		upd.DailySpending = &spend
	}
	if in.QuitDate != nil {
		quit, err := utils.ParseDateInLocation(*in.QuitDate, now.Location())
		if err != nil {
			return models.Profile{}, validation.Invalid("quitDate", "must be a date in YYYY-MM-DD format")
		}
		if quit.After(utils.StartOfDay(now)) {
			return models.Profile{}, validation.Invalid("quitDate", "cannot be in the future")
		}
		upd.QuitDate = &quit
	}

	if !upd.Empty() {
		if err := s.store.UpdateProfile(id.UserID, upd); err != nil {
			return models.Profile{}, err
		}
	}
	return s.store.GetProfile(id.UserID)
}

// LogResult is what a daily log changed
type LogResult struct {
	Entry         models.LogEntry    `json:"entry"`
	Streak        recovery.Streak    `json:"streak"`
	PointsDelta   int                `json:"pointsDelta"`
	NewMilestones []models.Milestone `json:"newMilestones"`
}

// LogDay records today's verdict. Logging the same day again replaces the
// entry and only applies the difference in points.
func (s *Service) LogDay(ctx context.Context, id auth.Identity, consumed bool, notes string, now time.Time) (LogResult, error) {
	if !id.Valid() {
		return LogResult{}, auth.ErrNoIdentity
	}
	p, err := s.store.GetProfile(id.UserID)
	if err != nil {
		return LogResult{}, err
	}

	entry := models.LogEntry{
		Date:     utils.DateKey(now),
		Consumed: consumed,
		Notes:    strings.TrimSpace(notes),
	}
	if len(entry.Notes) > validation.MaxContentBytes {
		return LogResult{}, validation.Invalid("notes", fmt.Sprintf("must be at most %d bytes", validation.MaxContentBytes))
	}

	delta := recovery.PointsDelta(consumed)
	if prev, ok := models.FindLogEntry(p.Log, entry.Date); ok {
		delta -= recovery.PointsDelta(prev.Consumed)
	}

	streak := recovery.CalculateStreak(models.UpsertLogEntry(p.Log, entry), now)
	progress := models.ProgressUpdate{
		CurrentStreak: streak.Current,
		LongestStreak: streak.Longest,
		PointsDelta:   delta,
	}
	if err := s.store.SaveLogEntry(id.UserID, entry, progress); err != nil {
		return LogResult{}, fmt.Errorf("failed to save log entry: %w", err)
	}
	if s.onLog != nil {
		s.onLog(consumed)
	}

	res := LogResult{
		Entry:         entry,
		Streak:        streak,
		PointsDelta:   delta,
		NewMilestones: recovery.NewlyAchieved(p.CurrentStreak, streak.Current, s.milestones),
	}
	if len(res.NewMilestones) > 0 && s.notify != nil {
		p.CurrentStreak = streak.Current
		s.notify.MilestonesReached(ctx, p, res.NewMilestones)
	}
	return res, nil
}

func (s *Service) AddReason(ctx context.Context, id auth.Identity, reason string) error {
	if !id.Valid() {
		return auth.ErrNoIdentity
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validation.Invalid("reason", "is required")
	}
	return s.store.AddReason(id.UserID, reason)
}

func (s *Service) RemoveReason(ctx context.Context, id auth.Identity, reason string) error {
	if !id.Valid() {
		return auth.ErrNoIdentity
	}
	return s.store.RemoveReason(id.UserID, strings.TrimSpace(reason))
}

// Dashboard is everything the home screen shows. Derived figures are zero
// and SetupIncomplete is set until a quit date exists.
type Dashboard struct {
	Profile         models.Profile    `json:"profile"`
	SetupIncomplete bool              `json:"setupIncomplete"`
	SoberDays       int               `json:"soberDays"`
	Duration        recovery.Duration `json:"duration"`
	Streak          recovery.Streak   `json:"streak"`
	Milestones      recovery.Progress `json:"milestones"`

	// Savings is nil and SavingsNotApplicable set when no quit date or daily spend is known
	Savings              *recovery.Savings `json:"savings"`
	SavingsNotApplicable bool              `json:"savingsNotApplicable"`

	WeekHistory   []recovery.HistoryDay   `json:"weekHistory"`
	SavingsSeries []recovery.SavingsPoint `json:"savingsSeries"`
	Affirmation   string                  `json:"affirmation"`
}

func (s *Service) Dashboard(ctx context.Context, id auth.Identity, now time.Time) (Dashboard, error) {
	if !id.Valid() {
		return Dashboard{}, auth.ErrNoIdentity
	}
	p, err := s.store.GetProfile(id.UserID)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Profile:         p,
		SetupIncomplete: p.SetupIncomplete(),
		Streak:          recovery.CalculateStreak(p.Log, now),
		WeekHistory:     recovery.WeekHistory(p.Log, now),
		Affirmation:     s.affirmations.Today(now),
	}
	if d.SetupIncomplete {
		d.Milestones = recovery.EvaluateMilestones(0, s.milestones)
		d.SavingsNotApplicable = true
		return d, nil
	}

	quit := p.QuitDate.In(now.Location())
	d.SoberDays = recovery.SoberDays(quit, now)
	d.Duration = recovery.SoberDuration(quit, now)
	d.Milestones = recovery.EvaluateMilestones(d.SoberDays, s.milestones)
	d.SavingsSeries = recovery.SavingsSeries(quit, p.DailySpending, now)
	savings, err := recovery.ProjectSavings(d.SoberDays, p.DailySpending, true)
	if errors.Is(err, recovery.ErrSavingsNotApplicable) {
		d.SavingsNotApplicable = true
	} else if err == nil {
		d.Savings = &savings
	}
	return d, nil
}

// Affirmation returns today's affirmation
func (s *Service) Affirmation(now time.Time) string {
	return s.affirmations.Today(now)
}

// latestZone is the last offset on earth to finish a calendar day.
var latestZone = time.FixedZone("UTC-12", -12*60*60)

// RefreshStreaks recomputes every stored streak against now. Streaks only
// change when a day passes without a log, so this runs just after midnight.
//
// Profiles carry no time zone, so the day is judged in latestZone: a streak is
// only cut once the missed day has ended everywhere. The stored values are a
// cache for listings; Dashboard recomputes the streak in the caller's zone.
func (s *Service) RefreshStreaks(ctx context.Context, now time.Time) (int, error) {
	now = now.In(latestZone)
	profiles, err := s.store.ListProfiles()
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	updated := 0
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		streak := recovery.CalculateStreak(p.Log, now)
		if streak.Current == p.CurrentStreak && streak.Longest == p.LongestStreak {
			continue
		}
		if err := s.store.SetStreak(p.ID, streak.Current, streak.Longest); err != nil {
			logger.Warn("Failed to refresh streak", "user", p.ID, "error", err)
			continue
		}
		updated++
	}
	logger.Info("Refreshed streaks", "profiles", len(profiles), "updated", updated)
	return updated, nil
}
