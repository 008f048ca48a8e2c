package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/tracker"
	"github.com/julianstephens/rehab/internal/utils"
)

// GoalFormModel holds the raw values of the goal form
type GoalFormModel struct {
	DisplayName   string
	AddictionType string
	QuitDate      string
	DailySpending string
}

// NewGoalFormModel prefills the form from p
func NewGoalFormModel(p models.Profile) *GoalFormModel {
	f := &GoalFormModel{
		DisplayName:   p.DisplayName,
		AddictionType: string(p.AddictionType),
	}
	if p.QuitDate != nil {
		f.QuitDate = p.QuitDate.Format(constants.DateFormat)
	}
	if p.DailySpending > 0 {
		f.DailySpending = strconv.FormatFloat(p.DailySpending, 'f', -1, 64)
	}
	return f
}

func validateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if !utils.ValidateDate(strings.TrimSpace(s)) {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}

func validateSpending(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return fmt.Errorf("enter a non-negative amount")
	}
	return nil
}

// NewGoalForm builds the interactive form bound to f
func NewGoalForm(f *GoalFormModel) *huh.Form {
	options := make([]huh.Option[string], 0, len(constants.AddictionTypes))
	for _, t := range constants.AddictionTypes {
		options = append(options, huh.NewOption(string(t), string(t)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Display name").
				Value(&f.DisplayName),
			huh.NewSelect[string]().
				Title("What are you quitting?").
				Options(options...).
				Value(&f.AddictionType),
			huh.NewInput().
				Title("Quit date").
				Description("YYYY-MM-DD").
				Validate(validateDate).
				Value(&f.QuitDate),
			huh.NewInput().
				Title("Daily spending").
				Description(fmt.Sprintf("What you used to spend per day, in %s", constants.CurrencySymbol)).
				Validate(validateSpending).
				Value(&f.DailySpending),
		),
	)
}

// ToInput converts the form values to a goal update. Empty fields are left unchanged.
func (f *GoalFormModel) ToInput() (tracker.GoalInput, error) {
	var in tracker.GoalInput
	if name := strings.TrimSpace(f.DisplayName); name != "" {
		in.DisplayName = &name
	}
	if t := strings.TrimSpace(f.AddictionType); t != "" {
		in.AddictionType = &t
	}
	if d := strings.TrimSpace(f.QuitDate); d != "" {
		in.QuitDate = &d
	}
	if s := strings.TrimSpace(f.DailySpending); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return tracker.GoalInput{}, fmt.Errorf("invalid daily spending %q", s)
		}
		in.DailySpending = &v
	}
	return in, nil
}
