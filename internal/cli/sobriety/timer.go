package sobriety

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/recovery"
	"github.com/julianstephens/rehab/internal/tui"
)

type TimerCmd struct{}

func (c *TimerCmd) Run(ctx *cli.Context) error {
	tr, err := ctx.Tracker()
	if err != nil {
		return err
	}
	p, err := tr.Profile(ctx.Background(), ctx.Identity)
	if err != nil {
		return err
	}
	if p.QuitDate == nil {
		return errors.New("no quit date set, run 'rehab goal' first")
	}

	now := ctx.Clock()
	model := tui.NewTimer(p.QuitDate.In(now.Location()), recovery.DefaultMilestones, tr.Affirmation(now), ctx.Now)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
