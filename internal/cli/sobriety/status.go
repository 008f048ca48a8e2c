package sobriety

import (
	"fmt"

	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/recovery"
	"github.com/julianstephens/rehab/internal/tui"
)

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	tr, err := ctx.Tracker()
	if err != nil {
		return err
	}
	d, err := tr.Dashboard(ctx.Background(), ctx.Identity, ctx.Clock())
	if err != nil {
		return err
	}
	fmt.Println(tui.RenderDashboard(d))
	return nil
}

type MilestonesCmd struct{}

func (c *MilestonesCmd) Run(ctx *cli.Context) error {
	tr, err := ctx.Tracker()
	if err != nil {
		return err
	}
	d, err := tr.Dashboard(ctx.Background(), ctx.Identity, ctx.Clock())
	if err != nil {
		return err
	}
	fmt.Println(tui.RenderMilestones(d.SoberDays, recovery.DefaultMilestones))
	return nil
}
