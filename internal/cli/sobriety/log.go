package sobriety

import (
	"fmt"

	"github.com/julianstephens/rehab/internal/cli"
)

type LogCmd struct {
	Consumed bool   `help:"Record that you used today."`
	Notes    string `help:"Optional notes for the day."`
}

func (c *LogCmd) Run(ctx *cli.Context) error {
	tr, err := ctx.Tracker()
	if err != nil {
		return err
	}

	res, err := tr.LogDay(ctx.Background(), ctx.Identity, c.Consumed, c.Notes, ctx.Clock())
	if err != nil {
		return err
	}
	ctx.PerformAutomaticBackup()

	if c.Consumed {
		fmt.Printf("Logged %s. Tomorrow is a new start.\n", res.Entry.Date)
	} else {
		fmt.Printf("✓ Logged a sober day for %s\n", res.Entry.Date)
	}
	fmt.Printf("  Streak: %d (longest %d)\n", res.Streak.Current, res.Streak.Longest)
	fmt.Printf("  Points: %+d\n", res.PointsDelta)
	for _, m := range res.NewMilestones {
		fmt.Printf("🎉 Milestone reached: %s (%d days)\n", m.Name, m.Days)
	}
	return nil
}
