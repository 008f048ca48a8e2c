package sobriety

import (
	"fmt"
	"strings"

	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/coping"
)

type CopeCmd struct {
	Triggers string `arg:"" help:"What is making you want to use right now."`
	Progress string `help:"How your recovery is going. Defaults to your sober day count."`
}

func (c *CopeCmd) Run(ctx *cli.Context) error {
	tr, err := ctx.Tracker()
	if err != nil {
		return err
	}
	suggester, err := ctx.Coping()
	if err != nil {
		return err
	}
	d, err := tr.Dashboard(ctx.Background(), ctx.Identity, ctx.Clock())
	if err != nil {
		return err
	}

	progress := strings.TrimSpace(c.Progress)
	if progress == "" {
		progress = coping.DefaultProgress(d.SoberDays)
	}
	strategies, err := suggester.Suggest(ctx.Background(), ctx.Identity.UserID, coping.Input{
		AddictionType: string(d.Profile.AddictionType),
		Progress:      progress,
		Triggers:      c.Triggers,
	})
	if err != nil {
		return err
	}

	fmt.Println("Try one of these:")
	for i, s := range strategies {
		fmt.Printf("  %d. %s\n", i+1, s)
	}
	return nil
}
