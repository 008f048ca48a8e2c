package sobriety

import (
	"fmt"

	"github.com/julianstephens/rehab/internal/cli"
)

type ReasonsAddCmd struct {
	Reason string `arg:"" help:"A reason to stay sober."`
}

func (c *ReasonsAddCmd) Run(ctx *cli.Context) error {
	tr, err := ctx.Tracker()
	if err != nil {
		return err
	}
	if err := tr.AddReason(ctx.Background(), ctx.Identity, c.Reason); err != nil {
		return err
	}
	fmt.Printf("✓ Added reason: %s\n", c.Reason)
	return nil
}

type ReasonsRemoveCmd struct {
	Reason string `arg:"" help:"The reason to remove, exactly as listed."`
}

func (c *ReasonsRemoveCmd) Run(ctx *cli.Context) error {
	tr, err := ctx.Tracker()
	if err != nil {
		return err
	}
	if err := tr.RemoveReason(ctx.Background(), ctx.Identity, c.Reason); err != nil {
		return err
	}
	fmt.Printf("✓ Removed reason: %s\n", c.Reason)
	return nil
}

type ReasonsListCmd struct{}

func (c *ReasonsListCmd) Run(ctx *cli.Context) error {
	tr, err := ctx.Tracker()
	if err != nil {
		return err
	}
	p, err := tr.Profile(ctx.Background(), ctx.Identity)
	if err != nil {
		return err
	}
	if len(p.ReasonsToQuit) == 0 {
		fmt.Println("No reasons yet. Add one with 'rehab reasons add'.")
		return nil
	}
	for i, r := range p.ReasonsToQuit {
		fmt.Printf("%d. %s\n", i+1, r)
	}
	return nil
}
