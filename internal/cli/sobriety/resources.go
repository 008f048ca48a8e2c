package sobriety

import (
	"fmt"

	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/constants"
)

type ResourcesCmd struct{}

func (c *ResourcesCmd) Run(ctx *cli.Context) error {
	for _, r := range constants.Resources {
		fmt.Println(r.Name)
		fmt.Printf("  %s\n", r.Description)
		fmt.Printf("  Contact: %s\n", r.Contact)
		fmt.Printf("  %s\n\n", r.Website)
	}
	return nil
}

type AffirmationCmd struct{}

func (c *AffirmationCmd) Run(ctx *cli.Context) error {
	tr, err := ctx.Tracker()
	if err != nil {
		return err
	}
	fmt.Println(tr.Affirmation(ctx.Clock()))
	return nil
}
