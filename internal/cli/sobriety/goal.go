package sobriety

import (
	"fmt"

	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/tracker"
	"github.com/julianstephens/rehab/internal/tui"
)

type GoalCmd struct {
	Name        *string  `help:"Display name."`
	Addiction   *string  `help:"What you are quitting (Smoking, Alcohol, Drugs)."`
	QuitDate    *string  `name:"quit-date" help:"Quit date (YYYY-MM-DD)."`
	Spending    *float64 `help:"What you used to spend per day."`
	Interactive bool     `short:"i" help:"Fill in the goal with an interactive form."`
}

func (c *GoalCmd) Run(ctx *cli.Context) error {
	tr, err := ctx.Tracker()
	if err != nil {
		return err
	}

	in := tracker.GoalInput{
		DisplayName:   c.Name,
		AddictionType: c.Addiction,
		QuitDate:      c.QuitDate,
		DailySpending: c.Spending,
	}
	if c.Interactive {
		p, err := tr.Profile(ctx.Background(), ctx.Identity)
		if err != nil {
			return err
		}
		model := tui.NewGoalFormModel(p)
		if err := tui.NewGoalForm(model).Run(); err != nil {
			return err
		}
		if in, err = model.ToInput(); err != nil {
			return err
		}
	}

	p, err := tr.SetGoal(ctx.Background(), ctx.Identity, in, ctx.Clock())
	if err != nil {
		return err
	}

	fmt.Println("✓ Goal updated")
	fmt.Printf("  Quitting:       %s\n", p.AddictionType)
	if p.QuitDate != nil {
		fmt.Printf("  Quit date:      %s\n", p.QuitDate.Format("2006-01-02"))
	} else {
		fmt.Println("  Quit date:      not set")
	}
	fmt.Printf("  Daily spending: %s\n", tui.FormatMoney(p.DailySpending))
	return nil
}
