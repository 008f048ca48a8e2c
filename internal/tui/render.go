package tui

import (
	"fmt"
	"strings"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/recovery"
	"github.com/julianstephens/rehab/internal/tracker"
)

var badgeIcons = map[constants.Badge]string{
	constants.BadgeStar:   "★",
	constants.BadgeAward:  "✪",
	constants.BadgeTrophy: "🏆",
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-16s", label)) + valueStyle.Render(value)
}

// FormatDuration renders d as "12d 3h 4m 5s"
func FormatDuration(d recovery.Duration) string {
	return fmt.Sprintf("%dd %dh %dm %ds", d.Days, d.Hours, d.Minutes, d.Seconds)
}

// FormatMoney renders an amount with the app currency symbol
func FormatMoney(amount float64) string {
	return fmt.Sprintf("%s%.2f", constants.CurrencySymbol, amount)
}

// RenderDashboard draws the status screen
func RenderDashboard(d tracker.Dashboard) string {
	name := d.Profile.DisplayName
	if name == "" {
		name = d.Profile.ID
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", name, d.Profile.AddictionType)))
	b.WriteString("\n\n")

	if d.SetupIncomplete {
		b.WriteString(warningStyle.Render("Set your quit date with 'rehab goal' to start tracking."))
		b.WriteString("\n\n")
		b.WriteString(row("Points", fmt.Sprint(d.Profile.Points)))
		b.WriteString("\n")
		return docStyle.Render(b.String())
	}

	lines := []string{
		row("Sober days", fmt.Sprint(d.SoberDays)),
		row("Sober for", FormatDuration(d.Duration)),
		row("Streak", fmt.Sprintf("%d (longest %d)", d.Streak.Current, d.Streak.Longest)),
		row("Points", fmt.Sprint(d.Profile.Points)),
	}
	if d.Milestones.Next != nil {
		lines = append(lines, row("Next milestone",
			fmt.Sprintf("%s in %d days (%.0f%%)", d.Milestones.Next.Name, d.Milestones.DaysToNext, d.Milestones.Percent)))
	} else {
		lines = append(lines, row("Milestones", successStyle.Render("all reached")))
	}
	switch {
	case d.Savings != nil:
		lines = append(lines,
			row("Saved", FormatMoney(d.Savings.Total)),
			row("Per week", FormatMoney(d.Savings.Weekly)),
			row("Per year", FormatMoney(d.Savings.Annual)))
	case d.SavingsNotApplicable:
		lines = append(lines, row("Saved", labelStyle.Render("set a daily spending to see savings")))
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Last 7 days  "))
	b.WriteString(RenderWeek(d.WeekHistory))
	b.WriteString("\n")

	if len(d.Profile.ReasonsToQuit) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Reasons to quit"))
		b.WriteString("\n")
		for _, r := range d.Profile.ReasonsToQuit {
			b.WriteString("  • " + r + "\n")
		}
	}

	if d.Affirmation != "" {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("“" + d.Affirmation + "”"))
		b.WriteString("\n")
	}
	return docStyle.Render(b.String())
}

// RenderWeek draws one cell per day, oldest first
func RenderWeek(days []recovery.HistoryDay) string {
	cells := make([]string, 0, len(days))
	for _, d := range days {
		switch d.Status {
		case recovery.DaySober:
			cells = append(cells, successStyle.Render("●"))
		case recovery.DayConsumed:
			cells = append(cells, dangerStyle.Render("●"))
		default:
			cells = append(cells, labelStyle.Render("○"))
		}
	}
	return strings.Join(cells, " ")
}

// RenderMilestones draws the milestone table with achieved marks
func RenderMilestones(soberDays int, table []models.Milestone) string {
	progress := recovery.EvaluateMilestones(soberDays, table)
	achieved := make(map[int]bool, len(progress.Achieved))
	for _, m := range progress.Achieved {
		achieved[m.Days] = true
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Milestones"))
	b.WriteString("\n\n")
	for _, m := range table {
		icon := badgeIcons[m.Badge]
		line := fmt.Sprintf("%s %-16s %4d days", icon, m.Name, m.Days)
		if achieved[m.Days] {
			b.WriteString(successStyle.Render("✓ " + line))
		} else {
			b.WriteString(labelStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if progress.Next != nil {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%d days to %s\n", progress.DaysToNext, progress.Next.Name))
	}
	return docStyle.Render(b.String())
}
