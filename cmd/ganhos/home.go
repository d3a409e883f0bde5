package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"ganhos/internal/cli"
	"ganhos/internal/home"
)

func homeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show net earnings of the current and the two previous periods",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				s := app.Settings.Current()
				if err := loadWindow(ctx, app.Vouchers, ""); err != nil {
					return err
				}
				sum, err := app.Home.Project(ctx, time.Now(), s.MonthStartDay)
				if err != nil {
					return fmt.Errorf("failed to load home summary: %w", err)
				}
				cards := home.Cards(sum.Periods, s)
				rendered := make([]string, 0, len(cards))
				for _, c := range cards {
					rendered = append(rendered, cli.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
						cli.BoldStyle.Render(c.Label),
						cli.SubtitleStyle.Render(c.DateRange),
						"",
						cli.SuccessStyle.Render(c.Net.String()),
						cli.SubtitleStyle.Render("gross "+c.Gross.String()),
					)))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Earnings (discount %.0f%%)", s.DiscountPercentage*100)))
				fmt.Fprintln(out, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))

				fmt.Fprintln(out, cli.FormatTitle("Recent vouchers"))
				if len(sum.Recent) == 0 {
					fmt.Fprintln(out, cli.SubtitleStyle.Render("No vouchers yet."))
					return nil
				}
				return writeVoucherTable(out, sum.Recent)
			})
		},
	}
}
