package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ganhos/internal/cli"
	"ganhos/internal/core"
)

func statsCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the earnings series between two dates",
		Long: `Show the bucketed earnings series computed by the server. Without dates the
current billing period is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if from == "" || to == "" {
					w := core.Period(time.Now(), app.Settings.MonthStartDay())
					defFrom, defTo := w.QueryDates()
					if from == "" {
						from = defFrom
					}
					if to == "" {
						to = defTo
					}
				}
				stats, err := app.Backend.EarningsStatistics(ctx, from, to)
				if err != nil {
					return fmt.Errorf("failed to load statistics: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Earnings %s to %s", from, to)))
				rows := make([][]string, 0, len(stats.Points))
				for _, p := range stats.Points {
					rows = append(rows, []string{p.Date.ISO(), strconv.Itoa(p.Count), p.Value.String()})
				}
				if err := writeTable(out, []string{"Date", "Vouchers", "Earned"}, rows); err != nil {
					return err
				}
				s := stats.Summary
				fmt.Fprintf(out, "\n%s %s in %d vouchers (%d-day buckets)\n",
					cli.BoldStyle.Render("Total:"), s.TotalEarnings, s.VoucherCount, s.IntervalDays)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD")
	return cmd
}
