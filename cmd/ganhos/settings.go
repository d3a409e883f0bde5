package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ganhos/internal/cli"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the discount percentage and month start day",
	}
	cmd.AddCommand(settingsGetCmd(), settingsSetCmd())
	return cmd
}

func settingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, app *cli.App) error {
				s := app.Settings.Current()
				return writeTable(cmd.OutOrStdout(), []string{"Setting", "Value"}, [][]string{
					{"discount percentage", strconv.FormatFloat(s.DiscountPercentage, 'f', -1, 64)},
					{"month start day", strconv.Itoa(s.MonthStartDay)},
				})
			})
		},
	}
}

func settingsSetCmd() *cobra.Command {
	var (
		discount string
		startDay int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or both settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("discount") && !cmd.Flags().Changed("start-day") {
				return fmt.Errorf("nothing to change: pass --discount and/or --start-day")
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				next := app.Settings.Current()
				if cmd.Flags().Changed("discount") {
					v, err := strconv.ParseFloat(strings.Replace(discount, ",", ".", 1), 64)
					if err != nil {
						return fmt.Errorf("invalid --discount %q: %w", discount, err)
					}
					next.DiscountPercentage = v
				}
				if cmd.Flags().Changed("start-day") {
					next.MonthStartDay = startDay
				}
				if err := app.Settings.Update(ctx, next); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Settings saved"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&discount, "discount", "", "fraction withheld from gross earnings, 0 to 1 (e.g. 0.15)")
	cmd.Flags().IntVar(&startDay, "start-day", 0, "day of month the billing period starts, 1 to 31")
	return cmd
}
