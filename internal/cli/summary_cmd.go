package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/daylog/internal/analytics"
	"github.com/MrSnakeDoc/daylog/internal/app"
	"github.com/MrSnakeDoc/daylog/internal/catalog"
	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/logger"
)

func newSummaryCmd(load ConfigLoader) *cobra.Command {
	var (
		userID string
		date   string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the summary of a day from the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = domain.FormatDate(time.Now())
			}
			day, err := domain.NewDay(userID, date)
			if err != nil {
				return err
			}

			cfg := load()
			st, err := app.OpenStore(cfg, logger.Nop())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			acts, err := st.List(ctx, day)
			if err != nil {
				return fmt.Errorf("list activities: %w", err)
			}

			cat := catalog.New()
			if cfg.CategoryFile != "" {
				if entries, err := catalog.NewLoader(cfg.CategoryFile).Load(); err == nil {
					cat.Apply(cfg.CategoryFile, entries)
				}
			}

			return printSummary(cmd.OutOrStdout(), userID, analytics.Build(day.Date, acts, cat))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id whose day is summarized")
	cmd.Flags().StringVar(&date, "date", "", "Day as YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func printSummary(w io.Writer, userID string, r analytics.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Day:\t%s (%s)\n", r.Date, userID)
	if r.Empty {
		fmt.Fprintln(tw, "No activities.")
		return tw.Flush()
	}

	s := r.Summary
	fmt.Fprintf(tw, "Total:\t%s in %d activities\n", s.TotalFormatted, s.Count)
	fmt.Fprintf(tw, "Remaining:\t%s\n", domain.FormatDuration(s.RemainingMinutes))
	fmt.Fprintf(tw, "Top:\t%s %s\n", s.TopEmoji, s.TopCategory)
	fmt.Fprintf(tw, "Average:\t%s\n", s.AverageFormatted)
	fmt.Fprintln(tw)

	for _, c := range r.Categories {
		fmt.Fprintf(tw, "%s %s\t%s\t%d%%\n", c.Emoji, c.Category, c.Formatted, c.Percent)
	}
	return tw.Flush()
}
