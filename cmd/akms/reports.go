package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/app"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/engine"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/report"
)

func periodFlags(cmd *cobra.Command, in *engine.PeriodInput) {
	tokens := make([]string, 0, len(report.Periods))
	for _, p := range report.Periods {
		tokens = append(tokens, string(p))
	}
	cmd.Flags().StringVar((*string)(&in.Period), "period", string(report.ThisMonth), strings.Join(tokens, ", "))
	cmd.Flags().StringVar(&in.Start, "start", "", "custom period start YYYY-MM-DD")
	cmd.Flags().StringVar(&in.End, "end", "", "custom period end YYYY-MM-DD")
}

func dashboardCmd() *cobra.Command {
	var in engine.PeriodInput
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Income, paid and pending totals for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				d, err := c.Engine.Dashboard(cmd.Context(), c.Owner(), in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				fmt.Printf("%s (%s to %s)\n", d.Range.Label, d.Range.Start, d.Range.End)
				printSummary(c, d.Summary)
				return nil
			})
		},
	}
	periodFlags(cmd, &in)
	return cmd
}

func reportCmd() *cobra.Command {
	var in engine.PeriodInput
	var category string
	var withJobs bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Period report with a monthly breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				r, err := c.Engine.Report(cmd.Context(), c.Owner(), in, domain.Category(strings.ToUpper(category)))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(r)
				}
				title := r.Range.Label
				if r.Category != "" {
					title += " / " + string(r.Category)
				}
				fmt.Printf("%s (%s to %s)\n", title, r.Range.Start, r.Range.End)
				printSummary(c, r.Summary)

				f := c.Engine.Composer.Format
				tw := newTable(table.Row{"Month", "Jobs", "Income", "Paid", "Pending"})
				for _, m := range r.Monthly.Months {
					tw.AppendRow(table.Row{m.Label, m.Jobs, f.Amount(m.Income), f.Amount(m.Paid), f.Amount(m.Pending)})
				}
				t := r.Monthly.Total
				tw.AppendFooter(table.Row{"Total", t.Jobs, f.Amount(t.Income), f.Amount(t.Paid), f.Amount(t.Pending)})
				tw.Render()
				if withJobs {
					return printJobs(c, r.Jobs...)
				}
				return nil
			})
		},
	}
	periodFlags(cmd, &in)
	cmd.Flags().StringVar(&category, "category", "", "limit to one category")
	cmd.Flags().BoolVar(&withJobs, "jobs", false, "list the jobs in the period")
	return cmd
}

func printSummary(c *app.Context, s report.Summary) {
	f := c.Engine.Composer.Format
	tw := newTable(table.Row{"Category", "Jobs", "Income", "Paid", "Pending"})
	for _, ct := range s.ByCategory {
		tw.AppendRow(table.Row{ct.Category, ct.Jobs, f.Amount(ct.Income), f.Amount(ct.Paid), f.Amount(ct.Pending)})
	}
	t := s.Totals
	tw.AppendFooter(table.Row{"Total", t.Jobs, f.Amount(t.Income), f.Amount(t.Paid), f.Amount(t.Pending)})
	tw.Render()
	fmt.Printf("Jobs: %d pending, %d in progress, %d completed\n", s.Status.Pending, s.Status.InProgress, s.Status.Completed)
	fmt.Printf("Payments: %d pending, %d partial, %d completed\n", s.Payment.Pending, s.Payment.Partial, s.Payment.Completed)
}
