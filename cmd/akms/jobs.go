package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/app"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/engine"
)

func jobCmd() *cobra.Command {
	job := &cobra.Command{Use: "job", Short: "Record and edit jobs"}
	job.AddCommand(jobCreateCmd())
	job.AddCommand(jobListCmd())
	job.AddCommand(jobShowCmd())
	job.AddCommand(jobUpdateCmd())
	job.AddCommand(jobPriorityCmd())
	job.AddCommand(jobDeleteCmd())
	return job
}

// jobFlags binds the editable job fields to command flags. Money is taken as
// text so it parses exactly.
type jobFlags struct {
	in                 engine.JobInput
	total, paid, rate  string
	cameras            int
	hours              float64
	category, status   string
	paymentStatus, prt string
}

func (f *jobFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.category, "category", "", "EDITING, EXPOSING or OTHER")
	fs.StringVar(&f.in.CustomerName, "customer", "", "customer name")
	fs.StringVar(&f.in.CustomerPhone, "phone", "", "customer phone")
	fs.StringVar(&f.in.ClientName, "client", "", "client name")
	fs.StringVar(&f.in.StudioName, "studio", "", "studio name (exposing jobs)")
	fs.StringVar(&f.in.EventType, "event", "", "event type")
	fs.StringVar(&f.in.EventLocation, "location", "", "event location")
	fs.StringVar(&f.in.SessionType, "session", "", "session type")
	fs.StringVar(&f.in.ExposeType, "expose-type", "", "expose type")
	fs.StringVar(&f.in.CameraType, "camera-type", "", "camera type")
	fs.StringVar(&f.in.TypeOfWork, "work", "", "type of work (editing jobs)")
	fs.IntVar(&f.cameras, "cameras", 0, "number of cameras")
	fs.Float64Var(&f.hours, "hours", 0, "duration in hours")
	fs.StringVar(&f.rate, "rate", "", "rate per hour")
	fs.StringVar(&f.in.StartDate, "start", "", "start date YYYY-MM-DD")
	fs.StringVar(&f.in.EndDate, "end", "", "end date YYYY-MM-DD")
	fs.StringVar(&f.in.EstimatedDueDate, "due", "", "estimated due date YYYY-MM-DD")
	fs.StringVar(&f.total, "total", "", "total price")
	fs.StringVar(&f.paid, "paid", "", "amount paid")
	fs.StringVar(&f.paymentStatus, "payment-status", "", "PENDING, PARTIAL or COMPLETED")
	fs.StringVar(&f.in.PaymentDate, "payment-date", "", "payment date YYYY-MM-DD")
	fs.StringVar(&f.status, "status", "", "PENDING, IN_PROGRESS or COMPLETED")
	fs.StringVar(&f.prt, "priority", "", "LOW, NORMAL or HIGH (editing jobs)")
	fs.StringVar(&f.in.Notes, "notes", "", "notes")
}

// apply copies the flags that were set onto base.
func (f *jobFlags) apply(fs *pflag.FlagSet, base engine.JobInput) (engine.JobInput, error) {
	set := func(name string) bool { return fs.Changed(name) }
	str := map[string]*string{
		"customer": &base.CustomerName, "phone": &base.CustomerPhone, "client": &base.ClientName,
		"studio": &base.StudioName, "event": &base.EventType, "location": &base.EventLocation,
		"session": &base.SessionType, "expose-type": &base.ExposeType, "camera-type": &base.CameraType,
		"work": &base.TypeOfWork, "start": &base.StartDate, "end": &base.EndDate, "due": &base.EstimatedDueDate,
		"payment-date": &base.PaymentDate, "notes": &base.Notes,
	}
	src := map[string]string{
		"customer": f.in.CustomerName, "phone": f.in.CustomerPhone, "client": f.in.ClientName,
		"studio": f.in.StudioName, "event": f.in.EventType, "location": f.in.EventLocation,
		"session": f.in.SessionType, "expose-type": f.in.ExposeType, "camera-type": f.in.CameraType,
		"work": f.in.TypeOfWork, "start": f.in.StartDate, "end": f.in.EndDate, "due": f.in.EstimatedDueDate,
		"payment-date": f.in.PaymentDate, "notes": f.in.Notes,
	}
	for name, dst := range str {
		if set(name) {
			*dst = src[name]
		}
	}
	if set("category") {
		base.Category = domain.Category(strings.ToUpper(f.category))
	}
	if set("status") {
		base.Status = domain.JobStatus(strings.ToUpper(f.status))
	}
	if set("payment-status") {
		base.PaymentStatus = domain.PaymentStatus(strings.ToUpper(f.paymentStatus))
	}
	if set("priority") {
		base.Priority = domain.Priority(strings.ToUpper(f.prt))
	}
	if set("cameras") {
		n := f.cameras
		base.NumberOfCameras = &n
	}
	if set("hours") {
		h := f.hours
		base.DurationHours = &h
	}
	var err error
	if set("total") {
		if base.TotalPrice, err = parseMoney("total", f.total); err != nil {
			return base, err
		}
	}
	if set("paid") {
		if base.AmountPaid, err = parseMoney("paid", f.paid); err != nil {
			return base, err
		}
	}
	if set("rate") {
		rate, err := parseMoney("rate", f.rate)
		if err != nil {
			return base, err
		}
		base.RatePerHour = &rate
	}
	return base, nil
}

func parseMoney(flag, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %q is not a number", flag, s)
	}
	return d, nil
}

func inputFromJob(j domain.Job) engine.JobInput {
	return engine.JobInput{
		UserID: j.UserID, Category: j.Category, CustomerName: j.CustomerName, CustomerPhone: j.CustomerPhone,
		ClientName: j.ClientName, StudioName: j.StudioName, EventType: j.EventType, EventLocation: j.EventLocation,
		SessionType: j.SessionType, ExposeType: j.ExposeType, CameraType: j.CameraType, TypeOfWork: j.TypeOfWork,
		NumberOfCameras: j.NumberOfCameras, DurationHours: j.DurationHours, RatePerHour: j.RatePerHour,
		StartDate: j.StartDate, EndDate: j.EndDate, EstimatedDueDate: j.EstimatedDueDate,
		TotalPrice: j.TotalPrice, AmountPaid: j.AmountPaid, PaymentStatus: j.PaymentStatus, PaymentDate: j.PaymentDate,
		Status: j.Status, Priority: j.Priority, Notes: j.Notes,
	}
}

func jobCreateCmd() *cobra.Command {
	var f jobFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				in, err := f.apply(cmd.Flags(), engine.JobInput{UserID: c.Owner()})
				if err != nil {
					return err
				}
				j, err := c.Engine.CreateJob(cmd.Context(), in)
				if err != nil {
					return err
				}
				return printJobs(c, j)
			})
		},
	}
	f.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func jobListCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				jobs, err := c.Engine.ListJobs(cmd.Context(), c.Owner(), domain.Category(strings.ToUpper(category)))
				if err != nil {
					return err
				}
				return printJobs(c, jobs...)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category filter")
	return cmd
}

func jobShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				j, err := c.Engine.GetJob(cmd.Context(), c.Owner(), args[0])
				if err != nil {
					return err
				}
				return printJSON(j)
			})
		},
	}
}

func jobUpdateCmd() *cobra.Command {
	var f jobFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a job (category stays fixed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("category") {
				return fmt.Errorf("the category of a job cannot change")
			}
			return withApp(func(c *app.Context) error {
				ctx := cmd.Context()
				existing, err := c.Engine.GetJob(ctx, c.Owner(), args[0])
				if err != nil {
					return err
				}
				in, err := f.apply(cmd.Flags(), inputFromJob(existing))
				if err != nil {
					return err
				}
				j, err := c.Engine.UpdateJob(ctx, c.Owner(), args[0], in)
				if err != nil {
					return err
				}
				return printJobs(c, j)
			})
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func jobPriorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "priority <id> <LOW|NORMAL|HIGH|none>",
		Short: "Set the priority of an editing job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := args[1]
			if strings.EqualFold(p, "none") {
				p = ""
			}
			return withApp(func(c *app.Context) error {
				j, err := c.Engine.SetPriority(cmd.Context(), c.Owner(), args[0], domain.Priority(p))
				if err != nil {
					return err
				}
				return printJobs(c, j)
			})
		},
	}
}

func jobDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a job locally and remotely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				if err := c.Engine.DeleteJob(cmd.Context(), c.Owner(), args[0]); err != nil {
					return err
				}
				fmt.Printf("deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func printJobs(c *app.Context, jobs ...domain.Job) error {
	if viper.GetBool("json") {
		if len(jobs) == 1 {
			return printJSON(jobs[0])
		}
		return printJSON(jobs)
	}
	f := c.Engine.Composer.Format
	tw := newTable(table.Row{"ID", "Date", "Category", "Customer", "Service", "Total", "Paid", "Balance", "Payment", "Status", "Sync"})
	for _, j := range jobs {
		tw.AppendRow(table.Row{
			j.ID, j.StartDate, j.Category, j.CustomerName, j.ServiceLabel(),
			f.Amount(j.TotalPrice), f.Amount(j.AmountPaid), f.Amount(j.Balance()),
			j.PaymentStatus, j.Status, j.SyncStatus,
		})
	}
	tw.Render()
	return nil
}
