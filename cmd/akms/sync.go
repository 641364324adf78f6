package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/app"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/db"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/engine"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/mirror"
)

func syncCmd() *cobra.Command {
	s := &cobra.Command{Use: "sync", Short: "Mirror local changes to the remote store"}

	var watch bool
	run := &cobra.Command{
		Use:   "run",
		Short: "Push due outbox entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				if !c.Engine.RemoteEnabled() {
					return mirror.ErrRemoteDisabled
				}
				if watch {
					c.Log.Info("sync: watching outbox, Ctrl-C to stop")
					return c.Engine.Syncer.Run(cmd.Context())
				}
				res, err := c.Engine.FlushSync(cmd.Context())
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	run.Flags().BoolVar(&watch, "watch", false, "keep running and flush on the configured interval")

	var verbose bool
	status := &cobra.Command{
		Use:   "status",
		Short: "Show outbox counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				st, err := c.Engine.SyncStatus(cmd.Context(), verbose)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				fmt.Printf("remote: %v, pending: %d, dead: %d\n", st.RemoteEnabled, st.Pending, st.Dead)
				if len(st.Entries) > 0 {
					tw := newTable(table.Row{"ID", "Entity", "Key", "Op", "State", "Attempts", "Next", "Last error"})
					for _, e := range st.Entries {
						tw.AppendRow(table.Row{e.ID, e.Entity, e.EntityKey, e.Op, e.State, e.Attempts, e.NextAttemptAt, e.LastError})
					}
					tw.Render()
				}
				return nil
			})
		},
	}
	status.Flags().BoolVarP(&verbose, "verbose", "v", false, "list outstanding entries")

	retry := &cobra.Command{
		Use:   "retry",
		Short: "Requeue dead entries and push again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				n, res, err := c.Engine.RetrySync(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("requeued %d\n", n)
				return printResult(res)
			})
		},
	}

	pull := &cobra.Command{
		Use:   "pull",
		Short: "Copy remote-only jobs into the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				n, err := c.Engine.Pull(cmd.Context(), c.Owner())
				if err != nil {
					return err
				}
				fmt.Printf("pulled %d jobs\n", n)
				return nil
			})
		},
	}

	migrateLocal := &cobra.Command{
		Use:   "migrate",
		Short: "Push every local record to the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				res, err := c.Engine.MigrateLocal(cmd.Context(), c.Owner())
				if err != nil {
					return err
				}
				return printMigrate(res)
			})
		},
	}

	s.AddCommand(run, status, retry, pull, migrateLocal)
	return s
}

func remoteCmd() *cobra.Command {
	r := &cobra.Command{Use: "remote", Short: "Manage the Postgres mirror"}

	schema := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the remote schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				if err := c.MigrateRemote(); err != nil {
					return err
				}
				fmt.Println("remote schema up to date")
				return nil
			})
		},
	}

	ping := &cobra.Command{
		Use:   "ping",
		Short: "Check the remote connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				if c.Remote == nil {
					return mirror.ErrRemoteDisabled
				}
				start := time.Now()
				if err := db.Ping(cmd.Context(), c.Remote, 5*time.Second); err != nil {
					return err
				}
				fmt.Printf("remote ok (%s)\n", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Bulk copy legacy jobs and templates into the remote store",
		Long: `Reads {"jobs": [...], "templates": [...]} and upserts jobs by id and templates
by kind and category. Amounts are copied as recorded. Jobs without user_id
are assigned to the current owner.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var in engine.MigrateInput
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			return withApp(func(c *app.Context) error {
				res, err := c.Engine.Migrate(cmd.Context(), c.Owner(), in)
				if err != nil {
					return err
				}
				return printMigrate(res)
			})
		},
	}

	r.AddCommand(schema, ping, importCmd)
	return r
}

func printResult(res mirror.Result) error {
	if viper.GetBool("json") {
		return printJSON(res)
	}
	fmt.Printf("pushed %d, failed %d, dead %d\n", res.Pushed, res.Failed, res.Dead)
	return nil
}

func printMigrate(res mirror.MigrateResult) error {
	if viper.GetBool("json") {
		return printJSON(res)
	}
	fmt.Printf("migrated %d jobs, %d templates\n", res.Jobs, res.Templates)
	return nil
}
