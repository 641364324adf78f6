package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/app"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/config"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/db"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/engine/auth"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "akms",
	Short: "Aura Knot studio job ledger",
	Long: `akms records photography jobs, tracks payments and composes WhatsApp reminders.
- Jobs are written to the local workspace first and mirrored to Postgres when AKMS_REMOTE_DATABASE_URL is set.
- A remote outage never loses a write: changes wait in the outbox until 'akms sync run' or 'akms serve' pushes them.
- Templates resolve category override, then global override, then the built-in text.
- Dashboards and reports fold the merged job list over a period (this_month, last_month, this_quarter, ...).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("AKMS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("owner", "", "studio owner id (overrides AKMS_OWNER_ID)")
	rootCmd.PersistentFlags().Bool("local-only", false, "ignore the remote mirror for this command")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("owner", rootCmd.PersistentFlags().Lookup("owner"))
	_ = viper.BindPFlag("local-only", rootCmd.PersistentFlags().Lookup("local-only"))
}

func registerCommands() {
	rootCmd.AddCommand(jobCmd())
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(remoteCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(ownerCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage studio.yml"}
	var studio string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default studio.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(studio)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&studio, "studio", "", "studio name")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(c)
		},
	}
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate studio.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	}
	cfg.AddCommand(initCmd, showCmd, validateCmd)
	return cfg
}

func ownerCmd() *cobra.Command {
	owner := &cobra.Command{Use: "owner", Short: "Manage the studio owner identity"}
	useCmd := &cobra.Command{
		Use:   "use <id>",
		Short: "Set the default owner for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return fmt.Errorf("owner id is required")
			}
			workspace := viper.GetString("workspace")
			if err := config.SetEnvValue(workspace, "AKMS_OWNER_ID", id); err != nil {
				return err
			}
			fmt.Printf("Set AKMS_OWNER_ID=%s in %s\n", id, config.EnvPath(workspace))
			return nil
		},
	}
	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				token, err := auth.Issue(c.Env.JWTSecret, c.Owner(), c.Config.Studio.Name, time.Now(), ttl)
				if err != nil {
					return err
				}
				fmt.Println(token)
				return nil
			})
		},
	}
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime (0 for no expiry)")
	owner.AddCommand(useCmd, tokenCmd)
	return owner
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the background sync worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				if addr == "" {
					addr = c.Config.Server.Addr
				}
				if basePath == "" {
					basePath = c.Config.Server.BasePath
				}
				authCfg := server.AuthConfig{JWTSecret: c.Env.JWTSecret, AllowUserHeader: c.Env.AllowUserHeader, Logger: c.Log}
				if authCfg.JWTSecret == "" && !authCfg.AllowUserHeader {
					return fmt.Errorf("AKMS_JWT_SECRET is required when AKMS_ALLOW_USER_HEADER is false")
				}
				handler, err := server.New(server.Config{Engine: c.Engine, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				g, ctx := errgroup.WithContext(cmd.Context())
				g.Go(func() error {
					return c.Engine.Syncer.Run(ctx)
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
				g.Go(func() error {
					c.Log.WithFields(map[string]any{"addr": addr, "base_path": basePath, "remote": c.Engine.RemoteEnabled()}).Info("serving studio API")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from studio.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from studio.yml)")
	return cmd
}

// --- helpers ---

func withApp(fn func(*app.Context) error) error {
	c, err := app.Open(viper.GetString("workspace"), app.Options{
		Owner:     viper.GetString("owner"),
		LocalOnly: viper.GetBool("local-only"),
	})
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	return tw
}
