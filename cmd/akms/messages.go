package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/app"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/templates"
)

func templateCmd() *cobra.Command {
	tpl := &cobra.Command{Use: "template", Short: "Inspect and override message templates"}
	tpl.AddCommand(templateShowCmd())
	tpl.AddCommand(templateScopesCmd())
	tpl.AddCommand(templateSetCmd())
	tpl.AddCommand(templateResetCmd())
	tpl.AddCommand(templateListCmd())
	return tpl
}

func kindFlags(cmd *cobra.Command, kind, category *string) {
	cmd.Flags().StringVar(kind, "kind", string(domain.KindSingle), "single, consolidated, job_status or payment_status")
	cmd.Flags().StringVar(category, "category", "", "EDITING, EXPOSING or OTHER (empty for global)")
}

func templateShowCmd() *cobra.Command {
	var kind, category string
	var preset bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the template in effect for a kind and category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				if preset {
					content, err := c.Engine.TemplatePreset(domain.TemplateKind(kind), domain.Category(category))
					if err != nil {
						return err
					}
					return printContent(templates.Resolved{Kind: domain.TemplateKind(kind), Category: domain.Category(category), Scope: templates.ScopeBuiltin, Content: content})
				}
				r, err := c.Engine.ResolveTemplate(cmd.Context(), domain.TemplateKind(kind), domain.Category(category))
				if err != nil {
					return err
				}
				return printContent(r)
			})
		},
	}
	kindFlags(cmd, &kind, &category)
	cmd.Flags().BoolVar(&preset, "preset", false, "show the suggested starting text instead")
	return cmd
}

func printContent(r templates.Resolved) error {
	if viper.GetBool("json") {
		return printJSON(r)
	}
	scope := "global"
	if r.Category != "" {
		scope = string(r.Category)
	}
	fmt.Printf("# %s / %s (from %s)\n", r.Kind, scope, r.Scope)
	if r.Content.Statuses == nil {
		fmt.Println(r.Content.Text)
		return nil
	}
	for _, s := range r.Kind.Statuses() {
		fmt.Printf("\n## %s\n%s\n", s, r.Content.Statuses[s])
	}
	return nil
}

func templateScopesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scopes <kind>",
		Short: "Show which scope wins for the global slot and every category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				scopes, err := c.Engine.TemplateScopes(cmd.Context(), domain.TemplateKind(args[0]))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(scopes)
				}
				tw := newTable(table.Row{"Category", "Source", "Preview"})
				for _, r := range scopes {
					cat := string(r.Category)
					if cat == "" {
						cat = "(global)"
					}
					tw.AppendRow(table.Row{cat, r.Scope, preview(r.Content)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func preview(c domain.TemplateContent) string {
	text := c.Text
	if c.Statuses != nil {
		text = fmt.Sprintf("%d status texts", len(c.Statuses))
	}
	text = strings.ReplaceAll(text, "\n", " ")
	if r := []rune(text); len(r) > 60 {
		text = string(r[:57]) + "..."
	}
	return text
}

func templateListCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				list, err := c.Engine.ListTemplates(cmd.Context(), domain.TemplateKind(kind))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := newTable(table.Row{"Scope", "Updated", "Preview"})
				for _, t := range list {
					tw.AppendRow(table.Row{t.Scope(), t.UpdatedAt, preview(t.Content)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "kind filter")
	return cmd
}

func templateSetCmd() *cobra.Command {
	var kind, category, text, file string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save an override",
		Long: `Save an override for a kind and category.
Text kinds take --text or a plain-text --file. Status kinds take a YAML --file
mapping each status (PENDING, IN_PROGRESS, ...) to its text.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := domain.Template{Kind: domain.TemplateKind(kind), Category: domain.Category(category)}
			var raw []byte
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				raw = b
			}
			if t.Kind.IsStatusSet() {
				if raw == nil {
					return fmt.Errorf("--file with a YAML status map is required for %s", kind)
				}
				m := map[string]string{}
				if err := yaml.Unmarshal(raw, &m); err != nil {
					return fmt.Errorf("parse %s: %w", file, err)
				}
				t.Content = domain.StatusContent(m)
			} else {
				if raw != nil {
					text = string(raw)
				}
				t.Content = domain.TextContent(text)
			}
			return withApp(func(c *app.Context) error {
				saved, err := c.Engine.SetTemplate(cmd.Context(), t)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(saved)
				}
				fmt.Printf("saved %s\n", saved.Scope())
				return nil
			})
		},
	}
	kindFlags(cmd, &kind, &category)
	cmd.Flags().StringVar(&text, "text", "", "template text")
	cmd.Flags().StringVar(&file, "file", "", "read content from file")
	return cmd
}

func templateResetCmd() *cobra.Command {
	var kind, category string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove an override so the next scope applies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				if err := c.Engine.ResetTemplate(cmd.Context(), domain.TemplateKind(kind), domain.Category(category)); err != nil {
					return err
				}
				fmt.Println("reset")
				return nil
			})
		},
	}
	kindFlags(cmd, &kind, &category)
	return cmd
}

func remindCmd() *cobra.Command {
	remind := &cobra.Command{Use: "remind", Short: "Compose WhatsApp messages"}

	jobReminder := &cobra.Command{
		Use:   "job <id>",
		Short: "Payment reminder for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				msg, err := c.Engine.SingleReminder(cmd.Context(), c.Owner(), args[0])
				if err != nil {
					return err
				}
				return printMessage(msg)
			})
		},
	}

	customer := &cobra.Command{
		Use:   "customer <phone>",
		Short: "One reminder covering every unpaid job of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				res, err := c.Engine.ConsolidatedReminder(cmd.Context(), c.Owner(), args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("%s: %d jobs, %s%s due\n\n", res.CustomerName, len(res.Jobs), c.Config.Locale.Currency, c.Engine.Composer.Format.Amount(res.TotalBalance))
				return printMessage(res.Message)
			})
		},
	}

	var kind, status string
	statusMsg := &cobra.Command{
		Use:   "status <id>",
		Short: "Job or payment status message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(c *app.Context) error {
				msg, err := c.Engine.StatusMessage(cmd.Context(), c.Owner(), args[0], domain.TemplateKind(kind), status)
				if err != nil {
					return err
				}
				return printMessage(msg)
			})
		},
	}
	statusMsg.Flags().StringVar(&kind, "kind", string(domain.KindJobStatus), "job_status or payment_status")
	statusMsg.Flags().StringVar(&status, "status", "", "status to announce (default: the job's current one)")

	remind.AddCommand(jobReminder, customer, statusMsg)
	return remind
}

func printMessage(m templates.Message) error {
	if viper.GetBool("json") {
		return printJSON(m)
	}
	fmt.Println(m.Text)
	if m.Link != "" {
		fmt.Printf("\n%s\n", m.Link)
	} else {
		fmt.Println("\n(no phone number on record, no link)")
	}
	return nil
}
