package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppecheck/ppecheck/internal/workspace"
	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/config"
	"github.com/ppecheck/ppecheck/pkg/webhook"
)

// requireWorkspace finds the workspace without loading the catalog, so a
// broken catalog path can still be fixed through config set.
func requireWorkspace() (*workspace.Workspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot get current directory: %w", err)
	}
	ws, err := workspace.Discover(cwd)
	if errors.Is(err, workspace.ErrNoWorkspace) {
		return nil, fmt.Errorf("not inside a ppecheck workspace; run %s first", color.ID("ppecheck init"))
	}
	return ws, err
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config <command>",
		Short: "Manage workspace configuration",
		Long: `Manage the configuration stored in .ppecheck/config.yaml.

PPECHECK_* environment variables override file values at load time; show
prints the effective configuration.

Keys:
  ` + strings.Join(config.Keys, "\n  "),
		DisableFlagsInUseLine: true,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := requireWorkspace()
			if err != nil {
				return err
			}
			cfg, err := config.Load(ws.Root)
			if err != nil {
				return err
			}
			cfg = cfg.Redacted()
			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "# %s\n%s", ws.ConfigPath(), data)
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := requireWorkspace()
			if err != nil {
				return err
			}
			cfg, err := config.Load(ws.Root)
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]string{args[0]: v})
			}
			if v == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (not set)\n", args[0])
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one configuration value",
		Long: `Set one configuration value in .ppecheck/config.yaml.

Examples:
  ppecheck config set inspector "J. Doe"
  ppecheck config set submission.lock_after_submit false
  ppecheck config set location.max_accuracy_meters 50`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := requireWorkspace()
			if err != nil {
				return err
			}
			return updateConfig(ws.Root, func(cfg *config.Config) error {
				if err := cfg.Set(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
				return nil
			})
		},
	}

	cmd.AddCommand(show, get, set, newWebhookCmd())
	return cmd
}

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage record webhooks",
	}

	var (
		secret string
		events []string
	)
	add := &cobra.Command{
		Use:   "add <url>",
		Short: "Send submitted records to a URL",
		Long: `Send submitted records to a URL.

Events: ` + string(webhook.EventSubmitted) + `, ` + string(webhook.EventSubmittedWithIssues) + `.
Without --event the hook receives both. With --secret each delivery carries
an HMAC-SHA256 signature header.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, e := range events {
				switch webhook.EventType(e) {
				case webhook.EventSubmitted, webhook.EventSubmittedWithIssues, "*":
				default:
					return fmt.Errorf("unknown event %q", e)
				}
			}
			ws, err := requireWorkspace()
			if err != nil {
				return err
			}
			return updateConfig(ws.Root, func(cfg *config.Config) error {
				cfg.Webhooks = append(cfg.Webhooks, config.WebhookConfig{
					URL: args[0], Secret: secret, Events: events, Enabled: true,
				})
				fmt.Fprintf(cmd.OutOrStdout(), "Added webhook %s\n", args[0])
				return nil
			})
		},
	}
	add.Flags().StringVar(&secret, "secret", "", "HMAC signing secret")
	add.Flags().StringSliceVar(&events, "event", nil, "event to deliver (repeatable)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := requireWorkspace()
			if err != nil {
				return err
			}
			cfg, err := config.Load(ws.Root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				hooks := make([]map[string]any, 0, len(cfg.Webhooks))
				for _, h := range cfg.Webhooks {
					hooks = append(hooks, map[string]any{
						"url": h.URL, "events": h.Events, "enabled": h.Enabled, "signed": h.Secret != "",
					})
				}
				return outputJSON(out, hooks)
			}
			for i, h := range cfg.Webhooks {
				state := color.Success("enabled")
				if !h.Enabled {
					state = color.Dim("disabled")
				}
				events := "all events"
				if len(h.Events) > 0 {
					events = strings.Join(h.Events, ",")
				}
				fmt.Fprintf(out, "%d  %s  %s  %s\n", i, h.URL, state, events)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <url>",
		Short: "Remove every webhook with the given URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := requireWorkspace()
			if err != nil {
				return err
			}
			return updateConfig(ws.Root, func(cfg *config.Config) error {
				kept := cfg.Webhooks[:0]
				for _, h := range cfg.Webhooks {
					if h.URL != args[0] {
						kept = append(kept, h)
					}
				}
				if len(kept) == len(cfg.Webhooks) {
					return fmt.Errorf("no webhook with url %s", args[0])
				}
				cfg.Webhooks = kept
				fmt.Fprintf(cmd.OutOrStdout(), "Removed webhook %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

// updateConfig edits the file values only, so environment overrides are
// never persisted.
func updateConfig(root string, fn func(*config.Config) error) error {
	cfg, err := config.LoadFile(root)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return config.Save(root, cfg)
}
