package watchcli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	setContextCmd := &cobra.Command{
		Use:   "set-context <name>",
		Short: "Create or update a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			server, _ := cmd.Flags().GetString("server")
			token, _ := cmd.Flags().GetString("token")
			dashboard, _ := cmd.Flags().GetString("dashboard")
			makeCurrent, _ := cmd.Flags().GetBool("current")

			if server == "" {
				return errors.New("--server is required")
			}
			cfg, err := LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			setContext(cfg, Context{
				Name:      name,
				Server:    strings.TrimRight(server, "/"),
				Token:     token,
				Dashboard: strings.TrimRight(dashboard, "/"),
			}, makeCurrent)
			if err := SaveConfig(cfg, cfgFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Context %q updated.\n", name)
			return nil
		},
	}
	setContextCmd.Flags().String("server", "", "Backend API URL")
	setContextCmd.Flags().String("token", "", "Backend API token")
	setContextCmd.Flags().String("dashboard", "", "Dashboard server URL (used by 'watch')")
	setContextCmd.Flags().Bool("current", true, "Set as current context")

	useContextCmd := &cobra.Command{
		Use:   "use-context <name>",
		Short: "Switch the current context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			if err := ensureContextExists(cfg, args[0]); err != nil {
				return err
			}
			cfg.CurrentContext = args[0]
			if err := SaveConfig(cfg, cfgFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q.\n", args[0])
			return nil
		},
	}

	currentContextCmd := &cobra.Command{
		Use:   "current-context",
		Short: "Print the current context",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			if cfg.CurrentContext == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No context configured.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
			return nil
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Show the configuration with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			safe := cfg.redacted()
			switch strings.ToLower(outputFormat) {
			case "json":
				return printJSON(cmd.OutOrStdout(), safe)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(safe)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", cfgFile)
			for _, name := range cfg.contextNames() {
				ctx := cfg.Contexts[name]
				current := " "
				if cfg.CurrentContext == name {
					current = "*"
				}
				dashboard := ctx.Dashboard
				if dashboard == "" {
					dashboard = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, dashboard %s)\n", current, name, ctx.Server, dashboard)
			}
			return nil
		},
	}

	configCmd.AddCommand(setContextCmd)
	configCmd.AddCommand(useContextCmd)
	configCmd.AddCommand(currentContextCmd)
	configCmd.AddCommand(viewCmd)
	return configCmd
}
