// Package watchcli implements the watchdesk command-line client.
package watchcli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oremus-labs/watchdesk/internal/logutil"
	"github.com/oremus-labs/watchdesk/internal/remote"
)

var (
	cfgFile           string
	contextName       string
	overrideURL       string
	overrideToken     string
	overrideDashboard string
	outputFormat      string
	requestTimeout    time.Duration
	retryAttempts     int
	retryDelay        time.Duration
	verbose           bool

	appConfig *Config
)

// Execute runs the CLI. Failures are printed as "Error: <message>".
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCmd())
}

func run(ctx context.Context, root *cobra.Command) error {
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// NewRootCmd builds the command tree with fresh flag state.
func NewRootCmd() *cobra.Command {
	appConfig = nil

	root := &cobra.Command{
		Use:           "watchdesk",
		Short:         "Inspect watchlists, events and AI analyses",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `watchdesk talks to the monitoring backend directly and to the dashboard
server for live revalidation events. Configure a context first
(see 'watchdesk config set-context').`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Config commands load/save the file manually.
			if strings.HasPrefix(cmd.CommandPath(), "watchdesk config") {
				return nil
			}
			if appConfig == nil {
				var err error
				appConfig, err = LoadConfig(cfgFile)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", defaultConfigPath(), "Path to the watchdesk config file")
	flags.StringVar(&contextName, "context", "", "Context name to use (overrides current)")
	flags.StringVar(&overrideURL, "server", "", "Override backend API URL")
	flags.StringVar(&overrideToken, "token", "", "Override backend API token")
	flags.StringVar(&overrideDashboard, "dashboard", "", "Override dashboard server URL")
	flags.StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json|yaml")
	flags.DurationVar(&requestTimeout, "timeout", remote.DefaultTimeout, "Timeout per request attempt")
	flags.IntVar(&retryAttempts, "retry-attempts", remote.DefaultPolicy.Attempts, "Attempts per request")
	flags.DurationVar(&retryDelay, "retry-delay", remote.DefaultPolicy.InitialDelay, "Delay before the first retry; doubles per retry")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log retries and request details to stderr")

	root.AddCommand(newHealthCmd())
	root.AddCommand(newSummaryCmd())
	root.AddCommand(newWatchlistsCmd())
	root.AddCommand(newTermsCmd())
	root.AddCommand(newEventsCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newConfigCmd())
	return root
}

// resolvedContext merges config state with flag overrides.
func resolvedContext() (*Context, error) {
	if appConfig == nil {
		return nil, errors.New("configuration not loaded")
	}
	ctxName := contextName
	if ctxName == "" {
		ctxName = appConfig.CurrentContext
	}
	ctx, ok := appConfig.Contexts[ctxName]
	if !ok {
		if overrideURL == "" {
			return nil, fmt.Errorf("context %q not found; use 'watchdesk config set-context'", ctxName)
		}
		ctx = Context{Name: "adhoc"}
	}
	if overrideURL != "" {
		ctx.Server = overrideURL
	}
	if overrideToken != "" {
		ctx.Token = overrideToken
	}
	if overrideDashboard != "" {
		ctx.Dashboard = overrideDashboard
	}
	if ctx.Server == "" {
		return nil, fmt.Errorf("context %q is missing a server URL", ctx.Name)
	}
	return &ctx, nil
}

func newClient(cmd *cobra.Command) (*remote.Client, *Context, error) {
	ctx, err := resolvedContext()
	if err != nil {
		return nil, nil, err
	}
	client := remote.New(remote.Options{
		BaseURL: ctx.Server,
		Token:   ctx.Token,
		Timeout: requestTimeout,
		Retry: remote.Policy{
			Attempts:     retryAttempts,
			InitialDelay: retryDelay,
			ShouldRetry:  remote.RetryTransient,
		},
		Logger: cliLogger(cmd),
	})
	return client, ctx, nil
}

func cliLogger(cmd *cobra.Command) *slog.Logger {
	// Final failures are already printed as "Error: ..." lines.
	if !verbose {
		return logutil.Discard()
	}
	return logutil.New(logutil.Options{Level: "debug", Output: cmd.ErrOrStderr()})
}

// check turns a failure envelope into the error the CLI prints.
func check[T any](res remote.Result[T]) error {
	if res.Success {
		return nil
	}
	return errors.New(res.Error)
}
