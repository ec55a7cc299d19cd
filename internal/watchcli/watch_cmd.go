package watchcli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oremus-labs/watchdesk/internal/revalidate"
)

func newWatchCmd() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow revalidation events from the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := resolvedContext()
			if err != nil {
				return err
			}
			if ctx.Dashboard == "" {
				return errors.New("no dashboard URL configured; use --dashboard or 'watchdesk config set-context --dashboard'")
			}
			types, _ := cmd.Flags().GetStringSlice("type")
			limit, _ := cmd.Flags().GetInt("limit")
			wanted := make(map[string]bool, len(types))
			for _, t := range types {
				wanted[strings.TrimSpace(t)] = true
			}

			seen := 0
			return streamRevalidations(cmd.Context(), ctx.Dashboard, ctx.Token, func(evt revalidate.Event) bool {
				if len(wanted) > 0 && !wanted[evt.Type] {
					return true
				}
				switch strings.ToLower(outputFormat) {
				case "json", "yaml":
					if err := printJSONLine(cmd, evt); err != nil {
						return false
					}
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-18s %s\n",
						evt.Timestamp.Local().Format(time.TimeOnly), evt.Type, strings.Join(evt.Paths, ","))
				}
				seen++
				return limit <= 0 || seen < limit
			})
		},
	}
	watchCmd.Flags().StringSlice("type", nil, "Only show these event types (repeatable)")
	watchCmd.Flags().Int("limit", 0, "Stop after this many events")
	return watchCmd
}

func printJSONLine(cmd *cobra.Command, evt revalidate.Event) error {
	raw, err := jsonLine(evt)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(raw)
	return err
}
