package watchcli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oremus-labs/watchdesk/internal/dashboard"
)

type healthView struct {
	State  dashboard.HealthState `json:"state"`
	Status string                `json:"status"`
	Redis  string                `json:"redis,omitempty"`
	DB     string                `json:"db,omitempty"`
	Server string                `json:"server"`
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the backend health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			res := client.Health(cmd.Context())
			if err := check(res); err != nil {
				return err
			}
			view := healthView{
				State:  dashboard.ClassifyHealth(res.Data.Status),
				Status: res.Data.Status,
				Redis:  res.Data.Checks.Redis,
				DB:     res.Data.Checks.DB,
				Server: client.BaseURL(),
			}
			return render(cmd, view, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Field\tValue\n")
				fmt.Fprintf(tw, "Server\t%s\n", view.Server)
				fmt.Fprintf(tw, "State\t%s\n", view.State)
				fmt.Fprintf(tw, "Status\t%s\n", dash(view.Status))
				fmt.Fprintf(tw, "Redis\t%s\n", dash(view.Redis))
				fmt.Fprintf(tw, "DB\t%s\n", dash(view.DB))
			})
		},
	}
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show totals, severity counts and the latest items",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			res := dashboard.BuildSummary(cmd.Context(), client)
			if err := check(res); err != nil {
				return err
			}
			s := res.Data
			if s.Errors.Watchlists != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: watchlists unavailable: %s\n", s.Errors.Watchlists)
			}
			if s.Errors.Events != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: events unavailable: %s\n", s.Errors.Events)
			}
			return render(cmd, s, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Metric\tValue\n")
				fmt.Fprintf(tw, "Watchlists\t%d\n", s.TotalWatchlists)
				fmt.Fprintf(tw, "Events\t%d\n", s.TotalEvents)
				fmt.Fprintf(tw, "Critical\t%d\n", s.CriticalEvents)
				fmt.Fprintf(tw, "High\t%d\n", s.HighSeverityEvents)
				if len(s.RecentEvents) > 0 {
					fmt.Fprintf(tw, "\nRECENT EVENT\tSEVERITY\tCREATED\n")
					for _, e := range s.RecentEvents {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", truncate(e.Title, 48), e.Severity, relativeTime(e.CreatedAt))
					}
				}
				if len(s.Watchlists) > 0 {
					fmt.Fprintf(tw, "\nWATCHLIST\tTERMS\tID\n")
					for _, w := range s.Watchlists {
						fmt.Fprintf(tw, "%s\t%d\t%s\n", truncate(w.Name, 48), len(w.Terms), w.ID)
					}
				}
			})
		},
	}
}
