package watchcli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oremus-labs/watchdesk/internal/remote"
)

func newEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"event"},
		Short:   "Inspect events and AI analyses",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			severity, _ := cmd.Flags().GetString("severity")
			want := remote.Severity(strings.ToUpper(strings.TrimSpace(severity)))
			if want != "" && !want.Valid() {
				return fmt.Errorf("invalid severity %q (expected one of %s)", severity, severityList())
			}
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			res := client.ListEvents(cmd.Context())
			if err := check(res); err != nil {
				return err
			}
			events := res.Data
			if want != "" {
				filtered := make([]remote.Event, 0, len(events))
				for _, e := range events {
					if e.Severity == want {
						filtered = append(filtered, e)
					}
				}
				events = filtered
			}
			return render(cmd, events, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "ID\tSEVERITY\tTITLE\tCREATED\n")
				for _, e := range events {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Severity, truncate(e.Title, 48), relativeTime(e.CreatedAt))
				}
			})
		},
	}
	listCmd.Flags().String("severity", "", "Only show events of this severity ("+severityList()+")")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Ask the backend to ingest a synthetic event",
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			severity, _ := cmd.Flags().GetString("severity")
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			res := client.SimulateEvent(cmd.Context(), remote.SimulateEventInput{
				Title:       title,
				Description: description,
				Severity:    remote.Severity(strings.ToUpper(severity)),
			})
			if err := check(res); err != nil {
				return err
			}
			return render(cmd, res.Data, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Event %s simulated (%s).\n", res.Data.ID, res.Data.Severity)
			})
		},
	}
	simulateCmd.Flags().String("title", "", "Event title")
	simulateCmd.Flags().String("description", "", "Event description")
	simulateCmd.Flags().String("severity", "", severityList())

	analysisCmd := &cobra.Command{
		Use:   "analysis <event-id>",
		Short: "List AI analyses of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			res := client.GetEventAnalysis(cmd.Context(), args[0])
			if err := check(res); err != nil {
				return err
			}
			return render(cmd, res.Data, func(tw *tabwriter.Writer) {
				if len(res.Data) == 0 {
					fmt.Fprintf(tw, "No analyses for event %s.\n", args[0])
					return
				}
				fmt.Fprintf(tw, "ID\tSEVERITY\tSUMMARY\tACTION\tCREATED\n")
				for _, a := range res.Data {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						a.ID, a.Severity, truncate(a.Summary, 48), truncate(a.Action, 32), relativeTime(a.CreatedAt))
				}
			})
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <event-id>",
		Short: "Request a new AI analysis of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			res := client.AnalyzeEvent(cmd.Context(), args[0])
			if err := check(res); err != nil {
				return err
			}
			return render(cmd, res.Data, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Field\tValue\n")
				fmt.Fprintf(tw, "ID\t%s\n", res.Data.ID)
				fmt.Fprintf(tw, "Event\t%s\n", res.Data.EventID)
				fmt.Fprintf(tw, "Severity\t%s\n", res.Data.Severity)
				fmt.Fprintf(tw, "Summary\t%s\n", res.Data.Summary)
				fmt.Fprintf(tw, "Action\t%s\n", res.Data.Action)
			})
		},
	}

	eventsCmd.AddCommand(listCmd, simulateCmd, analysisCmd, analyzeCmd)
	return eventsCmd
}

func severityList() string {
	names := make([]string, 0, len(remote.Severities))
	for _, s := range remote.Severities {
		names = append(names, string(s))
	}
	return strings.Join(names, "|")
}
