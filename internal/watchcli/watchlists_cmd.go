package watchcli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oremus-labs/watchdesk/internal/remote"
)

func newWatchlistsCmd() *cobra.Command {
	watchlistsCmd := &cobra.Command{
		Use:     "watchlists",
		Aliases: []string{"watchlist", "wl"},
		Short:   "Manage watchlists",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List watchlists",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			res := client.ListWatchlists(cmd.Context())
			if err := check(res); err != nil {
				return err
			}
			return render(cmd, res.Data, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "ID\tNAME\tTERMS\tDESCRIPTION\tUPDATED\n")
				for _, w := range res.Data {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
						w.ID,
						truncate(w.Name, 32),
						len(w.Terms),
						dash(truncate(w.Description, 48)),
						relativeTime(w.UpdatedAt))
				}
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a watchlist and its terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			res := client.GetWatchlist(cmd.Context(), args[0])
			if err := check(res); err != nil {
				return err
			}
			return render(cmd, res.Data, func(tw *tabwriter.Writer) {
				printWatchlist(tw, res.Data)
			})
		},
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			description, _ := cmd.Flags().GetString("description")
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			res := client.CreateWatchlist(cmd.Context(), remote.WatchlistInput{Name: name, Description: description})
			if err := check(res); err != nil {
				return err
			}
			return render(cmd, res.Data, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Watchlist %q created (id %s).\n", res.Data.Name, res.Data.ID)
			})
		},
	}
	createCmd.Flags().String("name", "", "Watchlist name")
	createCmd.Flags().String("description", "", "Watchlist description")

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a watchlist's name and description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			description, _ := cmd.Flags().GetString("description")
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			res := client.UpdateWatchlist(cmd.Context(), args[0], remote.WatchlistInput{Name: name, Description: description})
			if err := check(res); err != nil {
				return err
			}
			return render(cmd, res.Data, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Watchlist %s updated.\n", args[0])
			})
		},
	}
	updateCmd.Flags().String("name", "", "New name")
	updateCmd.Flags().String("description", "", "New description")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				ok, err := confirmPrompt(fmt.Sprintf("Delete watchlist %s? [y/N]: ", args[0]), cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("aborted")
				}
			}
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := check(client.DeleteWatchlist(cmd.Context(), args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watchlist %s deleted.\n", args[0])
			return nil
		},
	}
	deleteCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	watchlistsCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd)
	return watchlistsCmd
}

func newTermsCmd() *cobra.Command {
	termsCmd := &cobra.Command{
		Use:   "terms",
		Short: "Manage the terms of a watchlist",
	}

	addCmd := &cobra.Command{
		Use:   "add <watchlist-id> <term>",
		Short: "Add a term to a watchlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			term := strings.Join(args[1:], " ")
			res := client.AddTerm(cmd.Context(), args[0], remote.TermInput{Term: term})
			if err := check(res); err != nil {
				return err
			}
			return render(cmd, res.Data, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Term %q added (id %s).\n", res.Data.Term, res.Data.ID)
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <watchlist-id> <term-id>",
		Short: "Remove a term from a watchlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := check(client.DeleteTerm(cmd.Context(), args[0], args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Term %s removed from watchlist %s.\n", args[1], args[0])
			return nil
		},
	}

	termsCmd.AddCommand(addCmd, deleteCmd)
	return termsCmd
}

func printWatchlist(tw *tabwriter.Writer, w remote.Watchlist) {
	fmt.Fprintf(tw, "Field\tValue\n")
	fmt.Fprintf(tw, "ID\t%s\n", w.ID)
	fmt.Fprintf(tw, "Name\t%s\n", w.Name)
	fmt.Fprintf(tw, "Description\t%s\n", dash(w.Description))
	fmt.Fprintf(tw, "Created\t%s\n", relativeTime(w.CreatedAt))
	fmt.Fprintf(tw, "Updated\t%s\n", relativeTime(w.UpdatedAt))
	if len(w.Terms) == 0 {
		fmt.Fprintf(tw, "Terms\t-\n")
		return
	}
	fmt.Fprintf(tw, "\nTERM ID\tTERM\tACTIVE\n")
	for _, t := range w.Terms {
		active := "-"
		if t.IsActive != nil {
			active = fmt.Sprintf("%t", *t.IsActive)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Term, active)
	}
}
