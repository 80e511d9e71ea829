package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pfrederiksen/silat-watch/internal/logger"
	"github.com/spf13/cobra"
)

func newSubscribersCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscribers",
		Aliases: []string{"subs"},
		Short:   "Manage the subscriber list",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all subscribed addresses",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSubscribersList(cmd, root)
			},
		},
		&cobra.Command{
			Use:   "add <email>...",
			Short: "Subscribe one or more addresses",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSubscribersAdd(cmd, root, args)
			},
		},
		&cobra.Command{
			Use:   "remove <email>...",
			Short: "Unsubscribe one or more addresses",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSubscribersRemove(cmd, root, args)
			},
		},
	)

	return cmd
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(cmd.OutOrStdout())
	return t
}

func runSubscribersList(cmd *cobra.Command, root *rootOptions) error {
	st, err := openStores(root.cfg)
	if err != nil {
		return err
	}
	defer st.Close() // nolint:errcheck

	emails, err := st.subscribers.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(emails) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No subscribers.")
		return nil
	}

	t := newTable(cmd)
	t.AppendHeader(table.Row{"#", "Email"})
	for i, email := range emails {
		t.AppendRow(table.Row{i + 1, email})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d", len(emails))})
	t.Render()
	return nil
}

func runSubscribersAdd(cmd *cobra.Command, root *rootOptions, emails []string) error {
	st, err := openStores(root.cfg)
	if err != nil {
		return err
	}
	defer st.Close() // nolint:errcheck

	var failed int
	for _, email := range emails {
		added, err := st.subscribers.Add(cmd.Context(), email)
		switch {
		case err != nil:
			failed++
			logger.Error("Failed to add subscriber", logger.Fields{"email": email}, err)
		case added:
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", email)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "Already subscribed: %s\n", email)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d address(es) could not be added", failed, len(emails))
	}
	return nil
}

func runSubscribersRemove(cmd *cobra.Command, root *rootOptions, emails []string) error {
	st, err := openStores(root.cfg)
	if err != nil {
		return err
	}
	defer st.Close() // nolint:errcheck

	for _, email := range emails {
		if err := st.subscribers.Remove(cmd.Context(), email); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", email)
	}
	return nil
}
