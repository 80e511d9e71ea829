package cli

import (
	"fmt"
	"strings"

	"github.com/pfrederiksen/silat-watch/internal/notifier"
	"github.com/pfrederiksen/silat-watch/internal/subscriber"
	"github.com/spf13/cobra"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or check unsubscribe links",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "issue <email>",
			Short: "Print the unsubscribe link for an address",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				email, err := subscriber.Normalize(args[0])
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				signer, err := newSigner(root.cfg)
				if err != nil {
					return err
				}

				composer := &notifier.Composer{BaseURL: root.cfg.BaseURL, Tokens: signer}
				fmt.Fprintln(cmd.OutOrStdout(), composer.UnsubscribeLink(email))
				return nil
			},
		},
		&cobra.Command{
			Use:   "verify <token>",
			Short: "Show which address a token unsubscribes, if it is still valid",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				signer, err := newSigner(root.cfg)
				if err != nil {
					return err
				}

				// accept the whole link as printed by "token issue"
				tok := args[0]
				if _, after, ok := strings.Cut(tok, "/unsubscribe/"); ok {
					tok = after
				}

				email, err := signer.Verify(tok)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), email)
				return nil
			},
		},
	)

	return cmd
}
