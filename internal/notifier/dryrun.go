package notifier

import (
	"context"
	"fmt"
	"io"

	"github.com/pfrederiksen/silat-watch/internal/schedule"
)

// DryRunNotifier prints what would be emailed without connecting to SMTP
type DryRunNotifier struct {
	subscribers SubscriberLister
	composer    *Composer
	out         io.Writer
}

// NewDryRunNotifier creates a new dry-run notifier
func NewDryRunNotifier(subscribers SubscriberLister, composer *Composer, out io.Writer) *DryRunNotifier {
	return &DryRunNotifier{
		subscribers: subscribers,
		composer:    composer,
		out:         out,
	}
}

// Notify prints the message each subscriber would receive
func (n *DryRunNotifier) Notify(ctx context.Context, entries []schedule.Record) (*Report, error) {
	report := &Report{}

	recipients, err := n.subscribers.List(ctx)
	if err != nil {
		return report, fmt.Errorf("listing subscribers: %w", err)
	}

	for i, to := range recipients {
		msg, err := n.composer.Compose(to, entries)
		report.add(to, err)
		if err != nil {
			continue
		}

		fmt.Fprintf(n.out, "--- Email %d/%d ---\n", i+1, len(recipients))
		fmt.Fprintf(n.out, "From: %s\nTo: %s\nSubject: %s\n\n", msg.From, to, msg.Subject)
		fmt.Fprintln(n.out, string(msg.Text))
		fmt.Fprintln(n.out)
	}

	return report, nil
}
