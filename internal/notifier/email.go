package notifier

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/silat-watch/internal/logger"
	"github.com/pfrederiksen/silat-watch/internal/schedule"
)

// EmailNotifier sends one message per subscriber over a single session
type EmailNotifier struct {
	subscribers SubscriberLister
	transport   Transport
	composer    *Composer
}

// NewEmailNotifier creates a notifier that mails every subscriber
func NewEmailNotifier(subscribers SubscriberLister, transport Transport, composer *Composer) *EmailNotifier {
	return &EmailNotifier{
		subscribers: subscribers,
		transport:   transport,
		composer:    composer,
	}
}

// Notify sends entries to every subscriber. The returned error is non-nil only
// when nothing could be attempted (listing subscribers or opening the session
// failed); per-recipient failures are in the Report.
func (n *EmailNotifier) Notify(ctx context.Context, entries []schedule.Record) (*Report, error) {
	report := &Report{}

	recipients, err := n.subscribers.List(ctx)
	if err != nil {
		return report, fmt.Errorf("listing subscribers: %w", err)
	}
	if len(recipients) == 0 {
		logger.Info("No subscribers to notify", logger.Fields{"new_entries": len(entries)})
		return report, nil
	}

	session, err := n.transport.Open(ctx)
	if err != nil {
		return report, fmt.Errorf("opening mail session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Closing mail session failed", logger.Fields{"error": err.Error()})
		}
	}()

	for _, to := range recipients {
		if err := ctx.Err(); err != nil {
			report.add(to, err)
			continue
		}

		err := n.send(session, to, entries)
		report.add(to, err)
		if err != nil {
			logger.Error("Sending notification failed", logger.Fields{"email": to}, err)
			logger.IncrCounter("emails.failed")
			continue
		}
		logger.IncrCounter("emails.sent")
	}

	logger.Info("Notification report", logger.Fields{
		"sent":  report.Sent(),
		"total": report.Total(),
	})

	return report, nil
}

func (n *EmailNotifier) send(session Session, to string, entries []schedule.Record) error {
	msg, err := n.composer.Compose(to, entries)
	if err != nil {
		return err
	}

	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	return session.Send(n.composer.SenderEmail, []string{to}, raw)
}
