package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pfrederiksen/silat-watch/internal/config"
	"github.com/pfrederiksen/silat-watch/internal/notifier"
	"github.com/pfrederiksen/silat-watch/internal/storage"
	"github.com/pfrederiksen/silat-watch/internal/subscriber"
	"github.com/pfrederiksen/silat-watch/internal/token"
)

// stores holds the two persistent stores living in the data directory
type stores struct {
	snapshots   *storage.Storage
	subscribers *subscriber.Store
}

func (s *stores) Close() error {
	return s.subscribers.Close()
}

// openStores prepares the data directory and opens both stores in it
func openStores(cfg *config.Config) (*stores, error) {
	snapshots, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	subscribers, err := subscriber.Open(filepath.Join(snapshots.Dir(), subscriber.DatabaseFile))
	if err != nil {
		return nil, err
	}

	return &stores{snapshots: snapshots, subscribers: subscribers}, nil
}

func newSigner(cfg *config.Config) (*token.Signer, error) {
	signer := token.NewSigner(cfg.SecretKey, token.UnsubscribeSalt)
	if signer == nil {
		return nil, errors.New("SECRET_KEY is required to sign unsubscribe links")
	}
	return signer, nil
}

func newComposer(cfg *config.Config, signer *token.Signer) *notifier.Composer {
	return &notifier.Composer{
		SenderName:  cfg.SMTP.SenderName,
		SenderEmail: cfg.SMTP.SenderEmail,
		BaseURL:     cfg.BaseURL,
		SourceURL:   cfg.TargetURL,
		Tokens:      signer,
	}
}

func newSMTPTransport(cfg *config.Config) *notifier.SMTPTransport {
	return notifier.NewSMTPTransport(notifier.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
	})
}
